// Package client talks to a running docnav server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/docnav/internal/pipeline"
	"github.com/dgallion1/docnav/internal/sitestore"
)

// Client communicates with the docnav HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// PollInterval is how often Wait asks for job status.
	PollInterval time.Duration
	backoff      func(attempt int) time.Duration
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		PollInterval: 500 * time.Millisecond,
		backoff:      Backoff,
	}
}

// UploadResponse is the body of a 202 from POST /api/sites.
type UploadResponse struct {
	JobID   string `json:"job_id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	PollURL string `json:"poll_url"`
}

// StatusError is a non-success HTTP response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Upload submits a navigation source (or a zipped documentation bundle) for
// building. name may be empty to let the server derive it from filename.
func (c *Client) Upload(ctx context.Context, filename string, data []byte, name string, force bool) (*UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if name != "" {
		mw.WriteField("name", name)
	}
	if force {
		mw.WriteField("force", "true")
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sites", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResponse
	if err := c.do(req, http.StatusAccepted, &out); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	return &out, nil
}

// Job fetches the current state of a build job.
func (c *Client) Job(ctx context.Context, id string) (*pipeline.JobSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/jobs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var out pipeline.JobSnapshot
	if err := c.do(req, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &out, nil
}

// Wait polls a job until it reaches a final status. Transient failures are
// retried up to MaxRetries times in a row.
func (c *Client) Wait(ctx context.Context, id string) (*pipeline.JobSnapshot, error) {
	failures := 0
	for {
		snap, err := c.Job(ctx, id)
		delay := c.PollInterval
		switch {
		case err == nil:
			failures = 0
			if snap.Status.Done() {
				return snap, nil
			}
		case IsRetryable(err) && failures < MaxRetries:
			delay = c.backoff(failures)
			failures++
		default:
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Sites lists the sites the server holds.
func (c *Client) Sites(ctx context.Context) ([]sitestore.Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sites", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var out struct {
		Sites []sitestore.Summary `json:"sites"`
	}
	if err := c.do(req, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return out.Sites, nil
}

// Script downloads a rendered script of a site: navtreedata.js or one of
// its navtreeindexN.js chunks.
func (c *Client) Script(ctx context.Context, siteID, file string) ([]byte, error) {
	u := c.baseURL + "/api/sites/" + url.PathEscape(siteID) + "/" + url.PathEscape(file)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", file, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: %w", file, statusError(resp))
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(req *http.Request, want int, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	msg := strings.TrimSpace(string(body))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
