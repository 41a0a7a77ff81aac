// Package sitestore keeps published navigation sites in memory and caches
// their rendered scripts.
package sitestore

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dgallion1/docnav/internal/navjs"
	"github.com/dgallion1/docnav/internal/navtree"
)

// ErrNotFound is returned for unknown site IDs and chunk numbers.
var ErrNotFound = errors.New("sitestore: not found")

// Site is one published documentation navigation. Its document and chunks
// are never modified after Put.
type Site struct {
	ID          string
	Name        string
	Document    *navtree.Document
	Chunks      []navtree.IndexChunk
	Issues      []navtree.Issue
	ContentHash string
	UpdatedAt   time.Time
}

// Summary is the listing view of a site.
type Summary struct {
	ID          string    `json:"site_id"`
	Name        string    `json:"name"`
	Pages       int       `json:"pages"`
	Chunks      int       `json:"chunks"`
	Errors      int       `json:"errors"`
	Warnings    int       `json:"warnings"`
	ContentHash string    `json:"content_hash"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary counts the site's pages and issues.
func (s *Site) Summary() Summary {
	out := Summary{
		ID:          s.ID,
		Name:        s.Name,
		Chunks:      len(s.Chunks),
		ContentHash: s.ContentHash,
		UpdatedAt:   s.UpdatedAt,
	}
	for _, c := range s.Chunks {
		out.Pages += len(c.Entries)
	}
	for _, is := range s.Issues {
		if is.Severity == navtree.SeverityError {
			out.Errors++
		} else {
			out.Warnings++
		}
	}
	return out
}

// Store is a thread-safe site registry.
type Store struct {
	mu     sync.RWMutex
	sites  map[string]*Site
	byName map[string]string

	renderMu sync.Mutex
	rendered map[string][]byte // "<id>/<file>@<hash>" -> script
	group    singleflight.Group
	logger   *slog.Logger
}

func New() *Store {
	return &Store{
		sites:    make(map[string]*Site),
		byName:   make(map[string]string),
		rendered: make(map[string][]byte),
		logger:   slog.Default().With("component", "sitestore"),
	}
}

// Put publishes a site. A site with the same name is replaced and keeps its
// ID; the ID actually stored is returned.
func (s *Store) Put(site *Site) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byName[site.Name]; ok && site.Name != "" && id != site.ID {
		site.ID = id
	}
	if site.UpdatedAt.IsZero() {
		site.UpdatedAt = time.Now()
	}
	s.sites[site.ID] = site
	if site.Name != "" {
		s.byName[site.Name] = site.ID
	}
	s.dropRendered(site.ID)
	return site.ID
}

func (s *Store) Get(id string) (*Site, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[id]
	return site, ok
}

// ByName returns the site published under name.
func (s *Store) ByName(name string) (*Site, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.sites[id], true
}

// ByHash returns a site built from identical source bytes.
func (s *Store) ByHash(hash string) (*Site, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, site := range s.sites {
		if site.ContentHash == hash {
			return site, true
		}
	}
	return nil, false
}

// List returns all sites ordered by name.
func (s *Store) List() []*Site {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Site, 0, len(s.sites))
	for _, site := range s.sites {
		out = append(out, site)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[id]
	if !ok {
		return false
	}
	delete(s.sites, id)
	if s.byName[site.Name] == id {
		delete(s.byName, site.Name)
	}
	s.dropRendered(id)
	return true
}

// Script renders the site's navtreedata.js.
func (s *Store) Script(id string) ([]byte, error) {
	site, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s.render(site, "navtreedata.js", func(buf *bytes.Buffer) error {
		return navjs.Encode(buf, site.Document)
	})
}

// IndexScript renders navtreeindex<n>.js.
func (s *Store) IndexScript(id string, n int) ([]byte, error) {
	site, ok := s.Get(id)
	if !ok || n < 0 || n >= len(site.Chunks) {
		return nil, ErrNotFound
	}
	return s.render(site, navjs.ChunkFileName(n), func(buf *bytes.Buffer) error {
		return navjs.EncodeIndexChunk(buf, &site.Chunks[n])
	})
}

func (s *Store) render(site *Site, file string, encode func(*bytes.Buffer) error) ([]byte, error) {
	key := fmt.Sprintf("%s/%s@%s", site.ID, file, site.ContentHash)
	if out, ok := s.cached(key); ok {
		return out, nil
	}
	val, err, _ := s.group.Do(key, func() (interface{}, error) {
		if out, ok := s.cached(key); ok {
			return out, nil
		}
		var buf bytes.Buffer
		if err := encode(&buf); err != nil {
			return nil, fmt.Errorf("render %s: %w", file, err)
		}
		out := buf.Bytes()
		s.renderMu.Lock()
		s.rendered[key] = out
		s.renderMu.Unlock()
		s.logger.Debug("rendered script", "site_id", site.ID, "file", file, "bytes", len(out))
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]byte), nil
}

func (s *Store) cached(key string) ([]byte, bool) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	out, ok := s.rendered[key]
	return out, ok
}

// dropRendered forgets cached scripts of a site. Callers hold s.mu.
func (s *Store) dropRendered(id string) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	prefix := id + "/"
	for key := range s.rendered {
		if strings.HasPrefix(key, prefix) {
			delete(s.rendered, key)
		}
	}
}
