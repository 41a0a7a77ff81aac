package navtree

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode"
)

// DefaultChunkSize is the number of URLs per positional index chunk.
const DefaultChunkSize = 250

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes.
const (
	CodeCycle          = "cycle"
	CodeEmptyLabel     = "empty-label"
	CodeEmptyLink      = "empty-link"
	CodeInvalidLink    = "invalid-link"
	CodeInvalidRef     = "invalid-ref"
	CodeEmptyAnchor    = "empty-anchor"
	CodeInvalidAnchor  = "invalid-anchor"
	CodeIndexOrder     = "index-order"
	CodeIndexLength    = "index-length"
	CodeIndexMismatch  = "index-mismatch"
	CodeUnresolved     = "unresolved"
	CodeDanglingPage   = "dangling-page"
	CodeDanglingAnchor = "dangling-anchor"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s %s: %s", i.Severity, i.Code, i.Path, i.Message)
}

// Options tunes Validate.
type Options struct {
	ChunkSize int // URLs per index chunk; DefaultChunkSize when <= 0
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of a document. It never fails;
// every problem is returned as an Issue.
func Validate(doc *Document, opts Options) []Issue {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	var issues []Issue
	issues = append(issues, validateTree(doc.Tree)...)
	issues = append(issues, validateIndex(doc.Index)...)
	issues = append(issues, validateConsistency(doc, opts.ChunkSize)...)
	return issues
}

// TreePath renders a position path as NAVTREE[i][j]...
func TreePath(path []int) string {
	var sb strings.Builder
	sb.WriteString("NAVTREE")
	for _, i := range path {
		fmt.Fprintf(&sb, "[%d]", i)
	}
	return sb.String()
}

func validateTree(t Tree) []Issue {
	var issues []Issue
	err := Walk(t, func(n *Node, path []int, _ []*Node) error {
		p := TreePath(path)
		if strings.TrimSpace(n.Label) == "" {
			issues = append(issues, Issue{SeverityWarning, CodeEmptyLabel, p, "node has no label"})
		}
		if n.Link == "" {
			issues = append(issues, Issue{SeverityWarning, CodeEmptyLink, p, fmt.Sprintf("%q has no link", n.Label)})
		} else if msg := checkReference(n.Link); msg != "" {
			issues = append(issues, Issue{SeverityError, CodeInvalidLink, p, fmt.Sprintf("%q: %s", n.Link, msg)})
		}
		if n.Ref != "" && !isIdentifier(n.Ref) {
			issues = append(issues, Issue{SeverityError, CodeInvalidRef, p, fmt.Sprintf("subtree name %q is not a script identifier", n.Ref)})
		}
		return nil
	})
	if errors.Is(err, ErrCycle) {
		issues = append(issues, Issue{SeverityError, CodeCycle, "NAVTREE", err.Error()})
	}
	return issues
}

func validateIndex(idx Index) []Issue {
	var issues []Issue
	for i, a := range idx {
		p := fmt.Sprintf("NAVTREEINDEX[%d]", i)
		if a == "" {
			issues = append(issues, Issue{SeverityError, CodeEmptyAnchor, p, "empty anchor"})
			continue
		}
		if msg := checkReference(a); msg != "" {
			issues = append(issues, Issue{SeverityError, CodeInvalidAnchor, p, fmt.Sprintf("%q: %s", a, msg)})
		}
		if i > 0 && idx[i-1] >= a {
			issues = append(issues, Issue{SeverityError, CodeIndexOrder, p,
				fmt.Sprintf("%q does not sort after %q", a, idx[i-1])})
		}
	}
	return issues
}

func validateConsistency(doc *Document, chunkSize int) []Issue {
	if len(doc.Tree) == 0 {
		return nil
	}
	if !doc.Tree.Resolved() {
		return []Issue{{SeverityWarning, CodeUnresolved, "NAVTREE",
			"deferred subtrees are not loaded; index consistency not checked"}}
	}
	pages, err := doc.Tree.Pages()
	if err != nil {
		// Reported by validateTree.
		return nil
	}
	heads := ChunkHeads(pages, chunkSize)
	if len(heads) != len(doc.Index) {
		return []Issue{{SeverityError, CodeIndexLength, "NAVTREEINDEX",
			fmt.Sprintf("index has %d entries, %d pages need %d chunks of %d", len(doc.Index), len(pages), len(heads), chunkSize)}}
	}
	var issues []Issue
	for i := range heads {
		if heads[i] != doc.Index[i] {
			issues = append(issues, Issue{SeverityError, CodeIndexMismatch, fmt.Sprintf("NAVTREEINDEX[%d]", i),
				fmt.Sprintf("expected chunk head %q, got %q", heads[i], doc.Index[i])})
		}
	}
	return issues
}

// SortEntries orders index entries by URL, byte-wise.
func SortEntries(entries []IndexEntry) {
	slices.SortFunc(entries, func(a, b IndexEntry) int { return strings.Compare(a.URL, b.URL) })
}

// ChunkHeads returns the first URL of every chunk the entries split into.
func ChunkHeads(entries []IndexEntry, chunkSize int) Index {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	sorted := slices.Clone(entries)
	SortEntries(sorted)
	var heads Index
	for i := 0; i < len(sorted); i += chunkSize {
		heads = append(heads, sorted[i].URL)
	}
	return heads
}

// checkReference returns "" when ref is a usable page or fragment reference.
func checkReference(ref string) string {
	for _, r := range ref {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "contains whitespace or control characters"
		}
	}
	u, err := url.Parse(ref)
	if err != nil {
		return err.Error()
	}
	if strings.HasSuffix(ref, "#") {
		return "empty fragment"
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "mailto" {
		return fmt.Sprintf("unsupported scheme %q", u.Scheme)
	}
	return ""
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return s != ""
}

// IsExternal reports whether link points outside the documentation set.
func IsExternal(link string) bool {
	u, err := url.Parse(link)
	return err == nil && u.Scheme != ""
}
