package navtree

import (
	"errors"
	"strings"
)

// DefaultSyncOnMsg and DefaultSyncOffMsg are the captions a generated
// navigation script carries for the panel synchronisation toggle.
const (
	DefaultSyncOnMsg  = "click to disable panel synchronisation"
	DefaultSyncOffMsg = "click to enable panel synchronisation"
)

// ErrCycle is reported when a node is reachable from one of its own children.
var ErrCycle = errors.New("navtree: cyclic child reference")

// Document is a complete navigation script: the tree, the anchor index and
// the bytes around them that a regenerated file must reproduce.
type Document struct {
	Preamble   string // Verbatim text before the first statement (license comment)
	Tree       Tree
	Index      Index
	SyncOnMsg  string
	SyncOffMsg string
	Trailer    string // Verbatim text after the last statement
}

// NewDocument wraps a tree with the default synchronisation captions and an
// empty index.
func NewDocument(tree Tree) *Document {
	return &Document{Tree: tree, SyncOnMsg: DefaultSyncOnMsg, SyncOffMsg: DefaultSyncOffMsg}
}

// Tree is the ordered list of top-level navigation entries.
type Tree []*Node

// Node is one sidebar entry.
type Node struct {
	Label    string
	Link     string  // Target page, optionally with a #fragment
	Children []*Node // nil for a leaf; non-nil (possibly empty) for an inline list
	Ref      string  // Name of a deferred subtree script; exclusive with Children
}

// Kind classifies how a node's children are stored.
type Kind int

const (
	KindLeaf Kind = iota
	KindInline
	KindDeferred
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindDeferred:
		return "deferred"
	}
	return "leaf"
}

// Kind reports whether n is a leaf, carries inline children or defers them.
func (n *Node) Kind() Kind {
	switch {
	case n.Ref != "":
		return KindDeferred
	case n.Children != nil:
		return KindInline
	}
	return KindLeaf
}

// Page returns the link without its fragment.
func (n *Node) Page() string {
	return PageOf(n.Link)
}

// PageOf strips the #fragment from a link.
func PageOf(link string) string {
	if i := strings.IndexByte(link, '#'); i >= 0 {
		return link[:i]
	}
	return link
}

// Subtree is a deferred child list stored in its own script
// (`var <Name> = [ ... ];`).
type Subtree struct {
	Preamble string
	Name     string
	Indent   int // Spaces before a top-level entry
	Nodes    []*Node
	Trailer  string
}

// IndexChunk is one positional index script (`var NAVTREEINDEX<Number> = {...};`).
type IndexChunk struct {
	Preamble string
	Number   int
	Entries  []IndexEntry
	Trailer  string
}

// IndexEntry maps a URL to the child positions leading to it, counted from
// the children of the first top-level entry.
type IndexEntry struct {
	URL  string
	Path []int
}

// First returns the URL heading the chunk, or "" for an empty chunk.
func (c IndexChunk) First() string {
	if len(c.Entries) == 0 {
		return ""
	}
	return c.Entries[0].URL
}

// Lookup returns the position path stored for url.
func (c IndexChunk) Lookup(url string) ([]int, bool) {
	for _, e := range c.Entries {
		if e.URL == url {
			return e.Path, true
		}
	}
	return nil, false
}
