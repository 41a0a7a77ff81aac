package navtree

import (
	"errors"
	"fmt"
	"slices"
)

// SkipChildren returned from a WalkFunc prunes the current node's children.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for each node in pre-order. path holds the node's
// position in every list from the top level down; ancestors excludes n.
type WalkFunc func(n *Node, path []int, ancestors []*Node) error

// Walk visits nodes in pre-order. A node reached again while it is still
// among its own ancestors stops the walk with an error wrapping ErrCycle.
// The path and ancestors slices are reused between calls.
func Walk(nodes []*Node, fn WalkFunc) error {
	w := walker{fn: fn, onStack: make(map[*Node]bool)}
	return w.walk(nodes)
}

type walker struct {
	fn        WalkFunc
	path      []int
	ancestors []*Node
	onStack   map[*Node]bool
}

func (w *walker) walk(nodes []*Node) error {
	for i, n := range nodes {
		if n == nil {
			continue
		}
		w.path = append(w.path, i)
		if w.onStack[n] {
			return fmt.Errorf("%w: %q at %v", ErrCycle, n.Label, w.path)
		}
		err := w.fn(n, w.path, w.ancestors)
		switch {
		case errors.Is(err, SkipChildren):
		case err != nil:
			return err
		case len(n.Children) > 0:
			w.onStack[n] = true
			w.ancestors = append(w.ancestors, n)
			err = w.walk(n.Children)
			w.ancestors = w.ancestors[:len(w.ancestors)-1]
			delete(w.onStack, n)
			if err != nil {
				return err
			}
		}
		w.path = w.path[:len(w.path)-1]
	}
	return nil
}

// Resolved reports whether no deferred subtrees remain.
func (t Tree) Resolved() bool {
	resolved := true
	_ = Walk(t, func(n *Node, _ []int, _ []*Node) error {
		if n.Ref != "" {
			resolved = false
			return errors.New("stop")
		}
		return nil
	})
	return resolved
}

// Pages lists the distinct link targets under the first top-level entry in
// order of first appearance. Each carries the position path of the LAST node
// linking to it in pre-order, so a container sharing its link with its first
// child resolves to the child, as the viewer expects.
func (t Tree) Pages() ([]IndexEntry, error) {
	if len(t) == 0 || t[0] == nil {
		return nil, nil
	}
	var entries []IndexEntry
	pos := make(map[string]int)
	add := func(link string, path []int) {
		if link == "" {
			return
		}
		p := slices.Clone(path)
		if p == nil {
			p = []int{}
		}
		if i, ok := pos[link]; ok {
			entries[i].Path = p
			return
		}
		pos[link] = len(entries)
		entries = append(entries, IndexEntry{URL: link, Path: p})
	}

	add(t[0].Link, nil)
	err := Walk(t[0].Children, func(n *Node, path []int, _ []*Node) error {
		add(n.Link, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// PathTo returns the position path for url. An exact link match wins; a URL
// whose fragment is unknown falls back to its page.
func (t Tree) PathTo(url string) ([]int, bool) {
	pages, err := t.Pages()
	if err != nil {
		return nil, false
	}
	for _, e := range pages {
		if e.URL == url {
			return e.Path, true
		}
	}
	page := PageOf(url)
	var fallback []int
	found := false
	for _, e := range pages {
		if e.URL == page {
			return e.Path, true
		}
		if !found && PageOf(e.URL) == page {
			fallback, found = e.Path, true
		}
	}
	return fallback, found
}

// NodeAt follows a position path from the first top-level entry.
func (t Tree) NodeAt(path []int) *Node {
	if len(t) == 0 {
		return nil
	}
	n := t[0]
	for _, i := range path {
		if n == nil || i < 0 || i >= len(n.Children) {
			return nil
		}
		n = n.Children[i]
	}
	return n
}

// Breadcrumb returns the chain of nodes from the first top-level entry down
// to the node for url, or nil when url is not in the tree.
func (t Tree) Breadcrumb(url string) []*Node {
	path, ok := t.PathTo(url)
	if !ok {
		return nil
	}
	crumbs := []*Node{t[0]}
	n := t[0]
	for _, i := range path {
		n = n.Children[i]
		crumbs = append(crumbs, n)
	}
	return crumbs
}

// Labels returns the labels of a breadcrumb.
func Labels(crumbs []*Node) []string {
	out := make([]string, 0, len(crumbs))
	for _, n := range crumbs {
		out = append(out, n.Label)
	}
	return out
}

// Count returns the number of nodes in the tree.
func (t Tree) Count() (int, error) {
	count := 0
	err := Walk(t, func(*Node, []int, []*Node) error {
		count++
		return nil
	})
	return count, err
}
