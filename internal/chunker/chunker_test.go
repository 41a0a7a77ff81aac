package chunker

import (
	"fmt"
	"testing"

	"github.com/dgallion1/docnav/internal/navtree"
)

func wideTree(n int) navtree.Tree {
	root := &navtree.Node{Label: "Manual", Link: "index.html", Children: []*navtree.Node{}}
	for i := range n {
		root.Children = append(root.Children, &navtree.Node{
			Label: fmt.Sprintf("Register %03d", i),
			Link:  fmt.Sprintf("group__regs.html#ga%03d", i),
		})
	}
	return navtree.Tree{root}
}

func TestChunkIndex_SingleChunk(t *testing.T) {
	chunks, index, err := ChunkIndex(wideTree(10), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	// 10 anchors plus index.html.
	if len(chunks[0].Entries) != 11 {
		t.Errorf("expected 11 entries, got %d", len(chunks[0].Entries))
	}
	if len(index) != 1 || index[0] != "group__regs.html#ga000" {
		t.Errorf("unexpected index %v", index)
	}
}

func TestChunkIndex_SplitsAndSorts(t *testing.T) {
	chunks, index, err := ChunkIndex(wideTree(25), Config{ChunkSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(index) != len(chunks) {
		t.Fatalf("index has %d entries for %d chunks", len(index), len(chunks))
	}
	for i, c := range chunks {
		if c.Number != i {
			t.Errorf("chunk %d: expected number %d, got %d", i, i, c.Number)
		}
		if c.First() != index[i] {
			t.Errorf("chunk %d: head %q does not match index %q", i, c.First(), index[i])
		}
	}
	if !index.Sorted() {
		t.Errorf("index not sorted: %v", index)
	}

	last := chunks[2]
	if got := last.Entries[len(last.Entries)-1].URL; got != "index.html" {
		t.Errorf("expected index.html to sort last, got %q", got)
	}
}

func TestChunkIndex_RejectsDeferred(t *testing.T) {
	tree := navtree.Tree{{Label: "Manual", Link: "index.html", Children: []*navtree.Node{
		{Label: "Modules", Link: "modules.html", Ref: "modules"},
	}}}
	if _, _, err := ChunkIndex(tree, DefaultConfig()); err == nil {
		t.Fatal("expected error for unresolved tree")
	}
}

func TestRebuildAndLookup(t *testing.T) {
	doc := navtree.NewDocument(wideTree(30))
	chunks, err := Rebuild(doc, Config{ChunkSize: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issues := navtree.Validate(doc, navtree.Options{ChunkSize: 7}); len(issues) != 0 {
		t.Fatalf("rebuilt document should validate, got %v", issues)
	}

	path, ok := Lookup(doc.Index, chunks, "group__regs.html#ga017")
	if !ok {
		t.Fatal("expected to find ga017")
	}
	if len(path) != 1 || path[0] != 17 {
		t.Errorf("expected path [17], got %v", path)
	}

	path, ok = Lookup(doc.Index, chunks, "index.html")
	if !ok || len(path) != 0 {
		t.Errorf("expected empty path for root, got %v %v", path, ok)
	}

	if _, ok := Lookup(doc.Index, chunks, "missing.html"); ok {
		t.Error("expected missing.html to be absent")
	}
}

func TestChunkIndex_EmptyTree(t *testing.T) {
	chunks, index, err := ChunkIndex(nil, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 || len(index) != 0 {
		t.Errorf("expected nothing for an empty tree, got %d chunks, %v", len(chunks), index)
	}
}
