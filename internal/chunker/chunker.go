package chunker

import (
	"fmt"

	"github.com/dgallion1/docnav/internal/navtree"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize int // URLs per navtreeindexN.js script.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{ChunkSize: navtree.DefaultChunkSize}
}

// ChunkIndex sorts every page of a resolved tree by URL and splits the
// position table into chunks. The returned index holds the first URL of each
// chunk, which is what the viewer searches to pick a chunk script.
func ChunkIndex(tree navtree.Tree, cfg Config) ([]navtree.IndexChunk, navtree.Index, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = navtree.DefaultChunkSize
	}
	if !tree.Resolved() {
		return nil, nil, fmt.Errorf("chunk index: tree has deferred subtrees")
	}

	pages, err := tree.Pages()
	if err != nil {
		return nil, nil, fmt.Errorf("chunk index: %w", err)
	}
	navtree.SortEntries(pages)

	var chunks []navtree.IndexChunk
	var index navtree.Index
	for i := 0; i < len(pages); i += cfg.ChunkSize {
		end := min(i+cfg.ChunkSize, len(pages))
		chunks = append(chunks, navtree.IndexChunk{
			Number:  len(chunks),
			Entries: pages[i:end:end],
		})
		index = append(index, pages[i].URL)
	}
	return chunks, index, nil
}

// Rebuild recomputes doc.Index from its tree and returns the chunks.
func Rebuild(doc *navtree.Document, cfg Config) ([]navtree.IndexChunk, error) {
	chunks, index, err := ChunkIndex(doc.Tree, cfg)
	if err != nil {
		return nil, err
	}
	doc.Index = index
	return chunks, nil
}

// Lookup finds the position path for url by locating its chunk the same way
// the viewer does.
func Lookup(index navtree.Index, chunks []navtree.IndexChunk, url string) ([]int, bool) {
	n := index.Locate(url)
	if n >= len(chunks) {
		return nil, false
	}
	return chunks[n].Lookup(url)
}
