package navtree

import "sort"

// Index is the ordered list of anchors heading each positional index chunk.
type Index []string

// Locate returns the chunk that would hold url: the last entry not greater
// than url, or 0 when url sorts before every entry.
func (idx Index) Locate(url string) int {
	i := sort.Search(len(idx), func(i int) bool { return idx[i] > url })
	if i == 0 {
		return 0
	}
	return i - 1
}

// Sorted reports whether entries are strictly ascending.
func (idx Index) Sorted() bool {
	for i := 1; i < len(idx); i++ {
		if idx[i-1] >= idx[i] {
			return false
		}
	}
	return true
}
