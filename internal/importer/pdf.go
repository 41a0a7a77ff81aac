package importer

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnav/internal/navtree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFImporter reads a PDF's outline (bookmarks). Each bookmark links to a
// named destination slug on the PDF itself.
type PDFImporter struct{}

func (p *PDFImporter) Import(r io.Reader, filename string) (*navtree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	page := path.Base(filepath.ToSlash(filename))
	outline := reader.Outline()
	title := strings.TrimSpace(outline.Title)
	if title == "" {
		title = baseName(filename)
	}
	o := newOutline(title, page)
	addBookmarks(o, outline.Child, 1, page)
	return o.document(), nil
}

func addBookmarks(o *outline, entries []pdflib.Outline, level int, page string) {
	for _, e := range entries {
		label := strings.TrimSpace(e.Title)
		if label == "" {
			addBookmarks(o, e.Child, level, page)
			continue
		}
		o.add(level, label, o.anchor(page, label))
		addBookmarks(o, e.Child, level+1, page)
	}
}
