package importer

import (
	"fmt"
	"io"

	"github.com/dgallion1/docnav/internal/export"
	"github.com/dgallion1/docnav/internal/navjs"
	"github.com/dgallion1/docnav/internal/navtree"
)

// ScriptImporter reads an existing navtreedata.js.
type ScriptImporter struct{}

func (p *ScriptImporter) Import(r io.Reader, filename string) (*navtree.Document, error) {
	doc, err := navjs.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return doc, nil
}

// JSONImporter reads the JSON export format.
type JSONImporter struct{}

func (p *JSONImporter) Import(r io.Reader, filename string) (*navtree.Document, error) {
	return importExport(r, filename, export.FormatJSON)
}

// YAMLImporter reads the YAML export format.
type YAMLImporter struct{}

func (p *YAMLImporter) Import(r io.Reader, filename string) (*navtree.Document, error) {
	return importExport(r, filename, export.FormatYAML)
}

func importExport(r io.Reader, filename string, format export.Format) (*navtree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc, err := export.Unmarshal(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return doc, nil
}
