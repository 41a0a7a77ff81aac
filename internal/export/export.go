// Package export converts navigation documents to and from plain JSON and
// YAML, for editing trees by hand or feeding them to other tools.
package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"gopkg.in/yaml.v3"
)

// Format names a serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// FormatFor picks the format from a filename extension.
func FormatFor(filename string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// File is the serialized shape of a document.
type File struct {
	Tree       []*Node  `json:"tree" yaml:"tree"`
	Index      []string `json:"index,omitzero" yaml:"index,omitempty"`
	SyncOnMsg  string   `json:"sync_on_msg,omitzero" yaml:"sync_on_msg,omitempty"`
	SyncOffMsg string   `json:"sync_off_msg,omitzero" yaml:"sync_off_msg,omitempty"`
}

// Node is one serialized entry. A missing or null children field is a leaf;
// an empty list is an inline entry with no children.
type Node struct {
	Label    string   `json:"label" yaml:"label"`
	Link     string   `json:"link" yaml:"link"`
	Ref      string   `json:"ref,omitzero" yaml:"ref,omitempty"`
	Children *[]*Node `json:"children,omitzero" yaml:"children,omitempty"`
}

// FromDocument copies doc into its serialized shape.
func FromDocument(doc *navtree.Document) (*File, error) {
	f := &File{
		Index:      []string(doc.Index),
		SyncOnMsg:  doc.SyncOnMsg,
		SyncOffMsg: doc.SyncOffMsg,
	}
	onStack := make(map[*navtree.Node]bool)
	var convert func(n *navtree.Node) (*Node, error)
	convert = func(n *navtree.Node) (*Node, error) {
		if onStack[n] {
			return nil, fmt.Errorf("export %q: %w", n.Label, navtree.ErrCycle)
		}
		out := &Node{Label: n.Label, Link: n.Link, Ref: n.Ref}
		if n.Children != nil {
			onStack[n] = true
			kids := make([]*Node, 0, len(n.Children))
			for _, c := range n.Children {
				k, err := convert(c)
				if err != nil {
					return nil, err
				}
				kids = append(kids, k)
			}
			delete(onStack, n)
			out.Children = &kids
		}
		return out, nil
	}
	f.Tree = make([]*Node, 0, len(doc.Tree))
	for _, n := range doc.Tree {
		c, err := convert(n)
		if err != nil {
			return nil, err
		}
		f.Tree = append(f.Tree, c)
	}
	return f, nil
}

// Document rebuilds a navigation document. Missing sync captions fall back
// to the defaults.
func (f *File) Document() *navtree.Document {
	var convert func(n *Node) *navtree.Node
	convert = func(n *Node) *navtree.Node {
		out := &navtree.Node{Label: n.Label, Link: n.Link, Ref: n.Ref}
		if n.Children != nil {
			out.Children = make([]*navtree.Node, 0, len(*n.Children))
			for _, c := range *n.Children {
				if c != nil {
					out.Children = append(out.Children, convert(c))
				}
			}
		}
		return out
	}
	tree := make(navtree.Tree, 0, len(f.Tree))
	for _, n := range f.Tree {
		if n != nil {
			tree = append(tree, convert(n))
		}
	}
	doc := navtree.NewDocument(tree)
	if len(f.Index) > 0 {
		doc.Index = navtree.Index(f.Index)
	}
	if f.SyncOnMsg != "" {
		doc.SyncOnMsg = f.SyncOnMsg
	}
	if f.SyncOffMsg != "" {
		doc.SyncOffMsg = f.SyncOffMsg
	}
	return doc
}

// Marshal serializes doc in the given format.
func Marshal(doc *navtree.Document, format Format) ([]byte, error) {
	f, err := FromDocument(doc)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		out, err := json.Marshal(f, jsontext.WithIndent("  "))
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// Unmarshal parses data in the given format. Unknown JSON members are
// rejected so that typos in hand-edited files surface.
func Unmarshal(data []byte, format Format) (*navtree.Document, error) {
	var f File
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &f, json.RejectUnknownMembers(true)); err != nil {
			return nil, fmt.Errorf("unmarshal json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
	return f.Document(), nil
}
