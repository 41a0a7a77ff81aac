package importer

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/docnav/internal/navtree"
)

// Importer converts a source document into navigation data.
type Importer interface {
	Import(r io.Reader, filename string) (*navtree.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".js":       true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate importer for a filename.
func ForFile(filename string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".js":
		return &ScriptImporter{}, nil
	case ".json":
		return &JSONImporter{}, nil
	case ".yaml", ".yml":
		return &YAMLImporter{}, nil
	case ".txt":
		return &TextImporter{}, nil
	case ".md", ".markdown":
		return &MarkdownImporter{}, nil
	case ".csv":
		return &CSVImporter{}, nil
	case ".html", ".htm":
		return &HTMLImporter{}, nil
	case ".pdf":
		return &PDFImporter{}, nil
	case ".docx":
		return &DOCXImporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify turns a heading into a fragment identifier.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 64 {
		s = strings.TrimRight(s[:64], "-")
	}
	return s
}

// baseName strips the directory and extension from a filename.
func baseName(filename string) string {
	base := path.Base(filepath.ToSlash(filename))
	return strings.TrimSuffix(base, path.Ext(base))
}

// outline nests headings under a root using a level stack.
type outline struct {
	root  *navtree.Node
	stack []stackEntry
	slugs map[string]int
}

type stackEntry struct {
	node  *navtree.Node
	level int
}

func newOutline(title, link string) *outline {
	root := &navtree.Node{Label: title, Link: link}
	return &outline{
		root:  root,
		stack: []stackEntry{{node: root, level: 0}},
		slugs: make(map[string]int),
	}
}

// add places a heading of the given level (1 = top) under the nearest
// shallower heading.
func (o *outline) add(level int, label, link string) *navtree.Node {
	n := &navtree.Node{Label: label, Link: link}
	for len(o.stack) > 1 && o.stack[len(o.stack)-1].level >= level {
		o.stack = o.stack[:len(o.stack)-1]
	}
	parent := o.stack[len(o.stack)-1].node
	if parent.Children == nil {
		parent.Children = []*navtree.Node{}
	}
	parent.Children = append(parent.Children, n)
	o.stack = append(o.stack, stackEntry{node: n, level: level})
	return n
}

// addDepth places an entry at an explicit depth (0 = top level), refusing
// to skip levels.
func (o *outline) addDepth(depth int, label, link string) error {
	if depth < 0 {
		return fmt.Errorf("negative depth %d", depth)
	}
	level := depth + 1
	if top := o.stack[len(o.stack)-1].level; level > top+1 {
		return fmt.Errorf("depth jumps from %d to %d", top-1, depth)
	}
	o.add(level, label, link)
	return nil
}

// anchor returns page#slug(label), numbering repeated slugs.
func (o *outline) anchor(page, label string) string {
	slug := Slugify(label)
	if slug == "" {
		slug = "section"
	}
	if n := o.slugs[slug]; n > 0 {
		o.slugs[slug] = n + 1
		slug = fmt.Sprintf("%s-%d", slug, n)
	} else {
		o.slugs[slug] = 1
	}
	return page + "#" + slug
}

// entries returns everything added below the root as a forest.
func (o *outline) entries() *navtree.Document {
	return navtree.NewDocument(navtree.Tree(o.root.Children))
}

// document returns the outline as a single-entry tree. A lone top-level
// heading becomes the entry itself.
func (o *outline) document() *navtree.Document {
	root := o.root
	if len(root.Children) == 1 && root.Children[0].Children != nil {
		only := root.Children[0]
		root = &navtree.Node{Label: only.Label, Link: root.Link, Children: only.Children}
	}
	return navtree.NewDocument(navtree.Tree{root})
}
