package importer

import (
	"io"
	"strings"

	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// MarkdownImporter handles Markdown files using goldmark. Headings become
// entries linking to <name>.html#<heading-id>. A document without headings
// is read as a summary: nested lists of links, one entry per item.
type MarkdownImporter struct{}

func (p *MarkdownImporter) Import(r io.Reader, filename string) (*navtree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID()))
	doc := md.Parser().Parse(text.NewReader(src))

	base := baseName(filename)
	page := base + ".html"
	o := newOutline(base, page)

	var lists []*ast.List
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			label := string(node.Text(src))
			link := page
			if id, ok := node.AttributeString("id"); ok {
				if b, ok := id.([]byte); ok && len(b) > 0 {
					link = page + "#" + string(b)
				}
			} else {
				link = o.anchor(page, label)
			}
			o.add(node.Level, label, link)
		case *ast.List:
			lists = append(lists, node)
		}
	}

	if len(o.root.Children) == 0 && len(lists) > 0 {
		o.root.Children = []*navtree.Node{}
		for _, l := range lists {
			o.root.Children = append(o.root.Children, listEntries(l, src)...)
		}
		return navtree.NewDocument(navtree.Tree{o.root}), nil
	}
	return o.document(), nil
}

// listEntries turns list items into nodes; a nested list becomes children.
func listEntries(list *ast.List, src []byte) []*navtree.Node {
	var nodes []*navtree.Node
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		n := &navtree.Node{}
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch block := c.(type) {
			case *ast.List:
				n.Children = append(n.Children, listEntries(block, src)...)
			default:
				if n.Label != "" {
					continue
				}
				if link := firstLink(block); link != nil {
					n.Label = strings.TrimSpace(string(link.Text(src)))
					n.Link = markdownTarget(string(link.Destination))
				} else {
					n.Label = strings.TrimSpace(string(block.Text(src)))
				}
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func firstLink(n ast.Node) *ast.Link {
	var found *ast.Link
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if l, ok := n.(*ast.Link); ok && entering {
			found = l
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

// markdownTarget points links at rendered pages: chapter.md#x -> chapter.html#x.
func markdownTarget(dest string) string {
	page, frag, hasFrag := strings.Cut(dest, "#")
	for _, ext := range []string{".md", ".markdown"} {
		if strings.HasSuffix(page, ext) {
			page = strings.TrimSuffix(page, ext) + ".html"
			break
		}
	}
	if hasFrag {
		return page + "#" + frag
	}
	return page
}
