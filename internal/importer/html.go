package importer

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnav/internal/navtree"
	"golang.org/x/net/html"
)

// HTMLImporter handles HTML pages. Headings become entries; a heading with
// an id (or one wrapping or directly preceded by a named anchor) links to
// that fragment, otherwise to the page itself.
type HTMLImporter struct{}

func (p *HTMLImporter) Import(r io.Reader, filename string) (*navtree.Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := path.Base(filepath.ToSlash(filename))
	title := baseName(filename)
	if t := findTitle(doc); t != "" {
		title = t
	}
	o := newOutline(title, page)

	// pendingAnchor is a named anchor seen directly before a heading.
	pendingAnchor := ""
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				pendingAnchor = ""
			}
			return
		case html.ElementNode:
			if level := headingLevel(n.Data); level > 0 {
				label := textContent(n)
				id := idOf(n)
				if id == "" {
					id = pendingAnchor
				}
				pendingAnchor = ""
				if label == "" {
					return
				}
				link := page
				if id != "" {
					link = page + "#" + id
				}
				o.add(level, label, link)
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				pendingAnchor = ""
				return
			case "a":
				// Doxygen-style <a name="x"></a> before a heading.
				if id := idOf(n); id != "" && n.FirstChild == nil {
					pendingAnchor = id
					return
				}
			}
			pendingAnchor = ""
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	body := findBody(doc)
	if body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return o.document(), nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// idOf returns the id or name attribute of n or of an anchor directly inside it.
func idOf(n *html.Node) string {
	for _, a := range n.Attr {
		if (a.Key == "id" || a.Key == "name") && a.Val != "" {
			return a.Val
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "a" {
			for _, a := range c.Attr {
				if (a.Key == "id" || a.Key == "name") && a.Val != "" {
					return a.Val
				}
			}
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
