package navjs

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/dgallion1/docnav/internal/navtree"
)

const (
	treeIndent           = 2
	defaultSubtreeIndent = 4
)

// Encode writes doc in the generator's canonical layout. Decoding a
// generated script and encoding it again reproduces the input byte for byte.
func Encode(w io.Writer, doc *navtree.Document) error {
	e := &encoder{w: bufio.NewWriter(w)}
	e.raw(doc.Preamble)
	e.nodeList(VarTree, doc.Tree, treeIndent)

	e.raw("\nvar " + VarIndex + " =\n[\n")
	for i, a := range doc.Index {
		if i > 0 {
			e.raw(",\n")
		}
		e.quote(a)
	}
	if len(doc.Index) > 0 {
		e.raw("\n")
	}
	e.raw("];\n")

	if doc.SyncOnMsg != "" || doc.SyncOffMsg != "" {
		e.raw("\nvar " + VarSyncOnMsg + " = " + quoteSingle(doc.SyncOnMsg) + ";")
		e.raw("\nvar " + VarSyncOffMsg + " = " + quoteSingle(doc.SyncOffMsg) + ";")
	}
	e.raw(doc.Trailer)
	return e.flush()
}

// EncodeSubtree writes a deferred subtree script.
func EncodeSubtree(w io.Writer, st *navtree.Subtree) error {
	indent := st.Indent
	if indent <= 0 {
		indent = defaultSubtreeIndent
	}
	e := &encoder{w: bufio.NewWriter(w)}
	e.raw(st.Preamble)
	e.nodeList(st.Name, st.Nodes, indent)
	e.raw(st.Trailer)
	return e.flush()
}

// EncodeIndexChunk writes a navtreeindexN.js position table.
func EncodeIndexChunk(w io.Writer, c *navtree.IndexChunk) error {
	e := &encoder{w: bufio.NewWriter(w)}
	e.raw(c.Preamble)
	e.raw("var " + VarIndex + strconv.Itoa(c.Number) + " =\n{\n")
	for i, entry := range c.Entries {
		if i > 0 {
			e.raw(",\n")
		}
		e.quote(entry.URL)
		e.raw(":[")
		for j, p := range entry.Path {
			if j > 0 {
				e.raw(",")
			}
			e.raw(strconv.Itoa(p))
		}
		e.raw("]")
	}
	if len(c.Entries) > 0 {
		e.raw("\n")
	}
	e.raw("};\n")
	e.raw(c.Trailer)
	return e.flush()
}

// ChunkFileName is the script name the viewer requests for chunk n.
func ChunkFileName(n int) string {
	return fmt.Sprintf("navtreeindex%d.js", n)
}

// encoder keeps the first error and turns later writes into no-ops.
type encoder struct {
	w   *bufio.Writer
	buf []byte
	err error
}

func (e *encoder) raw(s string) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s)
}

func (e *encoder) quote(s string) {
	if e.err != nil {
		return
	}
	e.buf, e.err = jsontext.AppendQuote(e.buf[:0], s)
	if e.err != nil {
		e.err = fmt.Errorf("quote %q: %w", s, e.err)
		return
	}
	_, e.err = e.w.Write(e.buf)
}

func (e *encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

func (e *encoder) nodeList(name string, nodes []*navtree.Node, indent int) {
	e.raw("var " + name + " =\n[\n")
	e.nodes(nodes, indent, map[*navtree.Node]bool{})
	if len(nodes) > 0 {
		e.raw("\n")
	}
	e.raw("];\n")
}

func (e *encoder) nodes(nodes []*navtree.Node, indent int, onStack map[*navtree.Node]bool) {
	for i, n := range nodes {
		if i > 0 {
			e.raw(",\n")
		}
		e.node(n, indent, onStack)
	}
}

func (e *encoder) node(n *navtree.Node, indent int, onStack map[*navtree.Node]bool) {
	if e.err != nil {
		return
	}
	if onStack[n] {
		e.err = fmt.Errorf("encode %q: %w", n.Label, navtree.ErrCycle)
		return
	}
	pad := spaces(indent)
	e.raw(pad + "[ ")
	e.quote(n.Label)
	e.raw(", ")
	e.quote(n.Link)
	e.raw(", ")
	switch n.Kind() {
	case navtree.KindDeferred:
		e.quote(n.Ref)
		e.raw(" ]")
	case navtree.KindInline:
		if len(n.Children) == 0 {
			e.raw("[] ]")
			return
		}
		e.raw("[\n")
		onStack[n] = true
		e.nodes(n.Children, indent+treeIndent, onStack)
		delete(onStack, n)
		e.raw("\n" + pad + "] ]")
	default:
		e.raw("null ]")
	}
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
