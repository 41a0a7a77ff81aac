// Package navjs reads and writes the generated scripts a documentation viewer
// loads for its navigation sidebar: navtreedata.js, deferred subtree scripts
// and the navtreeindexN.js position tables.
package navjs

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/dgallion1/docnav/internal/navtree"
)

// Variable names of a navigation data script.
const (
	VarTree       = "NAVTREE"
	VarIndex      = "NAVTREEINDEX"
	VarSyncOnMsg  = "SYNCONMSG"
	VarSyncOffMsg = "SYNCOFFMSG"
)

// Decode reads a navigation data script.
func Decode(r io.Reader) (*navtree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := split(src)
	if err != nil {
		return nil, err
	}

	doc := &navtree.Document{Preamble: s.preamble, Trailer: s.trailer}
	seen := make(map[string]bool, len(s.stmts))
	for _, st := range s.stmts {
		if seen[st.name] {
			return nil, &SyntaxError{Offset: st.offset, Msg: "duplicate var " + st.name}
		}
		seen[st.name] = true
		switch st.name {
		case VarTree:
			if st.raw == nil {
				return nil, &SyntaxError{Offset: st.offset, Msg: "NAVTREE must be an array"}
			}
			nodes, err := decodeNodes(st.raw, st.offset)
			if err != nil {
				return nil, err
			}
			doc.Tree = nodes
		case VarIndex:
			var idx []string
			if st.raw == nil {
				return nil, &SyntaxError{Offset: st.offset, Msg: "NAVTREEINDEX must be an array"}
			}
			if err := json.Unmarshal(st.raw, &idx); err != nil {
				return nil, &SyntaxError{Offset: st.offset, Msg: "bad NAVTREEINDEX", Err: err}
			}
			doc.Index = idx
		case VarSyncOnMsg:
			doc.SyncOnMsg, err = stringValue(st)
		case VarSyncOffMsg:
			doc.SyncOffMsg, err = stringValue(st)
		default:
			return nil, fmt.Errorf("%w %q at offset %d", ErrUnknownVar, st.name, st.offset)
		}
		if err != nil {
			return nil, err
		}
	}
	if !seen[VarTree] {
		return nil, &SyntaxError{Msg: "script has no NAVTREE"}
	}
	return doc, nil
}

// DecodeSubtree reads a deferred subtree script (`var name = [...];`).
func DecodeSubtree(r io.Reader) (*navtree.Subtree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read subtree: %w", err)
	}
	s, err := split(src)
	if err != nil {
		return nil, err
	}
	if len(s.stmts) != 1 {
		return nil, &SyntaxError{Msg: fmt.Sprintf("subtree script has %d statements, want 1", len(s.stmts))}
	}
	st := s.stmts[0]
	if st.raw == nil {
		return nil, &SyntaxError{Offset: st.offset, Msg: st.name + " must be an array"}
	}
	nodes, err := decodeNodes(st.raw, st.offset)
	if err != nil {
		return nil, err
	}
	return &navtree.Subtree{
		Preamble: s.preamble,
		Name:     st.name,
		Indent:   detectIndent(st.raw),
		Nodes:    nodes,
		Trailer:  s.trailer,
	}, nil
}

// DecodeIndexChunk reads a navtreeindexN.js position table.
func DecodeIndexChunk(r io.Reader) (*navtree.IndexChunk, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read index chunk: %w", err)
	}
	s, err := split(src)
	if err != nil {
		return nil, err
	}
	if len(s.stmts) != 1 {
		return nil, &SyntaxError{Msg: fmt.Sprintf("index chunk has %d statements, want 1", len(s.stmts))}
	}
	st := s.stmts[0]
	num, ok := strings.CutPrefix(st.name, VarIndex)
	n, err := strconv.Atoi(num)
	if !ok || err != nil || n < 0 {
		return nil, fmt.Errorf("%w %q at offset %d", ErrUnknownVar, st.name, st.offset)
	}
	if st.raw == nil {
		return nil, &SyntaxError{Offset: st.offset, Msg: st.name + " must be an object"}
	}

	chunk := &navtree.IndexChunk{Preamble: s.preamble, Number: n, Trailer: s.trailer}
	dec := jsontext.NewDecoder(bytes.NewReader(st.raw))
	fail := func(msg string, err error) error {
		return &SyntaxError{Offset: st.offset + dec.InputOffset(), Msg: msg, Err: err}
	}
	if tok, err := dec.ReadToken(); err != nil || tok.Kind() != '{' {
		return nil, fail("expected object", err)
	}
	for dec.PeekKind() == '"' {
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, fail("bad key", err)
		}
		var path []int
		if err := json.UnmarshalDecode(dec, &path); err != nil {
			return nil, fail("bad position path for "+tok.String(), err)
		}
		if path == nil {
			path = []int{}
		}
		chunk.Entries = append(chunk.Entries, navtree.IndexEntry{URL: tok.String(), Path: path})
	}
	if tok, err := dec.ReadToken(); err != nil || tok.Kind() != '}' {
		return nil, fail("expected end of object", err)
	}
	return chunk, nil
}

func stringValue(st statement) (string, error) {
	if st.raw == nil {
		return st.str, nil
	}
	var s string
	if err := json.Unmarshal(st.raw, &s); err != nil {
		return "", &SyntaxError{Offset: st.offset, Msg: st.name + " must be a string", Err: err}
	}
	return s, nil
}

// decodeNodes parses an entry list: [ [label, link, children], ... ].
func decodeNodes(raw []byte, base int64) ([]*navtree.Node, error) {
	d := &nodeDecoder{dec: jsontext.NewDecoder(bytes.NewReader(raw)), base: base}
	return d.list()
}

type nodeDecoder struct {
	dec  *jsontext.Decoder
	base int64
}

func (d *nodeDecoder) fail(msg string, err error) error {
	return &SyntaxError{Offset: d.base + d.dec.InputOffset(), Msg: msg, Err: err}
}

func (d *nodeDecoder) expect(kind jsontext.Kind) error {
	tok, err := d.dec.ReadToken()
	if err != nil {
		return d.fail(fmt.Sprintf("expected %q", kind), err)
	}
	if tok.Kind() != kind {
		return d.fail(fmt.Sprintf("expected %q, got %q", kind, tok.Kind()), nil)
	}
	return nil
}

func (d *nodeDecoder) str(what string) (string, error) {
	tok, err := d.dec.ReadToken()
	if err != nil {
		return "", d.fail("expected "+what, err)
	}
	if tok.Kind() != '"' {
		return "", d.fail(fmt.Sprintf("expected %s string, got %q", what, tok.Kind()), nil)
	}
	return tok.String(), nil
}

func (d *nodeDecoder) list() ([]*navtree.Node, error) {
	if err := d.expect('['); err != nil {
		return nil, err
	}
	nodes := []*navtree.Node{}
	for {
		switch d.dec.PeekKind() {
		case ']':
			if err := d.expect(']'); err != nil {
				return nil, err
			}
			return nodes, nil
		case '[':
			n, err := d.node()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		default:
			_, err := d.dec.ReadToken()
			return nil, d.fail("expected entry", err)
		}
	}
}

func (d *nodeDecoder) node() (*navtree.Node, error) {
	if err := d.expect('['); err != nil {
		return nil, err
	}
	label, err := d.str("label")
	if err != nil {
		return nil, err
	}
	link, err := d.str("link")
	if err != nil {
		return nil, err
	}
	n := &navtree.Node{Label: label, Link: link}

	switch d.dec.PeekKind() {
	case 'n':
		if _, err := d.dec.ReadToken(); err != nil {
			return nil, d.fail("bad null", err)
		}
	case '"':
		if n.Ref, err = d.str("subtree name"); err != nil {
			return nil, err
		}
	case '[':
		if n.Children, err = d.list(); err != nil {
			return nil, err
		}
	default:
		_, err := d.dec.ReadToken()
		return nil, d.fail(fmt.Sprintf("entry %q: expected children, subtree name or null", label), err)
	}

	if err := d.expect(']'); err != nil {
		return nil, err
	}
	return n, nil
}

// detectIndent counts the spaces before the first entry of an array value.
func detectIndent(raw []byte) int {
	i := bytes.IndexByte(raw, '\n')
	if i < 0 {
		return defaultSubtreeIndent
	}
	n := 0
	for _, c := range raw[i+1:] {
		if c != ' ' {
			break
		}
		n++
	}
	if n == 0 {
		return defaultSubtreeIndent
	}
	return n
}
