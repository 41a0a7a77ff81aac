package navjs

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-json-experiment/json/jsontext"
)

// ErrUnknownVar is returned for a statement naming a variable the decoder
// does not expect in the script being read.
var ErrUnknownVar = errors.New("navjs: unknown variable")

// SyntaxError reports malformed script text at a byte offset.
type SyntaxError struct {
	Offset int64
	Msg    string
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("navjs: offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("navjs: offset %d: %s", e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// statement is one `var NAME = VALUE;` of a generated script.
type statement struct {
	name   string
	offset int64  // Offset of the value
	raw    []byte // JSON value text, nil for single-quoted strings
	str    string // Decoded single-quoted string
}

// script holds the statements of a file plus the verbatim text around them.
type script struct {
	preamble string
	stmts    []statement
	trailer  string
}

func syntaxErr(off int, format string, args ...any) error {
	return &SyntaxError{Offset: int64(off), Msg: fmt.Sprintf(format, args...)}
}

// split breaks generated script text into its var statements. Whitespace
// and comments between statements are not kept; the text before the first
// statement and after the last one is.
func split(src []byte) (*script, error) {
	s := &script{}
	pos := skipSpaceAndComments(src, 0)
	first := -1
	end := 0
	for pos < len(src) {
		if !bytes.HasPrefix(src[pos:], []byte("var")) {
			return nil, syntaxErr(pos, "expected var statement")
		}
		if first < 0 {
			first = pos
		}
		p := pos + len("var")
		if p >= len(src) || !isSpace(src[p]) {
			return nil, syntaxErr(p, "expected space after var")
		}
		p = skipSpace(src, p)
		nameStart := p
		for p < len(src) && isIdentByte(src[p]) {
			p++
		}
		if p == nameStart {
			return nil, syntaxErr(p, "expected variable name")
		}
		st := statement{name: string(src[nameStart:p])}
		p = skipSpace(src, p)
		if p >= len(src) || src[p] != '=' {
			return nil, syntaxErr(p, "expected '=' after %s", st.name)
		}
		p = skipSpace(src, p+1)
		if p >= len(src) {
			return nil, syntaxErr(p, "missing value for %s", st.name)
		}
		st.offset = int64(p)

		switch src[p] {
		case '\'':
			str, n, err := unquoteSingle(src[p:])
			if err != nil {
				return nil, &SyntaxError{Offset: int64(p), Msg: "bad string for " + st.name, Err: err}
			}
			st.str = str
			p += n
		default:
			dec := jsontext.NewDecoder(bytes.NewReader(src[p:]))
			v, err := dec.ReadValue()
			if err != nil {
				return nil, &SyntaxError{Offset: int64(p) + dec.InputOffset(), Msg: "bad value for " + st.name, Err: err}
			}
			st.raw = bytes.Clone(v)
			p += int(dec.InputOffset())
		}

		p = skipSpace(src, p)
		if p >= len(src) || src[p] != ';' {
			return nil, syntaxErr(p, "expected ';' after %s", st.name)
		}
		p++
		end = p
		s.stmts = append(s.stmts, st)
		pos = skipSpaceAndComments(src, p)
	}
	if first < 0 {
		return nil, syntaxErr(0, "no var statements")
	}
	s.preamble = string(src[:first])
	s.trailer = string(src[end:])
	return s, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func skipSpace(src []byte, p int) int {
	for p < len(src) && isSpace(src[p]) {
		p++
	}
	return p
}

func skipSpaceAndComments(src []byte, p int) int {
	for {
		p = skipSpace(src, p)
		switch {
		case bytes.HasPrefix(src[p:], []byte("/*")):
			end := bytes.Index(src[p+2:], []byte("*/"))
			if end < 0 {
				return len(src)
			}
			p += 2 + end + 2
		case bytes.HasPrefix(src[p:], []byte("//")):
			end := bytes.IndexByte(src[p:], '\n')
			if end < 0 {
				return len(src)
			}
			p += end + 1
		default:
			return p
		}
	}
}

// unquoteSingle decodes a single-quoted script string at the start of src
// and returns it with the number of bytes consumed.
func unquoteSingle(src []byte) (string, int, error) {
	var sb strings.Builder
	for i := 1; i < len(src); i++ {
		switch c := src[i]; c {
		case '\'':
			return sb.String(), i + 1, nil
		case '\n':
			return "", 0, errors.New("unterminated string")
		case '\\':
			i++
			if i >= len(src) {
				return "", 0, errors.New("unterminated escape")
			}
			switch e := src[i]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(e)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", 0, errors.New("unterminated string")
}

// quoteSingle is the inverse of unquoteSingle.
func quoteSingle(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\'', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
