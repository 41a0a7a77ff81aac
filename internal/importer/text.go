package importer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnav/internal/navtree"
)

// TextImporter reads an indented outline, one `label | link` entry per line.
// Two spaces (or one tab) make one level; blank lines and lines starting
// with '#' are ignored.
type TextImporter struct{}

func (p *TextImporter) Import(r io.Reader, filename string) (*navtree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	o := newOutline("", "")
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		depth, err := indentDepth(line[:len(line)-len(trimmed)])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, lineNo, err)
		}
		label, link, ok := strings.Cut(trimmed, "|")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected \"label | link\"", filename, lineNo)
		}
		if err := o.addDepth(depth, strings.TrimSpace(label), strings.TrimSpace(link)); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return o.entries(), nil
}

func indentDepth(indent string) (int, error) {
	spaces := 0
	depth := 0
	for _, c := range indent {
		if c == '\t' {
			depth++
			continue
		}
		spaces++
	}
	if spaces%2 != 0 {
		return 0, fmt.Errorf("indent of %d spaces is not a multiple of 2", spaces)
	}
	return depth + spaces/2, nil
}
