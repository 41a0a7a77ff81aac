package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docnav/internal/navtree"
)

// CSVImporter reads `depth,label,link` rows. Depth 0 is a top-level entry
// and each row nests under the closest preceding row one level up. A first
// row of column names is skipped.
type CSVImporter struct{}

func (p *CSVImporter) Import(r io.Reader, filename string) (*navtree.Document, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	o := newOutline("", "")
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if row == 0 && isCSVHeader(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		if len(record) != 3 {
			return nil, fmt.Errorf("parse csv: line %d: expected depth,label,link, got %d fields", line, len(record))
		}
		depth, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("parse csv: line %d: depth: %w", line, err)
		}
		if err := o.addDepth(depth, strings.TrimSpace(record[1]), strings.TrimSpace(record[2])); err != nil {
			return nil, fmt.Errorf("parse csv: line %d: %w", line, err)
		}
	}
	return o.entries(), nil
}

func isCSVHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "depth")
}
