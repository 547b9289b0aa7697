package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// DelimitedParser reads CSV or TSV exports.
type DelimitedParser struct {
	Comma rune
}

func NewTSVParser() *DelimitedParser { return &DelimitedParser{Comma: '\t'} }

func NewCSVParser() *DelimitedParser { return &DelimitedParser{Comma: ','} }

func (p *DelimitedParser) Parse(fileData []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(fileData, []byte("\xef\xbb\xbf"))))
	reader.Comma = p.Comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse file: %w", err)
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, record)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("file must contain a header and at least one data row")
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
