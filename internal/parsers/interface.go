package parsers

import "strings"

// Parser turns an uploaded spreadsheet into a header plus data rows.
type Parser interface {
	Parse(fileData []byte) (*Table, error)
}

type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the first header matching one of names
// (case, spaces and underscores ignored), or -1.
func (t *Table) Column(names ...string) int {
	for i, h := range t.Header {
		norm := normalizeHeader(h)
		for _, n := range names {
			if norm == normalizeHeader(n) {
				return i
			}
		}
	}
	return -1
}

// Cell returns row[idx] trimmed, or "" when idx is out of range.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	return strings.ReplaceAll(h, "_", "")
}
