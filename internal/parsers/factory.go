package parsers

import (
	"fmt"
	"strings"
)

// GetParser picks a parser from the uploaded file name.
func GetParser(fileName string) (Parser, error) {
	fileName = strings.ToLower(fileName)

	switch {
	case strings.HasSuffix(fileName, ".tsv"), strings.HasSuffix(fileName, ".txt"):
		return NewTSVParser(), nil
	case strings.HasSuffix(fileName, ".csv"):
		return NewCSVParser(), nil
	case strings.HasSuffix(fileName, ".xlsx"):
		return NewXLSXParser(), nil
	}
	return nil, fmt.Errorf("unsupported file type: %s (must be .tsv, .csv or .xlsx)", fileName)
}
