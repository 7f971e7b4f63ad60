// Package csv writes reshaped report rows as CSV, with a header row of column names.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"hermannm.dev/gaquery/datatypes"
	"hermannm.dev/gaquery/report"
	"hermannm.dev/wrap"
)

var SupportedDelimiters = []rune{',', ';', '\t', '|'}

type Writer struct {
	inner *csv.Writer
}

func NewWriter(output io.Writer, delimiter rune) (*Writer, error) {
	if !isSupportedDelimiter(delimiter) {
		return nil, fmt.Errorf("unsupported CSV delimiter %q", delimiter)
	}

	inner := csv.NewWriter(output)
	inner.Comma = delimiter
	return &Writer{inner: inner}, nil
}

// WriteRows writes a header row followed by the given rows, with columns in the order of the
// schema deduced from the rows. Missing values are written as empty fields.
func (writer *Writer) WriteRows(rows []report.Row) error {
	schema, err := datatypes.DeduceSchema(rows)
	if err != nil {
		return wrap.Error(err, "failed to deduce columns of rows")
	}

	columns := schema.ColumnNames()
	if len(columns) == 0 {
		return nil
	}

	if err := writer.inner.Write(columns); err != nil {
		return wrap.Error(err, "failed to write CSV header row")
	}

	record := make([]string, len(columns))
	for rowIndex, row := range rows {
		for i, column := range columns {
			record[i] = formatField(row[column])
		}

		if err := writer.inner.Write(record); err != nil {
			return wrap.Errorf(err, "failed to write CSV row %d", rowIndex)
		}
	}

	writer.inner.Flush()
	if err := writer.inner.Error(); err != nil {
		return wrap.Error(err, "failed to flush CSV output")
	}

	return nil
}

func formatField(value any) string {
	switch value := value.(type) {
	case nil:
		return ""
	case string:
		return value
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}

func isSupportedDelimiter(delimiter rune) bool {
	return slices.Contains(SupportedDelimiters, delimiter)
}

// ParseDelimiter accepts a single delimiter character, or "tab".
func ParseDelimiter(value string) (rune, error) {
	if value == "tab" || value == `\t` {
		return '\t', nil
	}

	runes := []rune(value)
	if len(runes) != 1 || !isSupportedDelimiter(runes[0]) {
		return 0, fmt.Errorf(
			"invalid CSV delimiter '%s' (must be one of ',', ';', 'tab', '|')",
			value,
		)
	}
	return runes[0], nil
}
