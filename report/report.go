// Package report holds the column-oriented results of the reporting API, and reshapes them into
// row records keyed by column name.
package report

import (
	"fmt"

	"hermannm.dev/enumnames"
	"hermannm.dev/gaquery/datatypes"
)

type Report struct {
	Columns []Column `json:"columns"`
	// Positionally aligned with Columns.
	Rows [][]any `json:"rows"`

	ContainsSampledData bool              `json:"containsSampledData"`
	TotalResults        int64             `json:"totalResults"`
	TotalsForAllResults map[string]string `json:"totalsForAllResults,omitempty"`
}

type Column struct {
	Name     string             `json:"name"`
	Type     ColumnType         `json:"columnType"`
	DataType datatypes.DataType `json:"dataType"`
}

type ColumnType uint8

const (
	ColumnTypeDimension ColumnType = iota + 1
	ColumnTypeMetric
)

var columnTypeNames = enumnames.NewMap(map[ColumnType]string{
	ColumnTypeDimension: "DIMENSION",
	ColumnTypeMetric:    "METRIC",
})

func (columnType ColumnType) IsValid() bool {
	return columnTypeNames.ContainsEnumValue(columnType)
}

func (columnType ColumnType) String() string {
	return columnTypeNames.GetNameOrFallback(columnType, "INVALID_COLUMN_TYPE")
}

func (columnType ColumnType) MarshalJSON() ([]byte, error) {
	return columnTypeNames.MarshalToNameJSON(columnType)
}

func (columnType *ColumnType) UnmarshalJSON(bytes []byte) error {
	return columnTypeNames.UnmarshalFromNameJSON(bytes, columnType)
}

// A Row maps column names to the row's value in that column.
type Row = map[string]any

// MalformedRowError is returned by ParseData when a row's value count does not match the number of
// columns.
type MalformedRowError struct {
	RowIndex    int
	ValueCount  int
	ColumnCount int
}

func (err MalformedRowError) Error() string {
	return fmt.Sprintf(
		"row %d has %d values, but the report has %d columns",
		err.RowIndex,
		err.ValueCount,
		err.ColumnCount,
	)
}

// ParseData zips the report's column names with each row's values, preserving row order. A nil
// report, or one without columns or rows, gives an empty slice and no error.
func ParseData(report *Report) ([]Row, error) {
	if report == nil || len(report.Columns) == 0 || len(report.Rows) == 0 {
		return []Row{}, nil
	}

	rows := make([]Row, 0, len(report.Rows))
	for rowIndex, values := range report.Rows {
		if len(values) != len(report.Columns) {
			return nil, MalformedRowError{
				RowIndex:    rowIndex,
				ValueCount:  len(values),
				ColumnCount: len(report.Columns),
			}
		}

		row := make(Row, len(report.Columns))
		for i, column := range report.Columns {
			row[column.Name] = values[i]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (report *Report) ColumnNames() []string {
	names := make([]string, len(report.Columns))
	for i, column := range report.Columns {
		names[i] = column.Name
	}
	return names
}
