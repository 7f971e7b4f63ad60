package datatypes

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

type Schema struct {
	Columns []Column `json:"columns"`
}

type Column struct {
	Name     string   `json:"name"`
	DataType DataType `json:"dataType"`
	Optional bool     `json:"optional"`
}

// Deduces a schema from row records, with columns sorted by name. A column missing from some
// rows, or holding nil in them, is marked optional.
func DeduceSchema(rows []map[string]any) (Schema, error) {
	columns := make(map[string]Column)

	for rowIndex, row := range rows {
		for name, value := range row {
			column, seen := columns[name]
			if !seen {
				column = Column{Name: name, Optional: rowIndex != 0}
			}

			if value == nil {
				column.Optional = true
				columns[name] = column
				continue
			}

			deducedType, ok := DataTypeOf(value)
			if !ok {
				return Schema{}, fmt.Errorf(
					"unsupported value type %T in column '%s' of row %d",
					value,
					name,
					rowIndex,
				)
			}

			if !column.DataType.IsValid() {
				column.DataType = deducedType
			} else if column.DataType != deducedType {
				return Schema{}, fmt.Errorf(
					"found incompatible data types '%s' and '%s' in column '%s'",
					column.DataType,
					deducedType,
					name,
				)
			}

			columns[name] = column
		}

		for name, column := range columns {
			if _, inRow := row[name]; !inRow {
				column.Optional = true
				columns[name] = column
			}
		}
	}

	schema := Schema{Columns: make([]Column, 0, len(columns))}
	for _, column := range columns {
		if !column.DataType.IsValid() {
			// Only nil values seen
			column.DataType = DataTypeString
		}
		schema.Columns = append(schema.Columns, column)
	}
	slices.SortFunc(schema.Columns, func(a, b Column) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return schema, nil
}

func (schema Schema) Validate() (errs []error) {
	if len(schema.Columns) == 0 {
		errs = append(errs, errors.New("schema has no columns"))
	}

	for i, column := range schema.Columns {
		if column.Name == "" {
			errs = append(errs, fmt.Errorf("column %d has no name", i))
		}
		if !column.DataType.IsValid() {
			errs = append(errs, fmt.Errorf("invalid data type for column '%s'", column.Name))
		}
	}

	return errs
}

func (schema Schema) ColumnNames() []string {
	names := make([]string, len(schema.Columns))
	for i, column := range schema.Columns {
		names[i] = column.Name
	}
	return names
}
