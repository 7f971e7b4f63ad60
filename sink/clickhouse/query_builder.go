package clickhouse

import (
	"fmt"
	"strings"

	"hermannm.dev/enumnames"
	"hermannm.dev/gaquery/datatypes"
	"hermannm.dev/wrap"
)

// See https://clickhouse.com/docs/en/sql-reference/data-types
var clickhouseDataTypes = enumnames.NewMap(map[datatypes.DataType]string{
	datatypes.DataTypeString: "String",
	datatypes.DataTypeInt:    "Int64",
	datatypes.DataTypeFloat:  "Float64",
})

type QueryBuilder struct {
	strings.Builder
}

// Must only be called after calling ValidateIdentifier/ValidateIdentifiers on the given identifier.
func (builder *QueryBuilder) WriteIdentifier(identifier string) {
	builder.WriteRune('`')
	builder.WriteString(identifier)
	builder.WriteRune('`')
}

func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier is empty")
	}
	if strings.ContainsRune(identifier, '`') {
		return fmt.Errorf("'%s' contains `, which is incompatible with database", identifier)
	}

	return nil
}

func ValidateIdentifiers(identifiers ...string) error {
	for _, identifier := range identifiers {
		if err := ValidateIdentifier(identifier); err != nil {
			return err
		}
	}

	return nil
}

func createTableQuery(table string, schema datatypes.Schema) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", wrap.Error(err, "invalid table name")
	}
	if err := ValidateIdentifiers(schema.ColumnNames()...); err != nil {
		return "", wrap.Error(err, "invalid column name")
	}

	var query QueryBuilder
	query.WriteString("CREATE TABLE ")
	query.WriteIdentifier(table)
	query.WriteString(" (`id` UUID")

	for _, column := range schema.Columns {
		dataType, ok := clickhouseDataTypes.GetName(column.DataType)
		if !ok {
			return "", fmt.Errorf(
				"invalid data type '%v' in column '%s'",
				column.DataType,
				column.Name,
			)
		}

		query.WriteString(", ")
		query.WriteIdentifier(column.Name)
		query.WriteRune(' ')
		query.WriteString(dataType)

		if column.Optional {
			query.WriteString(" NULL")
		}
	}

	query.WriteRune(')')
	query.WriteString(" ENGINE = MergeTree()")
	query.WriteString(" PRIMARY KEY (id)")

	return query.String(), nil
}

func insertQuery(table string, schema datatypes.Schema) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", wrap.Error(err, "invalid table name")
	}
	if err := ValidateIdentifiers(schema.ColumnNames()...); err != nil {
		return "", wrap.Error(err, "invalid column name")
	}

	var query QueryBuilder
	query.WriteString("INSERT INTO ")
	query.WriteIdentifier(table)
	query.WriteString(" (`id`")
	for _, column := range schema.Columns {
		query.WriteString(", ")
		query.WriteIdentifier(column.Name)
	}
	query.WriteRune(')')

	return query.String(), nil
}

func dropTableQuery(table string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", wrap.Error(err, "invalid table name")
	}

	var query QueryBuilder
	query.WriteString("DROP TABLE ")
	query.WriteIdentifier(table)
	return query.String(), nil
}
