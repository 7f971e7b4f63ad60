// Package sink stores reshaped report rows in a database table, one table per query or batch
// entry.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"hermannm.dev/gaquery/datatypes"
	"hermannm.dev/gaquery/log"
	"hermannm.dev/gaquery/report"
	"hermannm.dev/wrap"
)

type Sink interface {
	CreateTable(ctx context.Context, table string, schema datatypes.Schema) error
	InsertRows(
		ctx context.Context,
		table string,
		schema datatypes.Schema,
		rows []report.Row,
	) error
	DropTable(ctx context.Context, table string) (alreadyDropped bool, err error)
}

var ErrNoSink = errors.New("no sink configured (set SINK in env)")

var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_\-]*$`)

// Table names must be valid both as ClickHouse tables and Elasticsearch indices.
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf(
			"invalid table name '%s' (must start with a lowercase letter, followed by lowercase letters, digits, '_' or '-')",
			table,
		)
	}
	return nil
}

// Store replaces the contents of the given table with the given rows, with a schema deduced from
// the rows. Storing no rows is a no-op.
func Store(ctx context.Context, sink Sink, table string, rows []report.Row) error {
	if err := ValidateTableName(table); err != nil {
		return err
	}

	if len(rows) == 0 {
		log.Info("no rows to store", slog.String("table", table))
		return nil
	}

	schema, err := datatypes.DeduceSchema(rows)
	if err != nil {
		return wrap.Errorf(err, "failed to deduce schema for table '%s'", table)
	}
	if errs := schema.Validate(); len(errs) != 0 {
		return wrap.Errors(fmt.Sprintf("invalid schema for table '%s'", table), errs...)
	}

	alreadyDropped, err := sink.DropTable(ctx, table)
	if err != nil {
		return wrap.Errorf(err, "failed to drop previous table '%s'", table)
	}
	if !alreadyDropped {
		log.Info("dropped previous table", slog.String("table", table))
	}

	if err := sink.CreateTable(ctx, table, schema); err != nil {
		return wrap.Errorf(err, "failed to create table '%s'", table)
	}

	if err := sink.InsertRows(ctx, table, schema, rows); err != nil {
		return wrap.Errorf(err, "failed to insert rows into table '%s'", table)
	}

	log.Info("stored report rows", slog.String("table", table), slog.Int("rows", len(rows)))
	return nil
}

// StoreAll stores each named result in its own table, prefixed by tablePrefix. Attempts every
// table before returning.
func StoreAll(
	ctx context.Context,
	sink Sink,
	tablePrefix string,
	results map[string][]report.Row,
) error {
	var errs []error
	for name, rows := range results {
		if err := Store(ctx, sink, tablePrefix+name, rows); err != nil {
			errs = append(errs, err)
		}
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return wrap.Errors("failed to store batch results", errs...)
	}
}

// ConvertRow orders the values of a row by the given schema, checking each value against its
// column type.
func ConvertRow(schema datatypes.Schema, row report.Row) ([]any, error) {
	values := make([]any, len(schema.Columns))

	for i, column := range schema.Columns {
		value, ok := row[column.Name]
		if !ok || value == nil {
			if !column.Optional {
				return nil, fmt.Errorf("missing value for required column '%s'", column.Name)
			}
			continue
		}

		valueType, ok := datatypes.DataTypeOf(value)
		if !ok {
			return nil, fmt.Errorf("unsupported value type %T in column '%s'", value, column.Name)
		}
		if valueType != column.DataType {
			return nil, fmt.Errorf(
				"expected %s value in column '%s', got %s",
				column.DataType,
				column.Name,
				valueType,
			)
		}

		values[i] = value
	}

	return values, nil
}
