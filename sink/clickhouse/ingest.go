package clickhouse

import (
	"context"

	"github.com/google/uuid"
	"hermannm.dev/gaquery/datatypes"
	"hermannm.dev/gaquery/report"
	"hermannm.dev/gaquery/sink"
	"hermannm.dev/wrap"
)

func (clickhouse ClickHouseSink) CreateTable(
	ctx context.Context,
	table string,
	schema datatypes.Schema,
) error {
	query, err := createTableQuery(table, schema)
	if err != nil {
		return err
	}

	if err := clickhouse.conn.Exec(ctx, query); err != nil {
		return wrap.Error(err, "create table query failed")
	}

	return nil
}

// ClickHouse recommends keeping batch inserts between 10,000 and 100,000 rows:
// https://clickhouse.com/docs/en/cloud/bestpractices/bulk-inserts
const BatchInsertSize = 10000

func (clickhouse ClickHouseSink) InsertRows(
	ctx context.Context,
	table string,
	schema datatypes.Schema,
	rows []report.Row,
) error {
	query, err := insertQuery(table, schema)
	if err != nil {
		return err
	}

	for start := 0; start < len(rows); start += BatchInsertSize {
		end := min(start+BatchInsertSize, len(rows))

		batch, err := clickhouse.conn.PrepareBatch(ctx, query)
		if err != nil {
			return wrap.Error(err, "failed to prepare batch data insert")
		}

		for rowIndex := start; rowIndex < end; rowIndex++ {
			convertedRow, err := convertRow(schema, rows[rowIndex])
			if err != nil {
				return wrap.Errorf(err, "failed to convert row %d", rowIndex)
			}

			if err := batch.Append(convertedRow...); err != nil {
				return wrap.Errorf(err, "failed to add row %d to batch insert", rowIndex)
			}
		}

		if err := batch.Send(); err != nil {
			return wrap.Error(err, "failed to send batch insert")
		}
	}

	return nil
}

// Prepends a generated ID to the row's values in schema order.
func convertRow(schema datatypes.Schema, row report.Row) ([]any, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return nil, wrap.Error(err, "failed to generate unique ID for row")
	}

	values, err := sink.ConvertRow(schema, row)
	if err != nil {
		return nil, wrap.Error(err, "row does not match table schema")
	}

	return append([]any{id.String()}, values...), nil
}
