package elasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/core/bulk"
	elastictypes "github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/google/uuid"
	"hermannm.dev/gaquery/datatypes"
	"hermannm.dev/gaquery/report"
	"hermannm.dev/gaquery/sink"
	"hermannm.dev/wrap"
)

func (elastic ElasticsearchSink) CreateTable(
	ctx context.Context,
	table string,
	schema datatypes.Schema,
) error {
	mappings, err := schemaToElasticMappings(schema)
	if err != nil {
		return wrap.Error(err, "failed to translate table schema to elastic mappings")
	}

	if _, err = elastic.client.Indices.Create(table).Mappings(mappings).Do(ctx); err != nil {
		return wrapElasticErrorf(err, "Elasticsearch index creation request failed for '%s'", table)
	}

	return nil
}

const BulkInsertSize = 1000

func (elastic ElasticsearchSink) InsertRows(
	ctx context.Context,
	table string,
	schema datatypes.Schema,
	rows []report.Row,
) error {
	for start := 0; start < len(rows); start += BulkInsertSize {
		end := min(start+BulkInsertSize, len(rows))

		request := elastic.client.Bulk()
		for rowIndex := start; rowIndex < end; rowIndex++ {
			operation, document, err := createOperation(table, schema, rows[rowIndex])
			if err != nil {
				return wrap.Errorf(err, "failed to prepare row %d for bulk insert", rowIndex)
			}

			if err := request.CreateOp(operation, document); err != nil {
				return wrap.Errorf(
					err,
					"failed to add create operation for row %d to bulk insert",
					rowIndex,
				)
			}
		}

		response, err := request.Do(ctx)
		if err != nil {
			return wrapElasticError(err, "bulk insert request failed")
		}
		if err := bulkResponseError(response); err != nil {
			return err
		}
	}

	return nil
}

func createOperation(
	table string,
	schema datatypes.Schema,
	row report.Row,
) (operation elastictypes.CreateOperation, document []byte, err error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return elastictypes.CreateOperation{}, nil, wrap.Error(
			err,
			"failed to generate unique ID for row",
		)
	}
	idString := id.String()

	values, err := sink.ConvertRow(schema, row)
	if err != nil {
		return elastictypes.CreateOperation{}, nil, wrap.Error(err, "row does not match table schema")
	}

	fields := make(map[string]any, len(values))
	for i, column := range schema.Columns {
		if values[i] != nil {
			fields[column.Name] = values[i]
		}
	}

	document, err = json.Marshal(fields)
	if err != nil {
		return elastictypes.CreateOperation{}, nil, wrap.Error(
			err,
			"failed to encode row to JSON for sending to Elasticsearch",
		)
	}

	return elastictypes.CreateOperation{Id_: &idString, Index_: &table}, document, nil
}

// A bulk request can succeed while individual operations fail.
func bulkResponseError(response *bulk.Response) error {
	if response == nil || !response.Errors {
		return nil
	}

	var errs []error
	for _, item := range response.Items {
		for _, result := range item {
			if result.Error != nil {
				errs = append(errs, formatErrorCause(*result.Error, result.Status))
			}
		}
	}

	if len(errs) == 0 {
		return errors.New("bulk insert reported errors without details")
	}
	return wrap.Errors(fmt.Sprintf("%d operations in bulk insert failed", len(errs)), errs...)
}
