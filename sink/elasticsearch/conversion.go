package elasticsearch

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"hermannm.dev/gaquery/datatypes"
	"hermannm.dev/wrap"
)

func schemaToElasticMappings(schema datatypes.Schema) (*types.TypeMapping, error) {
	mappings := new(types.TypeMapping)
	mappings.Properties = make(map[string]types.Property, len(schema.Columns))

	for _, column := range schema.Columns {
		property, err := dataTypeToElasticProperty(column.DataType)
		if err != nil {
			return nil, wrap.Errorf(
				err,
				"failed to convert data type to Elasticsearch property for column '%s'",
				column.Name,
			)
		}

		mappings.Properties[column.Name] = property
	}

	return mappings, nil
}

func dataTypeToElasticProperty(dataType datatypes.DataType) (types.Property, error) {
	switch dataType {
	case datatypes.DataTypeString:
		return types.NewKeywordProperty(), nil
	case datatypes.DataTypeInt:
		return types.NewLongNumberProperty(), nil
	case datatypes.DataTypeFloat:
		return types.NewDoubleNumberProperty(), nil
	default:
		return nil, fmt.Errorf("unrecognized data type '%v'", dataType)
	}
}
