package datatypes

import (
	"hermannm.dev/enumnames"
)

type DataType uint8

const (
	DataTypeString DataType = iota + 1
	DataTypeInt
	DataTypeFloat
)

var dataTypeNames = enumnames.NewMap(map[DataType]string{
	DataTypeString: "STRING",
	DataTypeInt:    "INTEGER",
	DataTypeFloat:  "FLOAT",
})

func (dataType DataType) IsValid() bool {
	return dataTypeNames.ContainsEnumValue(dataType)
}

func (dataType DataType) String() string {
	return dataTypeNames.GetNameOrFallback(dataType, "INVALID_DATA_TYPE")
}

func (dataType DataType) MarshalJSON() ([]byte, error) {
	return dataTypeNames.MarshalToNameJSON(dataType)
}

func (dataType *DataType) UnmarshalJSON(bytes []byte) error {
	return dataTypeNames.UnmarshalFromNameJSON(bytes, dataType)
}

// Data types as reported in column headers of the reporting API. See
// https://developers.google.com/analytics/devguides/reporting/core/v3/reference#data_response
var analyticsDataTypes = map[string]DataType{
	"STRING":   DataTypeString,
	"INTEGER":  DataTypeInt,
	"FLOAT":    DataTypeFloat,
	"PERCENT":  DataTypeFloat,
	"TIME":     DataTypeFloat,
	"CURRENCY": DataTypeFloat,
}

// Maps a column data type from the reporting API. Unknown types fall back to DataTypeString, so
// their values are passed on unconverted.
func FromAnalyticsType(analyticsType string) (dataType DataType, known bool) {
	if dataType, ok := analyticsDataTypes[analyticsType]; ok {
		return dataType, true
	}
	return DataTypeString, false
}
