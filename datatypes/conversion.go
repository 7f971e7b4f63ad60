package datatypes

import (
	"fmt"
	"strconv"
)

// Converts a raw cell value from the reporting API to the Go type of the given data type:
// string, int64 or float64.
func ConvertField(field string, dataType DataType) (any, error) {
	switch dataType {
	case DataTypeString:
		return field, nil
	case DataTypeInt:
		value, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			// The API sometimes formats integer metrics with a decimal part, e.g. "12.0"
			floatValue, floatErr := strconv.ParseFloat(field, 64)
			if floatErr != nil || floatValue != float64(int64(floatValue)) {
				return nil, err
			}
			return int64(floatValue), nil
		}
		return value, nil
	case DataTypeFloat:
		return strconv.ParseFloat(field, 64)
	default:
		return nil, fmt.Errorf("unrecognized data type '%v'", dataType)
	}
}

// Returns the data type of a converted value, or false if the value's type has no DataType.
func DataTypeOf(value any) (dataType DataType, ok bool) {
	switch value.(type) {
	case string:
		return DataTypeString, true
	case int, int32, int64:
		return DataTypeInt, true
	case float32, float64:
		return DataTypeFloat, true
	default:
		return 0, false
	}
}
