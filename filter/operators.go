package filter

import (
	"strings"

	"hermannm.dev/enumnames"
)

type Operator uint8

const (
	OperatorNotMatchesRegexp Operator = iota + 1
	OperatorMatchesRegexp
	OperatorEquals
	OperatorNotEquals
	OperatorGreaterOrEqual
	OperatorLessOrEqual
	OperatorContains
	OperatorNotContains
	OperatorGreater
	OperatorLess
)

var operatorSymbols = enumnames.NewMap(map[Operator]string{
	OperatorNotMatchesRegexp: "!~",
	OperatorMatchesRegexp:    "=~",
	OperatorEquals:           "==",
	OperatorNotEquals:        "!=",
	OperatorGreaterOrEqual:   ">=",
	OperatorLessOrEqual:      "<=",
	OperatorContains:         "=@",
	OperatorNotContains:      "!@",
	OperatorGreater:          ">",
	OperatorLess:             "<",
})

// Two-character operators must come before single-character ones sharing a prefix, or ">=" would
// be read as ">" followed by a stray "=".
var operatorsByPrecedence = []Operator{
	OperatorNotMatchesRegexp,
	OperatorMatchesRegexp,
	OperatorEquals,
	OperatorNotEquals,
	OperatorGreaterOrEqual,
	OperatorLessOrEqual,
	OperatorContains,
	OperatorNotContains,
	OperatorGreater,
	OperatorLess,
}

func (operator Operator) IsValid() bool {
	return operatorSymbols.ContainsEnumValue(operator)
}

func (operator Operator) String() string {
	return operatorSymbols.GetNameOrFallback(operator, "[INVALID OPERATOR]")
}

func (operator Operator) MarshalJSON() ([]byte, error) {
	return operatorSymbols.MarshalToNameJSON(operator)
}

func (operator *Operator) UnmarshalJSON(bytes []byte) error {
	return operatorSymbols.UnmarshalFromNameJSON(bytes, operator)
}

// Returns the comparison operator at the start of the given string, if any.
func leadingOperator(s string) (operator Operator, ok bool) {
	for _, candidate := range operatorsByPrecedence {
		if strings.HasPrefix(s, candidate.String()) {
			return candidate, true
		}
	}

	return 0, false
}
