package batch

import (
	"hermannm.dev/enumnames"
)

type State uint8

const (
	StateIdle State = iota + 1
	StateCollecting
	StateExecuting
)

var stateNames = enumnames.NewMap(map[State]string{
	StateIdle:       "IDLE",
	StateCollecting: "COLLECTING",
	StateExecuting:  "EXECUTING",
})

func (state State) IsValid() bool {
	return stateNames.ContainsEnumValue(state)
}

func (state State) String() string {
	return stateNames.GetNameOrFallback(state, "INVALID_STATE")
}

func (state State) MarshalJSON() ([]byte, error) {
	return stateNames.MarshalToNameJSON(state)
}
