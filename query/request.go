package query

import (
	"context"
	"strings"

	"hermannm.dev/enumnames"
	"hermannm.dev/gaquery/report"
)

// Request is a query in the flat wire form of the reporting API. An unexecuted Request doubles as
// the deferred handle of a query queued for batch execution.
type Request struct {
	ProfileID  string `json:"ids"`
	StartDate  string `json:"start-date"`
	EndDate    string `json:"end-date"`
	Metrics    string `json:"metrics"`
	Dimensions string `json:"dimensions,omitempty"`
	// Normalized filter, empty if absent.
	Filters string            `json:"filters,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// Service is the reporting service that executes requests. Implementations handle
// authentication, transport and any retries.
type Service interface {
	// Returns a nil report if the service gave no result.
	ExecuteSingle(ctx context.Context, request Request) (*report.Report, error)
	// Keys of the returned map are the request names decorated with BatchKeyPrefix.
	ExecuteBatch(
		ctx context.Context,
		requests map[string]Request,
	) (map[string]*report.Report, error)
}

// Prefix the reporting service adds to request names in batch responses.
const BatchKeyPrefix = "response-"

func BatchKey(name string) string {
	return BatchKeyPrefix + name
}

// Strips BatchKeyPrefix from a batch response key. If the key is not decorated, it is returned
// unchanged with decorated = false.
func NameFromBatchKey(key string) (name string, decorated bool) {
	if name, decorated = strings.CutPrefix(key, BatchKeyPrefix); decorated {
		return name, true
	}
	return key, false
}

// Mode decides whether Executor.Submit runs a query right away or only prepares it for a batch.
type Mode uint8

const (
	ModeImmediate Mode = iota + 1
	ModeDeferred
)

var modeNames = enumnames.NewMap(map[Mode]string{
	ModeImmediate: "IMMEDIATE",
	ModeDeferred:  "DEFERRED",
})

func (mode Mode) IsValid() bool {
	return modeNames.ContainsEnumValue(mode)
}

func (mode Mode) String() string {
	return modeNames.GetNameOrFallback(mode, "INVALID_MODE")
}

// Parameters the executor sets itself, which may not be overridden through Options.Extra.
var reservedParameters = map[string]struct{}{
	"ids":        {},
	"start-date": {},
	"end-date":   {},
	"metrics":    {},
	"dimensions": {},
	"filters":    {},
}
