package batch

import (
	"context"

	"hermannm.dev/gaquery/query"
	"hermannm.dev/wrap"
)

// Entry is a named query, as listed in batch files and batch request bodies.
type Entry struct {
	Name   string       `json:"name" yaml:"name"`
	Params query.Params `json:"params" yaml:"params"`
}

// Run executes the given entries as one batch. Entry names must be unique.
func (coordinator *Coordinator) Run(ctx context.Context, entries []Entry) (ResultSet, error) {
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, duplicate := seen[entry.Name]; duplicate {
			return nil, query.NewErrorf(
				query.InvalidArgument,
				"duplicate batch entry name '%s'",
				entry.Name,
			)
		}
		seen[entry.Name] = struct{}{}
	}

	return coordinator.Collect(ctx, func(add AddFunc) error {
		for i, entry := range entries {
			if err := add(entry.Name, entry.Params); err != nil {
				return wrap.Errorf(err, "invalid batch entry %d", i)
			}
		}
		return nil
	})
}
