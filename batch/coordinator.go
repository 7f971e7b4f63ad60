// Package batch queues named queries and runs them as one batched exchange with the reporting
// service.
//
// A Coordinator holds at most one open batch. It is safe to call from multiple goroutines, but
// a batch is one logical unit: callers that want independent batches should use one Coordinator
// each.
package batch

import (
	"context"
	"log/slog"
	"sync"

	"hermannm.dev/gaquery/log"
	"hermannm.dev/gaquery/query"
	"hermannm.dev/gaquery/report"
	"hermannm.dev/wrap"
)

type Coordinator struct {
	executor *query.Executor

	lock    sync.Mutex
	state   State
	pending pendingBatch
}

// Registered requests in order of first registration.
type pendingBatch struct {
	names    []string
	requests map[string]query.Request
}

// Maps request names to the rows of their results.
type ResultSet = map[string][]report.Row

func NewCoordinator(executor *query.Executor) *Coordinator {
	return &Coordinator{executor: executor, state: StateIdle}
}

func (coordinator *Coordinator) State() State {
	coordinator.lock.Lock()
	defer coordinator.lock.Unlock()

	return coordinator.state
}

// Begin opens a new batch. Beginning while a batch is already collecting discards that batch.
func (coordinator *Coordinator) Begin() error {
	coordinator.lock.Lock()
	defer coordinator.lock.Unlock()

	switch coordinator.state {
	case StateExecuting:
		return query.NewError(query.InvalidState, "cannot begin a batch while one is executing")
	case StateCollecting:
		log.Warn(
			"discarding open batch, since a new one was begun",
			slog.Int("discardedRequests", len(coordinator.pending.names)),
		)
	}

	coordinator.pending = pendingBatch{requests: make(map[string]query.Request)}
	coordinator.state = StateCollecting
	return nil
}

// Add registers a query under the given name in the open batch. A name that is already registered
// is overwritten.
func (coordinator *Coordinator) Add(name string, params query.Params) error {
	coordinator.lock.Lock()
	defer coordinator.lock.Unlock()

	if coordinator.state != StateCollecting {
		return query.NewErrorf(
			query.InvalidState,
			"cannot add '%s' to batch: no batch has been begun (state %s)",
			name,
			coordinator.state,
		)
	}
	if name == "" {
		return query.NewError(query.InvalidArgument, "batch request name cannot be empty")
	}

	outcome, err := coordinator.executor.Submit(context.Background(), params, query.ModeDeferred)
	if err != nil {
		return wrap.Errorf(err, "failed to prepare batch request '%s'", name)
	}

	if _, exists := coordinator.pending.requests[name]; exists {
		log.Debug("overwriting batch request", slog.String("name", name))
	} else {
		coordinator.pending.names = append(coordinator.pending.names, name)
	}
	coordinator.pending.requests[name] = *outcome.Deferred

	return nil
}

// Abort discards the open batch, if any.
func (coordinator *Coordinator) Abort() {
	coordinator.lock.Lock()
	defer coordinator.lock.Unlock()

	if coordinator.state == StateCollecting {
		coordinator.reset()
	}
}

// Names returns the names registered in the open batch, in registration order.
func (coordinator *Coordinator) Names() []string {
	coordinator.lock.Lock()
	defer coordinator.lock.Unlock()

	names := make([]string, len(coordinator.pending.names))
	copy(names, coordinator.pending.names)
	return names
}

// Execute sends the open batch to the reporting service, and returns each request's rows under its
// name. The coordinator is back in StateIdle afterwards, whether or not execution succeeded.
func (coordinator *Coordinator) Execute(ctx context.Context) (ResultSet, error) {
	pending, err := coordinator.startExecuting()
	if err != nil {
		return nil, err
	}
	defer coordinator.finishExecuting()

	if len(pending.names) == 0 {
		return ResultSet{}, nil
	}

	reports, err := coordinator.executor.ExecuteBatch(ctx, pending.requests)
	if err != nil {
		return nil, err
	}

	results := make(ResultSet, len(pending.names))
	var errs []error

	for key, result := range reports {
		name, decorated := query.NameFromBatchKey(key)
		if !decorated {
			log.Warn("batch response key without expected prefix", slog.String("key", key))
		}

		if _, requested := pending.requests[name]; !requested {
			errs = append(errs, query.NewErrorf(
				query.UpstreamFailure,
				"batch response contained unrequested result '%s'",
				key,
			))
			continue
		}

		if result == nil {
			errs = append(errs, query.NewErrorf(
				query.UpstreamFailure,
				"result for '%s' was null",
				name,
			))
			continue
		}

		rows, err := query.Reshape(result)
		if err != nil {
			errs = append(errs, wrap.Errorf(err, "failed to parse result for '%s'", name))
			continue
		}
		results[name] = rows
	}

	// Requests missing from the batch response are run one by one instead
	for _, name := range pending.names {
		if _, done := results[name]; done || hasBatchResult(reports, name) {
			continue
		}

		log.Warn(
			"request missing from batch response, executing it on its own",
			slog.String("name", name),
		)

		rows, err := coordinator.executor.Execute(ctx, pending.requests[name])
		if err != nil {
			errs = append(errs, wrap.Errorf(err, "fallback execution of '%s' failed", name))
			continue
		}
		results[name] = rows
	}

	switch len(errs) {
	case 0:
		return results, nil
	case 1:
		return nil, wrap.Error(errs[0], "failed to execute batch")
	default:
		return nil, wrap.Errors("failed to execute batch", errs...)
	}
}

// Collect begins a batch, lets the given function add requests to it, and executes it. If the
// function fails, the batch is discarded.
func (coordinator *Coordinator) Collect(
	ctx context.Context,
	addRequests func(add AddFunc) error,
) (ResultSet, error) {
	if err := coordinator.Begin(); err != nil {
		return nil, err
	}

	if err := addRequests(coordinator.Add); err != nil {
		coordinator.Abort()
		return nil, err
	}

	return coordinator.Execute(ctx)
}

type AddFunc func(name string, params query.Params) error

func (coordinator *Coordinator) startExecuting() (pendingBatch, error) {
	coordinator.lock.Lock()
	defer coordinator.lock.Unlock()

	if coordinator.state != StateCollecting {
		return pendingBatch{}, query.NewErrorf(
			query.InvalidState,
			"cannot execute batch: no batch has been begun (state %s)",
			coordinator.state,
		)
	}

	coordinator.state = StateExecuting
	return coordinator.pending, nil
}

func (coordinator *Coordinator) finishExecuting() {
	coordinator.lock.Lock()
	defer coordinator.lock.Unlock()

	coordinator.reset()
}

func (coordinator *Coordinator) reset() {
	coordinator.pending = pendingBatch{}
	coordinator.state = StateIdle
}

func hasBatchResult(reports map[string]*report.Report, name string) bool {
	if _, ok := reports[query.BatchKey(name)]; ok {
		return true
	}
	_, ok := reports[name]
	return ok
}
