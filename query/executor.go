package query

import (
	"context"
	"log/slog"
	"maps"

	"hermannm.dev/gaquery/filter"
	"hermannm.dev/gaquery/log"
	"hermannm.dev/gaquery/report"
	"hermannm.dev/wrap"
)

type Executor struct {
	service Service
}

func NewExecutor(service Service) *Executor {
	return &Executor{service: service}
}

// Outcome of Executor.Submit: Rows for ModeImmediate, Deferred for ModeDeferred.
type Outcome struct {
	Rows     []report.Row
	Deferred *Request
}

// Prepare validates the given parameters and translates them into a Request, without contacting
// the reporting service.
func (executor *Executor) Prepare(params Params) (Request, error) {
	if params.ProfileID == "" {
		return Request{}, NewError(InvalidArgument, profileIDRequirement)
	}

	request := Request{
		ProfileID: string(params.ProfileID),
		Metrics:   params.Metrics.Join(),
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	}
	if request.Metrics == "" {
		request.Metrics = DefaultMetrics
	}
	if request.StartDate == "" {
		request.StartDate = DefaultStartDate
	}
	if request.EndDate == "" {
		request.EndDate = DefaultEndDate
	}

	if params.Options.Filters != "" {
		if normalized, ok := filter.Normalize(params.Options.Filters); ok {
			request.Filters = normalized
		}
	}

	request.Dimensions = params.Options.Dimensions.Join()

	if len(params.Options.Extra) != 0 {
		for key := range params.Options.Extra {
			if _, reserved := reservedParameters[key]; reserved {
				return Request{}, NewErrorf(
					InvalidArgument,
					"option '%s' cannot be passed through, since it is set by the query itself",
					key,
				)
			}
		}
		request.Extra = maps.Clone(params.Options.Extra)
	}

	return request, nil
}

// Submit prepares a request from the given parameters. With ModeImmediate, it is executed and its
// result reshaped to rows. With ModeDeferred, the prepared request is returned as-is, for
// registration in a batch.
func (executor *Executor) Submit(ctx context.Context, params Params, mode Mode) (Outcome, error) {
	if !mode.IsValid() {
		return Outcome{}, NewErrorf(InvalidArgument, "invalid execution mode %d", mode)
	}

	request, err := executor.Prepare(params)
	if err != nil {
		return Outcome{}, err
	}

	if mode == ModeDeferred {
		return Outcome{Deferred: &request}, nil
	}

	rows, err := executor.Execute(ctx, request)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Rows: rows}, nil
}

// Query runs the query for the given parameters right away.
func (executor *Executor) Query(ctx context.Context, params Params) ([]report.Row, error) {
	outcome, err := executor.Submit(ctx, params, ModeImmediate)
	if err != nil {
		return nil, err
	}
	return outcome.Rows, nil
}

func (executor *Executor) Execute(ctx context.Context, request Request) ([]report.Row, error) {
	log.Debug(
		"executing query",
		slog.String("profileId", request.ProfileID),
		slog.String("metrics", request.Metrics),
		slog.String("filters", request.Filters),
	)

	result, err := executor.service.ExecuteSingle(ctx, request)
	if err != nil {
		return nil, wrap.Errorf(err, "query for profile '%s' failed", request.ProfileID)
	}
	if result == nil {
		return nil, NewError(
			UpstreamFailure,
			"Result was null, something failed when getting results from the reporting service",
		)
	}

	return Reshape(result)
}

// ExecuteBatch sends the given requests to the reporting service in one exchange. Keys of the
// returned map are still decorated with BatchKeyPrefix.
func (executor *Executor) ExecuteBatch(
	ctx context.Context,
	requests map[string]Request,
) (map[string]*report.Report, error) {
	log.Debug("executing batch", slog.Int("requests", len(requests)))

	results, err := executor.service.ExecuteBatch(ctx, requests)
	if err != nil {
		return nil, wrap.Errorf(err, "batch of %d queries failed", len(requests))
	}
	return results, nil
}

// Reshape converts a report to row records, classifying malformed reports as UpstreamFailure.
func Reshape(result *report.Report) ([]report.Row, error) {
	rows, err := report.ParseData(result)
	if err != nil {
		return nil, WrapError(err, UpstreamFailure, "reporting service returned a malformed report")
	}
	return rows, nil
}
