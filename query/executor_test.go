package query_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"hermannm.dev/gaquery/query"
	"hermannm.dev/gaquery/report"
)

type fakeService struct {
	reports  map[string]*report.Report
	err      error
	requests []query.Request
}

func (service *fakeService) ExecuteSingle(
	ctx context.Context,
	request query.Request,
) (*report.Report, error) {
	service.requests = append(service.requests, request)
	if service.err != nil {
		return nil, service.err
	}
	return service.reports[request.Metrics], nil
}

func (service *fakeService) ExecuteBatch(
	ctx context.Context,
	requests map[string]query.Request,
) (map[string]*report.Report, error) {
	results := make(map[string]*report.Report, len(requests))
	for name, request := range requests {
		service.requests = append(service.requests, request)
		results[query.BatchKey(name)] = service.reports[request.Metrics]
	}
	return results, nil
}

var sessionsReport = &report.Report{
	Columns: []report.Column{{Name: "ga:sessions"}, {Name: "ga:users"}},
	Rows:    [][]any{{int64(10), int64(5)}, {int64(20), int64(8)}},
}

func TestQuery(t *testing.T) {
	service := &fakeService{reports: map[string]*report.Report{"ga:sessions,ga:users": sessionsReport}}
	executor := query.NewExecutor(service)

	rows, err := executor.Query(context.Background(), query.Params{
		ProfileID: "ga:86055307",
		Metrics:   query.List{"ga:sessions", "ga:users"},
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		Options: query.Options{
			Filters:    "sessions>100 && users<50",
			Dimensions: query.List{"ga:country", "ga:city"},
			Extra:      map[string]string{"sort": "-ga:sessions"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []report.Row{
		{"ga:sessions": int64(10), "ga:users": int64(5)},
		{"ga:sessions": int64(20), "ga:users": int64(8)},
	}, rows)

	require.Len(t, service.requests, 1)
	assert.Equal(t, query.Request{
		ProfileID:  "ga:86055307",
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-31",
		Metrics:    "ga:sessions,ga:users",
		Dimensions: "ga:country,ga:city",
		Filters:    "ga:sessions>100;ga:users<50",
		Extra:      map[string]string{"sort": "-ga:sessions"},
	}, service.requests[0])
}

func TestQueryDefaults(t *testing.T) {
	service := &fakeService{}
	executor := query.NewExecutor(service)

	request, err := executor.Prepare(query.Params{ProfileID: "ga:1"})
	require.NoError(t, err)

	assert.Equal(t, query.Request{
		ProfileID: "ga:1",
		StartDate: query.DefaultStartDate,
		EndDate:   query.DefaultEndDate,
		Metrics:   query.DefaultMetrics,
	}, request)
	assert.Empty(t, service.requests)
}

func TestQueryMissingProfileID(t *testing.T) {
	service := &fakeService{}
	executor := query.NewExecutor(service)

	_, err := executor.Query(context.Background(), query.Params{Metrics: query.List{"ga:sessions"}})

	assert.True(t, query.IsKind(err, query.InvalidArgument))
	assert.ErrorIs(t, err, query.ErrInvalidArgument)
	assert.ErrorContains(t, err, "Profile ID")
	assert.Empty(t, service.requests, "no request should be sent for an invalid profile ID")
}

func TestProfileIDMustBeString(t *testing.T) {
	var params query.Params

	err := json.Unmarshal([]byte(`{"profileId": 42, "metrics": "ga:sessions"}`), &params)
	assert.True(t, query.IsKind(err, query.InvalidArgument), "JSON error: %v", err)

	err = yaml.Unmarshal([]byte("profileId: 42\nmetrics: ga:sessions\n"), &params)
	assert.True(t, query.IsKind(err, query.InvalidArgument), "YAML error: %v", err)

	err = yaml.Unmarshal([]byte("profileId: 'ga:42'\n"), &params)
	require.NoError(t, err)
	assert.Equal(t, query.ProfileID("ga:42"), params.ProfileID)
}

func TestQueryNullResult(t *testing.T) {
	executor := query.NewExecutor(&fakeService{})

	_, err := executor.Query(context.Background(), query.Params{ProfileID: "ga:1"})

	assert.True(t, query.IsKind(err, query.UpstreamFailure))
	assert.ErrorContains(t, err, "Result was null")
}

func TestQueryServiceError(t *testing.T) {
	serviceErr := errors.New("connection reset")
	executor := query.NewExecutor(&fakeService{err: serviceErr})

	_, err := executor.Query(context.Background(), query.Params{ProfileID: "ga:1"})

	assert.ErrorIs(t, err, serviceErr)
}

func TestQueryMalformedReport(t *testing.T) {
	service := &fakeService{reports: map[string]*report.Report{
		query.DefaultMetrics: {
			Columns: []report.Column{{Name: "ga:sessions"}},
			Rows:    [][]any{{int64(1), int64(2)}},
		},
	}}
	executor := query.NewExecutor(service)

	_, err := executor.Query(context.Background(), query.Params{ProfileID: "ga:1"})

	assert.True(t, query.IsKind(err, query.UpstreamFailure))
	var malformedErr report.MalformedRowError
	assert.ErrorAs(t, err, &malformedErr)
}

func TestQueryEmptyReport(t *testing.T) {
	service := &fakeService{reports: map[string]*report.Report{query.DefaultMetrics: {}}}
	executor := query.NewExecutor(service)

	rows, err := executor.Query(context.Background(), query.Params{ProfileID: "ga:1"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSubmitDeferred(t *testing.T) {
	service := &fakeService{}
	executor := query.NewExecutor(service)

	outcome, err := executor.Submit(
		context.Background(),
		query.Params{ProfileID: "ga:1", Options: query.Options{Filters: "bounces==0 || exits==0"}},
		query.ModeDeferred,
	)
	require.NoError(t, err)

	assert.Nil(t, outcome.Rows)
	require.NotNil(t, outcome.Deferred)
	assert.Equal(t, "ga:bounces==0,ga:exits==0", outcome.Deferred.Filters)
	assert.Empty(t, service.requests, "deferred mode must not contact the reporting service")
}

func TestBlankFilterIsOmitted(t *testing.T) {
	executor := query.NewExecutor(&fakeService{})

	request, err := executor.Prepare(
		query.Params{ProfileID: "ga:1", Options: query.Options{Filters: "   "}},
	)
	require.NoError(t, err)
	assert.Empty(t, request.Filters)
}

func TestReservedExtraOption(t *testing.T) {
	executor := query.NewExecutor(&fakeService{})

	_, err := executor.Prepare(query.Params{
		ProfileID: "ga:1",
		Options:   query.Options{Extra: map[string]string{"metrics": "ga:users"}},
	})
	assert.True(t, query.IsKind(err, query.InvalidArgument))
}

func TestInvalidMode(t *testing.T) {
	executor := query.NewExecutor(&fakeService{})

	_, err := executor.Submit(context.Background(), query.Params{ProfileID: "ga:1"}, 0)
	assert.True(t, query.IsKind(err, query.InvalidArgument))
}
