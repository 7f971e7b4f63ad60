package client_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/gaquery/client"
	"hermannm.dev/gaquery/query"
	"hermannm.dev/gaquery/report"
)

type echoService struct {
	singleCalls int
	batchCalls  int
}

// Reports the request's profile ID back as the single value of a single row.
func echoReport(request query.Request) *report.Report {
	return &report.Report{
		Columns: []report.Column{{Name: "profile"}},
		Rows:    [][]any{{request.ProfileID}},
	}
}

func (service *echoService) ExecuteSingle(
	ctx context.Context,
	request query.Request,
) (*report.Report, error) {
	service.singleCalls++
	return echoReport(request), nil
}

func (service *echoService) ExecuteBatch(
	ctx context.Context,
	requests map[string]query.Request,
) (map[string]*report.Report, error) {
	service.batchCalls++
	results := make(map[string]*report.Report, len(requests))
	for name, request := range requests {
		results[query.BatchKey(name)] = echoReport(request)
	}
	return results, nil
}

func TestClientQuery(t *testing.T) {
	service := &echoService{}
	gaClient := client.NewWithService(service)

	rows, err := gaClient.Query(context.Background(), query.Params{ProfileID: "ga:1"})
	require.NoError(t, err)

	assert.Equal(t, []report.Row{{"profile": "ga:1"}}, rows)
	assert.Equal(t, 1, service.singleCalls)
}

func TestClientBatch(t *testing.T) {
	service := &echoService{}
	gaClient := client.NewWithService(service)

	require.NoError(t, gaClient.BeginBatch())
	require.NoError(t, gaClient.AddToBatch("first", query.Params{ProfileID: "ga:1"}))
	require.NoError(t, gaClient.AddToBatch("second", query.Params{ProfileID: "ga:2"}))

	results, err := gaClient.ExecuteBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []report.Row{{"profile": "ga:1"}}, results["first"])
	assert.Equal(t, []report.Row{{"profile": "ga:2"}}, results["second"])
	assert.Equal(t, 1, service.batchCalls)
	assert.Zero(t, service.singleCalls)

	require.NoError(t, gaClient.BeginBatch())
}

func TestClientExecuteWithoutBegin(t *testing.T) {
	gaClient := client.NewWithService(&echoService{})

	_, err := gaClient.ExecuteBatch(context.Background())
	assert.True(t, query.IsKind(err, query.InvalidState))
}

func TestClientSeparateBatches(t *testing.T) {
	gaClient := client.NewWithService(&echoService{})

	require.NoError(t, gaClient.BeginBatch())
	require.NoError(t, gaClient.AddToBatch("mine", query.Params{ProfileID: "ga:1"}))

	other := gaClient.NewBatch()
	require.NoError(t, other.Begin())
	require.NoError(t, other.Add("theirs", query.Params{ProfileID: "ga:2"}))

	otherResults, err := other.Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, otherResults, "theirs")
	assert.NotContains(t, otherResults, "mine")

	results, err := gaClient.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, results, "mine")
}

func TestNewAuthFailure(t *testing.T) {
	_, err := client.New(
		context.Background(),
		"gaquery-test",
		"reporter@project.iam.gserviceaccount.com",
		filepath.Join(t.TempDir(), "missing-key.json"),
	)
	assert.True(t, query.IsKind(err, query.AuthFailure))
}
