package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/gaquery/api"
	"hermannm.dev/gaquery/client"
	"hermannm.dev/gaquery/datatypes"
	"hermannm.dev/gaquery/query"
	"hermannm.dev/gaquery/report"
	"hermannm.dev/gaquery/sink"
)

type stubService struct {
	err error
}

func sessionsReport(request query.Request) *report.Report {
	return &report.Report{
		Columns: []report.Column{
			{Name: "ga:browser", Type: report.ColumnTypeDimension, DataType: datatypes.DataTypeString},
			{Name: "ga:sessions", Type: report.ColumnTypeMetric, DataType: datatypes.DataTypeInt},
		},
		Rows: [][]any{{"Chrome", int64(100)}, {request.ProfileID, int64(7)}},
	}
}

func (service stubService) ExecuteSingle(
	ctx context.Context,
	request query.Request,
) (*report.Report, error) {
	if service.err != nil {
		return nil, service.err
	}
	return sessionsReport(request), nil
}

func (service stubService) ExecuteBatch(
	ctx context.Context,
	requests map[string]query.Request,
) (map[string]*report.Report, error) {
	if service.err != nil {
		return nil, service.err
	}
	results := make(map[string]*report.Report, len(requests))
	for name, request := range requests {
		results[query.BatchKey(name)] = sessionsReport(request)
	}
	return results, nil
}

type recordingSink struct {
	lock   sync.Mutex
	tables map[string][]report.Row
}

func (recorder *recordingSink) CreateTable(
	ctx context.Context,
	table string,
	schema datatypes.Schema,
) error {
	return nil
}

func (recorder *recordingSink) InsertRows(
	ctx context.Context,
	table string,
	schema datatypes.Schema,
	rows []report.Row,
) error {
	recorder.lock.Lock()
	defer recorder.lock.Unlock()
	recorder.tables[table] = rows
	return nil
}

func (recorder *recordingSink) DropTable(
	ctx context.Context,
	table string,
) (alreadyDropped bool, err error) {
	return true, nil
}

func newTestServer(
	t *testing.T,
	service query.Service,
	withSink bool,
) (*httptest.Server, *recordingSink) {
	var recorder *recordingSink
	var resultSink sink.Sink
	if withSink {
		recorder = &recordingSink{tables: make(map[string][]report.Row)}
		resultSink = recorder
	}

	queryAPI := api.NewQueryAPI(
		client.NewWithService(service),
		resultSink,
		api.Config{TablePrefix: "ga_"},
	)

	server := httptest.NewServer(queryAPI)
	t.Cleanup(server.Close)
	return server, recorder
}

func post(t *testing.T, url string, body string) (status int, responseBody string) {
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()

	var builder strings.Builder
	_, err = builder.ReadFrom(res.Body)
	require.NoError(t, err)
	return res.StatusCode, builder.String()
}

func TestQueryEndpoint(t *testing.T) {
	server, _ := newTestServer(t, stubService{}, false)

	status, body := post(t, server.URL+"/query", `{"profileId": "ga:1", "metrics": "ga:sessions"}`)
	require.Equal(t, http.StatusOK, status, body)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	assert.Equal(t, []map[string]any{
		{"ga:browser": "Chrome", "ga:sessions": 100.0},
		{"ga:browser": "ga:1", "ga:sessions": 7.0},
	}, rows)
}

func TestQueryEndpointInvalidProfileID(t *testing.T) {
	server, _ := newTestServer(t, stubService{}, false)

	status, body := post(t, server.URL+"/query", `{"profileId": 42}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Profile ID needs to be set")

	status, _ = post(t, server.URL+"/query", `{"metrics": "ga:users"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestQueryEndpointMalformedJSON(t *testing.T) {
	server, _ := newTestServer(t, stubService{}, false)

	status, _ := post(t, server.URL+"/query", `{"profileId": `)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestQueryEndpointUpstreamFailure(t *testing.T) {
	upstreamErr := query.NewError(query.UpstreamFailure, "reporting service unavailable")
	server, _ := newTestServer(t, stubService{err: upstreamErr}, false)

	status, body := post(t, server.URL+"/query", `{"profileId": "ga:1"}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body, "reporting service unavailable")
}

func TestQueryEndpointStoresInSink(t *testing.T) {
	server, recorder := newTestServer(t, stubService{}, true)

	status, body := post(t, server.URL+"/query?table=sessions", `{"profileId": "ga:1"}`)
	require.Equal(t, http.StatusOK, status, body)

	assert.Len(t, recorder.tables["ga_sessions"], 2)
}

func TestQueryEndpointTableWithoutSink(t *testing.T) {
	server, _ := newTestServer(t, stubService{}, false)

	status, _ := post(t, server.URL+"/query?table=sessions", `{"profileId": "ga:1"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBatchEndpoint(t *testing.T) {
	server, recorder := newTestServer(t, stubService{}, true)

	status, body := post(t, server.URL+"/batch?store=true", `[
		{"name": "first", "params": {"profileId": "ga:1"}},
		{"name": "second", "params": {"profileId": "ga:2", "options": {"dimensions": "ga:browser"}}}
	]`)
	require.Equal(t, http.StatusOK, status, body)

	var results map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "ga:1", results["first"][1]["ga:browser"])
	assert.Equal(t, "ga:2", results["second"][1]["ga:browser"])

	assert.Contains(t, recorder.tables, "ga_first")
	assert.Contains(t, recorder.tables, "ga_second")
}

func TestBatchEndpointEmpty(t *testing.T) {
	server, _ := newTestServer(t, stubService{}, false)

	status, body := post(t, server.URL+"/batch", `[]`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{}`, body)
}

func TestBatchEndpointInvalidEntry(t *testing.T) {
	server, _ := newTestServer(t, stubService{}, false)

	status, body := post(t, server.URL+"/batch", `[{"name": "", "params": {"profileId": "ga:1"}}]`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "invalid batch entry 0")
}

func TestFilterEndpoint(t *testing.T) {
	server, _ := newTestServer(t, stubService{}, false)

	status, body := post(t, server.URL+"/filter?trace=true", `{"filter": "sessions>100 && users<50"}`)
	require.Equal(t, http.StatusOK, status)

	var response api.FilterResponse
	require.NoError(t, json.Unmarshal([]byte(body), &response))
	assert.Equal(t, "ga:sessions>100;ga:users<50", response.Filter)
	assert.True(t, response.Present)
	assert.NotEmpty(t, response.Stages)
}

func TestSchemaEndpoint(t *testing.T) {
	server, _ := newTestServer(t, stubService{}, false)

	status, body := post(t, server.URL+"/schema", `{"profileId": "ga:1"}`)
	require.Equal(t, http.StatusOK, status, body)

	assert.JSONEq(t, `{"columns": [
		{"name": "ga:browser", "dataType": "STRING", "optional": false},
		{"name": "ga:sessions", "dataType": "INTEGER", "optional": false}
	]}`, body)
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, stubService{}, false)

	res, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
