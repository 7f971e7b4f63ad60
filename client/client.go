// Package client is the entry point for querying the Google Analytics reporting API: single
// queries with Query, and batches with BeginBatch, AddToBatch and ExecuteBatch.
package client

import (
	"context"

	"hermannm.dev/gaquery/analytics"
	"hermannm.dev/gaquery/batch"
	"hermannm.dev/gaquery/query"
	"hermannm.dev/gaquery/report"
)

type Client struct {
	executor *query.Executor
	batch    *batch.Coordinator
}

type Option func(config *analytics.Config)

func WithRequestsPerSecond(requestsPerSecond float64) Option {
	return func(config *analytics.Config) {
		config.RequestsPerSecond = requestsPerSecond
	}
}

func WithBatchConcurrency(concurrency int) Option {
	return func(config *analytics.Config) {
		config.BatchConcurrency = concurrency
	}
}

// New authenticates with the given service account. Fails with a query.AuthFailure error if the
// credentials are unusable.
func New(
	ctx context.Context,
	applicationName string,
	serviceAccountEmail string,
	keyFileLocation string,
	options ...Option,
) (*Client, error) {
	config := analytics.Config{
		ApplicationName:     applicationName,
		ServiceAccountEmail: serviceAccountEmail,
		KeyFile:             keyFileLocation,
	}
	for _, option := range options {
		option(&config)
	}

	service, err := analytics.NewService(ctx, config)
	if err != nil {
		return nil, err
	}

	return NewWithService(service), nil
}

// NewWithService creates a client on top of any reporting service implementation.
func NewWithService(service query.Service) *Client {
	executor := query.NewExecutor(service)
	return &Client{executor: executor, batch: batch.NewCoordinator(executor)}
}

func (client *Client) Query(ctx context.Context, params query.Params) ([]report.Row, error) {
	return client.executor.Query(ctx, params)
}

func (client *Client) BeginBatch() error {
	return client.batch.Begin()
}

func (client *Client) AddToBatch(name string, params query.Params) error {
	return client.batch.Add(name, params)
}

func (client *Client) ExecuteBatch(ctx context.Context) (batch.ResultSet, error) {
	return client.batch.Execute(ctx)
}

// NewBatch returns a coordinator independent of the client's own batch, for callers running
// several batches at once.
func (client *Client) NewBatch() *batch.Coordinator {
	return batch.NewCoordinator(client.executor)
}

func (client *Client) Executor() *query.Executor {
	return client.executor
}
