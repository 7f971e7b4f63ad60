// Package analytics implements query.Service on top of the Google Analytics Core Reporting API
// (v3).
package analytics

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	ga "google.golang.org/api/analytics/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"hermannm.dev/gaquery/datatypes"
	"hermannm.dev/gaquery/log"
	"hermannm.dev/gaquery/query"
	"hermannm.dev/gaquery/report"
	"hermannm.dev/wrap"
)

type Config struct {
	// Sent as user agent on requests.
	ApplicationName     string
	ServiceAccountEmail string
	// Path to a JSON service account key, or a PEM private key.
	KeyFile string
	// Rate limit for requests to the API. 0 disables limiting.
	RequestsPerSecond float64
	// Maximum number of batch requests in flight at once. Values below 1 mean 1.
	BatchConcurrency int
}

// Implements query.Service.
type Service struct {
	api              *ga.Service
	limiter          *rate.Limiter
	batchConcurrency int
}

var _ query.Service = (*Service)(nil)

// NewService authenticates with the service account from the given config. Fails with a
// query.AuthFailure error if the credentials are unusable.
func NewService(ctx context.Context, config Config) (*Service, error) {
	tokenSource, err := authenticate(ctx, config.ServiceAccountEmail, config.KeyFile)
	if err != nil {
		return nil, err
	}

	return NewServiceWithClientOptions(ctx, config, option.WithTokenSource(tokenSource))
}

// NewServiceWithClientOptions ignores the credentials in the given config: the client options must
// provide authentication themselves (or an HTTP client that does).
func NewServiceWithClientOptions(
	ctx context.Context,
	config Config,
	clientOptions ...option.ClientOption,
) (*Service, error) {
	if config.ApplicationName != "" {
		clientOptions = append(clientOptions, option.WithUserAgent(config.ApplicationName))
	}

	api, err := ga.NewService(ctx, clientOptions...)
	if err != nil {
		return nil, wrap.Error(err, "failed to create reporting API client")
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	batchConcurrency := config.BatchConcurrency
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}

	return &Service{
		api:              api,
		limiter:          rate.NewLimiter(limit, 1),
		batchConcurrency: batchConcurrency,
	}, nil
}

func (service *Service) ExecuteSingle(
	ctx context.Context,
	request query.Request,
) (*report.Report, error) {
	if err := service.limiter.Wait(ctx); err != nil {
		return nil, wrap.Error(err, "rate limiter wait canceled")
	}

	call := service.api.Data.Ga.Get(
		request.ProfileID,
		request.StartDate,
		request.EndDate,
		request.Metrics,
	)
	if request.Dimensions != "" {
		call = call.Dimensions(request.Dimensions)
	}
	if request.Filters != "" {
		call = call.Filters(request.Filters)
	}

	callOptions := make([]googleapi.CallOption, 0, len(request.Extra))
	for key, value := range request.Extra {
		callOptions = append(callOptions, googleapi.QueryParameter(key, value))
	}

	data, err := call.Context(ctx).Do(callOptions...)
	if err != nil {
		return nil, wrapAPIError(err, "reporting API request failed")
	}
	if data == nil {
		return nil, nil
	}

	result, err := convertData(data)
	if err != nil {
		return nil, query.WrapError(err, query.UpstreamFailure, "failed to read report data")
	}
	return result, nil
}

// The v3 Go client has no batch endpoint, so requests run concurrently (bounded by
// BatchConcurrency and the rate limit). The batch fails if any request fails.
func (service *Service) ExecuteBatch(
	ctx context.Context,
	requests map[string]query.Request,
) (map[string]*report.Report, error) {
	results := make(map[string]*report.Report, len(requests))
	var resultsLock sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(service.batchConcurrency)

	for name, request := range requests {
		group.Go(func() error {
			result, err := service.ExecuteSingle(groupCtx, request)
			if err != nil {
				return wrap.Errorf(err, "batch request '%s' failed", name)
			}

			resultsLock.Lock()
			results[query.BatchKey(name)] = result
			resultsLock.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	log.Debug("batch completed", slog.Int("results", len(results)))
	return results, nil
}

func convertData(data *ga.GaData) (*report.Report, error) {
	result := &report.Report{
		Columns:             make([]report.Column, 0, len(data.ColumnHeaders)),
		Rows:                make([][]any, 0, len(data.Rows)),
		ContainsSampledData: data.ContainsSampledData,
		TotalResults:        data.TotalResults,
		TotalsForAllResults: data.TotalsForAllResults,
	}

	for _, header := range data.ColumnHeaders {
		if header == nil {
			continue
		}

		dataType, known := datatypes.FromAnalyticsType(header.DataType)
		if !known {
			log.Warn(
				"unknown data type in report column, keeping values as strings",
				slog.String("column", header.Name),
				slog.String("dataType", header.DataType),
			)
		}

		column := report.Column{Name: header.Name, DataType: dataType}
		switch header.ColumnType {
		case "DIMENSION":
			column.Type = report.ColumnTypeDimension
		case "METRIC":
			column.Type = report.ColumnTypeMetric
		}

		result.Columns = append(result.Columns, column)
	}

	for rowIndex, rawRow := range data.Rows {
		// Rows that don't match the columns are passed on as-is, and rejected by report.ParseData
		row := make([]any, len(rawRow))
		for i, field := range rawRow {
			if i >= len(result.Columns) {
				row[i] = field
				continue
			}

			column := result.Columns[i]
			value, err := datatypes.ConvertField(field, column.DataType)
			if err != nil {
				return nil, wrap.Errorf(
					err,
					"failed to convert value '%s' in row %d to %s for column '%s'",
					field,
					rowIndex,
					column.DataType,
					column.Name,
				)
			}
			row[i] = value
		}

		result.Rows = append(result.Rows, row)
	}

	return result, nil
}
