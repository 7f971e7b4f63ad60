package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/gaquery/config"
)

func setAnalyticsEnv(t *testing.T) {
	t.Setenv("ANALYTICS_APPLICATION_NAME", "gaquery-test")
	t.Setenv("ANALYTICS_SERVICE_ACCOUNT_EMAIL", "reporter@project.iam.gserviceaccount.com")
	t.Setenv("ANALYTICS_KEY_FILE", "/secrets/key.json")
}

func TestParseDefaults(t *testing.T) {
	setAnalyticsEnv(t)

	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, "gaquery-test", cfg.Analytics.ApplicationName)
	assert.Equal(t, "/secrets/key.json", cfg.Analytics.KeyFile)
	assert.Equal(t, 10.0, cfg.Analytics.RequestsPerSecond)
	assert.Equal(t, 4, cfg.Analytics.BatchConcurrency)
	assert.Equal(t, "8000", cfg.API.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, config.SinkNone, cfg.Sink)
	assert.False(t, cfg.IsProduction)
}

func TestParseMissingRequired(t *testing.T) {
	t.Setenv("ANALYTICS_APPLICATION_NAME", "gaquery-test")

	_, err := config.Parse()
	assert.ErrorContains(t, err, "ANALYTICS_SERVICE_ACCOUNT_EMAIL")
}

func TestParseClickHouseSink(t *testing.T) {
	setAnalyticsEnv(t)
	t.Setenv("SINK", "clickhouse")
	t.Setenv("CLICKHOUSE_ADDRESS", "localhost:9000")
	t.Setenv("CLICKHOUSE_DB_NAME", "analytics")
	t.Setenv("CLICKHOUSE_USERNAME", "default")
	t.Setenv("CLICKHOUSE_PASSWORD", "secret")

	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, config.SinkClickHouse, cfg.Sink)
	assert.Equal(t, "localhost:9000", cfg.ClickHouse.Address)
	assert.Equal(t, "analytics", cfg.ClickHouse.DatabaseName)
	assert.False(t, cfg.ClickHouse.Debug)
}

func TestParseElasticsearchSinkMissingAddress(t *testing.T) {
	setAnalyticsEnv(t)
	t.Setenv("SINK", "elasticsearch")

	_, err := config.Parse()
	assert.ErrorContains(t, err, "ELASTICSEARCH_ADDRESS")
}

func TestParseUnsupportedSink(t *testing.T) {
	setAnalyticsEnv(t)
	t.Setenv("SINK", "postgres")

	_, err := config.Parse()
	assert.ErrorContains(t, err, "unsupported value 'postgres' for SINK")
}
