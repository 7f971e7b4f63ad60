package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"hermannm.dev/wrap"
)

type Config struct {
	BaseConfig
	ClickHouse    ClickHouse
	Elasticsearch Elasticsearch
}

type BaseConfig struct {
	IsProduction bool   `env:"PRODUCTION" envDefault:"false"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"INFO"`
	Sink         Sink   `env:"SINK" envDefault:""`
	TablePrefix  string `env:"SINK_TABLE_PREFIX" envDefault:"ga_"`
	Analytics    Analytics
	API          API
}

type Analytics struct {
	ApplicationName     string  `env:"ANALYTICS_APPLICATION_NAME"`
	ServiceAccountEmail string  `env:"ANALYTICS_SERVICE_ACCOUNT_EMAIL"`
	KeyFile             string  `env:"ANALYTICS_KEY_FILE"`
	RequestsPerSecond   float64 `env:"ANALYTICS_REQUESTS_PER_SECOND" envDefault:"10"`
	BatchConcurrency    int     `env:"ANALYTICS_BATCH_CONCURRENCY" envDefault:"4"`
}

type API struct {
	Port string `env:"API_PORT" envDefault:"8000"`
}

type ClickHouse struct {
	Address      string `env:"CLICKHOUSE_ADDRESS"`
	DatabaseName string `env:"CLICKHOUSE_DB_NAME"`
	Username     string `env:"CLICKHOUSE_USERNAME"`
	Password     string `env:"CLICKHOUSE_PASSWORD"`
	Debug        bool   `env:"CLICKHOUSE_DEBUG_ENABLED" envDefault:"false"`
}

type Elasticsearch struct {
	Address string `env:"ELASTICSEARCH_ADDRESS"`
	Debug   bool   `env:"ELASTICSEARCH_DEBUG_ENABLED" envDefault:"false"`
}

// Storage for query results. Empty means results are only returned, not stored.
type Sink string

const (
	SinkNone          Sink = ""
	SinkClickHouse    Sink = "clickhouse"
	SinkElasticsearch Sink = "elasticsearch"
)

// ReadFromEnv loads variables from a .env file if one exists, then parses the environment.
// Database variables are only required for the selected sink.
func ReadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, wrap.Error(err, "failed to load .env file")
	}

	return Parse()
}

func Parse() (Config, error) {
	parseOptions := env.Options{RequiredIfNoDef: true}

	var config Config

	if err := env.ParseWithOptions(&config.BaseConfig, parseOptions); err != nil {
		return Config{}, err
	}

	switch config.Sink {
	case SinkNone:
	case SinkClickHouse:
		if err := env.ParseWithOptions(&config.ClickHouse, parseOptions); err != nil {
			return Config{}, err
		}
	case SinkElasticsearch:
		if err := env.ParseWithOptions(&config.Elasticsearch, parseOptions); err != nil {
			return Config{}, err
		}
	default:
		err := fmt.Errorf("must be one of: '%s', '%s'", SinkClickHouse, SinkElasticsearch)
		return Config{}, wrap.Errorf(err, "unsupported value '%s' for SINK in env", config.Sink)
	}

	return config, nil
}
