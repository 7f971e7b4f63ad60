package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"hermannm.dev/gaquery/api"
	"hermannm.dev/gaquery/batch"
	"hermannm.dev/gaquery/client"
	"hermannm.dev/gaquery/config"
	"hermannm.dev/gaquery/csv"
	"hermannm.dev/gaquery/filter"
	"hermannm.dev/gaquery/log"
	"hermannm.dev/gaquery/query"
	"hermannm.dev/gaquery/report"
	"hermannm.dev/gaquery/sink"
	"hermannm.dev/gaquery/sink/clickhouse"
	"hermannm.dev/gaquery/sink/elasticsearch"
	"hermannm.dev/wrap"
)

func main() {
	log.Setup(os.Stderr, slog.LevelInfo, false)

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Error(err, "")
		os.Exit(1)
	}
}

type outputOptions struct {
	format    string
	delimiter string
}

func newRootCmd() *cobra.Command {
	var output outputOptions

	cmd := &cobra.Command{
		Use:           "gaquery",
		Short:         "Query the Google Analytics reporting API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&output.format, "format", "json", "Output format: json or csv")
	cmd.PersistentFlags().StringVar(&output.delimiter, "delimiter", ",", "Field delimiter for csv output")

	cmd.AddCommand(
		newQueryCmd(&output),
		newBatchCmd(&output),
		newFilterCmd(),
		newServeCmd(),
	)
	return cmd
}

func newQueryCmd(output *outputOptions) *cobra.Command {
	var (
		params     query.Params
		profileID  string
		metrics    []string
		dimensions []string
		options    map[string]string
		table      string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a single query and print the result rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params.ProfileID = query.ProfileID(profileID)
			params.Metrics = metrics
			params.Options.Dimensions = dimensions
			params.Options.Extra = options

			app, err := startApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			rows, err := app.client.Query(cmd.Context(), params)
			if err != nil {
				return err
			}

			if table != "" {
				if err := app.store(cmd.Context(), table, rows); err != nil {
					return err
				}
			}

			return writeRows(cmd.OutOrStdout(), rows, *output)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&profileID, "profile", "", "Profile ID to query, e.g. ga:86055307")
	flags.StringSliceVar(&metrics, "metrics", nil, "Metrics to query (default ga:sessions)")
	flags.StringSliceVar(&dimensions, "dimensions", nil, "Dimensions to split results by")
	flags.StringVar(&params.Options.Filters, "filters", "", "Filter expression, e.g. 'sessions>100 && browser==Chrome'")
	flags.StringVar(&params.StartDate, "start", "", "Start date (default 30daysAgo)")
	flags.StringVar(&params.EndDate, "end", "", "End date (default today)")
	flags.StringToStringVar(&options, "option", nil, "Extra query parameters passed through to the API, as key=value")
	flags.StringVar(&table, "table", "", "Also store result rows in this table of the configured sink")

	return cmd
}

func newBatchCmd(output *outputOptions) *cobra.Command {
	var (
		store     bool
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Run the named queries of a YAML batch file as one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readBatchFile(args[0])
			if err != nil {
				return err
			}

			app, err := startApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			results, err := app.client.NewBatch().Run(cmd.Context(), entries)
			if err != nil {
				return err
			}

			if store {
				if app.sink == nil {
					return wrap.Error(sink.ErrNoSink, "cannot store batch results")
				}
				if err := sink.StoreAll(cmd.Context(), app.sink, app.config.TablePrefix, results); err != nil {
					return err
				}
			}

			return writeResults(cmd.OutOrStdout(), outputDir, results, *output)
		},
	}

	cmd.Flags().BoolVar(&store, "store", false, "Store each result in a table of the configured sink, named by the entry")
	cmd.Flags().StringVar(&outputDir, "out-dir", ".", "Directory to write one file per result to, for csv output")

	return cmd
}

func newFilterCmd() *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "filter <expression>",
		Short: "Print the normalized form of a filter expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if trace {
				for _, stage := range filter.Trace(args[0]) {
					fmt.Fprintf(out, "%-20s %s\n", stage.Stage, stage.Output)
				}
				return nil
			}

			normalized, ok := filter.Normalize(args[0])
			if !ok {
				fmt.Fprintln(out, "(no filter)")
				return nil
			}
			fmt.Fprintln(out, normalized)
			return nil
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "Print the output of each normalization stage")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve queries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := startApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			queryAPI := api.NewQueryAPI(
				app.client,
				app.sink,
				api.Config{Port: app.config.API.Port, TablePrefix: app.config.TablePrefix},
			)

			log.Infof("listening on port %s", app.config.API.Port)
			if err := queryAPI.ListenAndServe(); err != nil {
				return wrap.Error(err, "server stopped")
			}
			return nil
		},
	}
}

type app struct {
	config config.Config
	client *client.Client
	// Nil if no sink is configured.
	sink  sink.Sink
	close func()
}

func startApp(ctx context.Context) (app, error) {
	cfg, err := config.ReadFromEnv()
	if err != nil {
		return app{}, wrap.Error(err, "failed to read config from env")
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return app{}, wrap.Error(err, "invalid LOG_LEVEL")
	}
	log.Setup(os.Stderr, level, cfg.IsProduction)

	log.Debug("authenticating with reporting API")
	gaClient, err := client.New(
		ctx,
		cfg.Analytics.ApplicationName,
		cfg.Analytics.ServiceAccountEmail,
		cfg.Analytics.KeyFile,
		client.WithRequestsPerSecond(cfg.Analytics.RequestsPerSecond),
		client.WithBatchConcurrency(cfg.Analytics.BatchConcurrency),
	)
	if err != nil {
		return app{}, wrap.Error(err, "failed to create reporting client")
	}

	resultSink, closeSink, err := openSink(cfg)
	if err != nil {
		return app{}, wrap.Error(err, "failed to initialize sink")
	}

	return app{config: cfg, client: gaClient, sink: resultSink, close: closeSink}, nil
}

func (app app) store(ctx context.Context, table string, rows []report.Row) error {
	if app.sink == nil {
		return wrap.Error(sink.ErrNoSink, "cannot store query result")
	}
	return sink.Store(ctx, app.sink, app.config.TablePrefix+table, rows)
}

func openSink(cfg config.Config) (resultSink sink.Sink, closeSink func(), err error) {
	switch cfg.Sink {
	case config.SinkClickHouse:
		log.Info("connecting to ClickHouse", slog.String("address", cfg.ClickHouse.Address))
		clickhouseSink, err := clickhouse.NewClickHouseSink(cfg.ClickHouse)
		if err != nil {
			return nil, nil, err
		}
		return clickhouseSink, func() {
			if err := clickhouseSink.Close(); err != nil {
				log.Error(err, "failed to close ClickHouse connection")
			}
		}, nil
	case config.SinkElasticsearch:
		log.Info("connecting to Elasticsearch", slog.String("address", cfg.Elasticsearch.Address))
		elasticSink, err := elasticsearch.NewElasticsearchSink(cfg.Elasticsearch)
		if err != nil {
			return nil, nil, err
		}
		return elasticSink, func() {}, nil
	default:
		return nil, func() {}, nil
	}
}

func readBatchFile(path string) ([]batch.Entry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read batch file '%s'", path)
	}

	var entries []batch.Entry
	if err := yaml.Unmarshal(content, &entries); err != nil {
		return nil, wrap.Errorf(err, "failed to parse batch file '%s'", path)
	}

	return entries, nil
}

func writeRows(output io.Writer, rows []report.Row, options outputOptions) error {
	switch options.format {
	case "json":
		encoder := json.NewEncoder(output)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case "csv":
		delimiter, err := csv.ParseDelimiter(options.delimiter)
		if err != nil {
			return err
		}
		writer, err := csv.NewWriter(output, delimiter)
		if err != nil {
			return err
		}
		return writer.WriteRows(rows)
	default:
		return fmt.Errorf("unsupported output format '%s' (must be json or csv)", options.format)
	}
}

// JSON output prints all results as one object. CSV output writes a file per result.
func writeResults(
	output io.Writer,
	outputDir string,
	results batch.ResultSet,
	options outputOptions,
) error {
	switch options.format {
	case "json":
		encoder := json.NewEncoder(output)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	case "csv":
	default:
		return fmt.Errorf("unsupported output format '%s' (must be json or csv)", options.format)
	}

	for name, rows := range results {
		if filepath.Base(name) != name {
			return fmt.Errorf("result name '%s' cannot be used as a file name", name)
		}

		path := filepath.Join(outputDir, name+".csv")
		if err := writeCSVFile(path, rows, options); err != nil {
			return wrap.Errorf(err, "failed to write result '%s'", name)
		}
		fmt.Fprintln(output, path)
	}
	return nil
}

func writeCSVFile(path string, rows []report.Row, options outputOptions) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return writeRows(file, rows, options)
}
