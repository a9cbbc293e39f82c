package main

import (
	"encoding/json"
	"fmt"
	"io"

	csvsource "github.com/couchcryptid/air-quality-etl/internal/adapter/csv"
	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every subcommand. Defaults
// come from the same environment variables the service reads.
type options struct {
	data      string
	pollutant string
	station   string
	from      int
	to        int
	threshold float64
	verbose   bool

	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &options{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "aqctl",
		Short:         "Clean and evaluate hourly air-quality station data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.PersistentFlags()
	f.StringVar(&o.data, "data", "", "CSV file or directory of station files (default $DATA_DIR)")
	f.StringVar(&o.pollutant, "pollutant", "", "pollutant column (default $POLLUTANT_COLUMN)")
	f.StringVar(&o.station, "station", "", "station name (default $DEFAULT_STATION)")
	f.IntVar(&o.from, "from", 0, "first year, inclusive (default first year of data)")
	f.IntVar(&o.to, "to", 0, "last year, inclusive (default last year of data)")
	f.Float64Var(&o.threshold, "threshold", 0, "high-risk threshold (default $RISK_THRESHOLD)")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "log pipeline stages to stderr")

	root.AddCommand(
		newStationsCmd(o),
		newSummaryCmd(o),
		newTrendCmd(o),
		newRegressCmd(o),
	)
	return root
}

// load resolves flag defaults from the environment.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("data") {
		cfg.DataDir = o.data
	}
	if f.Changed("pollutant") {
		cfg.PollutantColumn = o.pollutant
	}
	if f.Changed("station") {
		cfg.DefaultStation = o.station
	}
	if f.Changed("threshold") {
		if o.threshold <= 0 {
			return fmt.Errorf("--threshold must be positive, got %g", o.threshold)
		}
		cfg.RiskThreshold = o.threshold
	}
	o.cfg = cfg
	return nil
}

func (o *options) query() pipeline.Query {
	return pipeline.Query{From: o.from, To: o.to}
}

// service builds a pipeline over the CSV catalog. Metrics go to a private
// registry so repeated invocations in one process do not collide.
func (o *options) service(split domain.SplitConfig) *pipeline.Service {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger := observability.NewTextLogger(o.stderr, level)
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())

	catalog := csvsource.NewCatalog(o.cfg.DataDir, o.cfg.PollutantColumn)
	store := pipeline.NewStore(pipeline.NewCleaner(logger, metrics), 1, logger, metrics)
	return pipeline.NewService(catalog, store, pipeline.Options{
		DefaultStation: o.cfg.DefaultStation,
		Split:          split,
		Threshold:      o.cfg.RiskThreshold,
	}, logger, metrics)
}

func (o *options) defaultSplit() domain.SplitConfig {
	return domain.SplitConfig{Seed: o.cfg.SplitSeed, TestFraction: o.cfg.TestFraction}
}

func (o *options) print(v any) error {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
