package main

import (
	"fmt"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
	"github.com/spf13/cobra"
)

func newStationsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List the stations found under --data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := o.service(o.defaultSplit()).Stations(cmd.Context())
			if err != nil {
				return err
			}
			if names == nil {
				names = []string{}
			}
			return o.print(map[string][]string{"stations": names})
		},
	}
}

type windowOutput struct {
	Station string            `json:"station"`
	From    int               `json:"from"`
	To      int               `json:"to"`
	Bounds  domain.ClipBounds `json:"clip_bounds"`
}

func (o *options) window(cmd *cobra.Command, svc *pipeline.Service) (domain.Window, windowOutput, error) {
	w, err := svc.Window(cmd.Context(), o.query())
	if err != nil {
		return w, windowOutput{}, err
	}
	return w, windowOutput{
		Station: o.cfg.DefaultStation,
		From:    w.YearLow,
		To:      w.YearHigh,
		Bounds:  w.Bounds(),
	}, nil
}

func newSummaryCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Mean, maximum and high-risk share of the clipped pollutant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := o.service(o.defaultSplit())
			w, out, err := o.window(cmd, svc)
			if err != nil {
				return err
			}
			return o.print(struct {
				windowOutput
				Summary domain.Summary `json:"summary"`
			}{out, domain.Summarize(w, o.cfg.RiskThreshold)})
		},
	}
}

func newTrendCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "trend",
		Short: "Calendar-month means of the clipped pollutant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := o.service(o.defaultSplit())
			w, out, err := o.window(cmd, svc)
			if err != nil {
				return err
			}
			points := domain.MonthlyMean(w)
			if points == nil {
				points = []domain.MonthlyPoint{}
			}
			return o.print(struct {
				windowOutput
				Points []domain.MonthlyPoint `json:"points"`
			}{out, points})
		},
	}
}

func newRegressCmd(o *options) *cobra.Command {
	var (
		features     []string
		seed         uint64
		testFraction float64
	)
	cmd := &cobra.Command{
		Use:   "regress",
		Short: "Fit OLS on a random split and report R² and RMSE on the held-out rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			covs := make([]domain.Covariate, 0, len(features))
			for _, f := range features {
				c, err := domain.ParseCovariate(f)
				if err != nil {
					return err
				}
				covs = append(covs, c)
			}
			split := o.defaultSplit()
			if cmd.Flags().Changed("seed") {
				split.Seed = seed
			}
			if cmd.Flags().Changed("test-fraction") {
				if testFraction <= 0 || testFraction >= 1 {
					return fmt.Errorf("--test-fraction must be between 0 and 1, got %g", testFraction)
				}
				split.TestFraction = testFraction
			}

			res, err := o.service(split).RunRegression(cmd.Context(), o.query(), covs)
			if err != nil {
				return err
			}
			return o.print(pipeline.NewRegressionView(res))
		},
	}
	cmd.Flags().StringSliceVar(&features, "features", nil, "covariates to fit (TEMP, DEWP, PRES, WSPM)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "split seed (default $SPLIT_SEED)")
	cmd.Flags().Float64Var(&testFraction, "test-fraction", 0, "held-out share (default $TEST_FRACTION)")
	return cmd
}
