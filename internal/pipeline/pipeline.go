package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

// StageExtract labels failures reading the source.
const StageExtract = "extract"

// Cleaner runs the extract, load, repair and clip stages for one source.
type Cleaner struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCleaner creates a Cleaner with the given observability.
func NewCleaner(logger *slog.Logger, metrics *observability.Metrics) *Cleaner {
	return &Cleaner{logger: logger, metrics: metrics}
}

// Clean produces the cleaned series of src. Any stage failure aborts the pass.
func (c *Cleaner) Clean(ctx context.Context, src Source) (*domain.CleanedSeries, error) {
	start := time.Now()
	c.metrics.CleanRuns.Inc()
	log := c.logger.With("source", src.ID(), "station", src.Station())

	var raws []domain.RawRecord
	err := c.stage(StageExtract, func() (err error) {
		raws, err = src.Extract(ctx)
		return err
	})
	if err != nil {
		return nil, c.fail(log, StageExtract, fmt.Errorf("extract %s: %w", src.Station(), err))
	}
	c.metrics.RowsLoaded.Observe(float64(len(raws)))

	var series domain.Series
	if err := c.stage(domain.StageLoad, func() (err error) {
		series, err = domain.Load(raws)
		return err
	}); err != nil {
		return nil, c.fail(log, domain.StageLoad, err)
	}

	var cs *domain.CleanedSeries
	if err := c.stage(domain.StageRepair, func() (err error) {
		cs, err = domain.Repair(series)
		return err
	}); err != nil {
		return nil, c.fail(log, domain.StageRepair, err)
	}

	if err := c.stage(domain.StageClip, func() (err error) {
		cs, err = domain.Clip(cs)
		return err
	}); err != nil {
		return nil, c.fail(log, domain.StageClip, err)
	}
	cs.Source = src.ID()

	first, last := cs.YearSpan()
	log.Info("series cleaned",
		"rows", cs.Len(),
		"years", fmt.Sprintf("%d-%d", first, last),
		"pollutant_filled", cs.Repair.PollutantFilled,
		"pollutant_unfilled", cs.Repair.PollutantUnfilled,
		"clip_low", cs.Bounds.Low,
		"clip_high", cs.Bounds.High,
		"duration", time.Since(start),
	)
	return cs, nil
}

func (c *Cleaner) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

func (c *Cleaner) fail(log *slog.Logger, stage string, err error) error {
	c.metrics.CleanErrors.WithLabelValues(stage).Inc()
	log.Error("cleaning failed", "stage", stage, "error", err)
	return err
}
