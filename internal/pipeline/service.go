package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/google/uuid"
)

// Query selects a station and an inclusive year range. Zero years default to
// the first and last year of the station's data. A zero Threshold uses the
// service default.
type Query struct {
	Station   string
	From      int
	To        int
	Threshold float64
}

// Params are the caller's choices for a dashboard pass.
type Params struct {
	Query
	Covariates    []domain.Covariate
	RunRegression bool
}

// Publisher delivers finished reports to an external sink.
type Publisher interface {
	Publish(ctx context.Context, r *Report) error
}

// Options configure a Service.
type Options struct {
	DefaultStation string
	Split          domain.SplitConfig
	Threshold      float64

	// Publisher is optional. When set, every dashboard report is published.
	Publisher Publisher
}

// Service is the evaluation surface over cleaned series. Windows, summaries,
// trends and regressions are recomputed on every call; only the cleaned
// series are cached, in the Store.
type Service struct {
	catalog Catalog
	store   *Store
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// NewService wires a catalog and store into a Service.
func NewService(catalog Catalog, store *Store, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if opts.Threshold == 0 {
		opts.Threshold = domain.DefaultThreshold
	}
	if opts.Split == (domain.SplitConfig{}) {
		opts.Split = domain.DefaultSplit
	}
	return &Service{
		catalog: catalog,
		store:   store,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once at least one station has been cleaned.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no station has been cleaned yet")
	}
	return nil
}

// Warm cleans the default station so the first request does not pay for it.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.CleanedSeries(ctx, "")
	return err
}

// Stations lists the stations the catalog can serve.
func (s *Service) Stations(ctx context.Context) ([]string, error) {
	return s.catalog.Stations(ctx)
}

// CleanedSeries returns the cached cleaned series of a station, cleaning it on
// first use. An empty station means the default one.
func (s *Service) CleanedSeries(ctx context.Context, station string) (*domain.CleanedSeries, error) {
	if station == "" {
		station = s.opts.DefaultStation
	}
	src, err := s.catalog.Source(ctx, station)
	if err != nil {
		return nil, err
	}
	cs, err := s.store.Get(ctx, src)
	if err != nil {
		return nil, err
	}
	if s.ready.CompareAndSwap(false, true) {
		s.metrics.Ready.Set(1)
	}
	return cs, nil
}

// Window resolves q against the station's data.
func (s *Service) Window(ctx context.Context, q Query) (domain.Window, error) {
	cs, err := s.CleanedSeries(ctx, q.Station)
	if err != nil {
		return domain.Window{}, err
	}
	first, last := cs.YearSpan()
	from, to := q.From, q.To
	if from == 0 {
		from = first
	}
	if to == 0 {
		to = last
	}
	return domain.Select(cs, from, to), nil
}

// Summary reports the mean, maximum and share above threshold of the window.
// An empty window yields a zero-count summary.
func (s *Service) Summary(ctx context.Context, q Query) (domain.Summary, error) {
	w, err := s.Window(ctx, q)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(w, s.threshold(q)), nil
}

// MonthlyTrend returns the monthly means of the window.
func (s *Service) MonthlyTrend(ctx context.Context, q Query) ([]domain.MonthlyPoint, error) {
	w, err := s.Window(ctx, q)
	if err != nil {
		return nil, err
	}
	return domain.MonthlyMean(w), nil
}

// Distribution returns a copy of the window's clipped values.
func (s *Service) Distribution(ctx context.Context, q Query) ([]float64, error) {
	w, err := s.Window(ctx, q)
	if err != nil {
		return nil, err
	}
	return w.Clipped(), nil
}

// RunRegression fits and scores a fresh model on the window.
func (s *Service) RunRegression(ctx context.Context, q Query, covariates []domain.Covariate) (*domain.RegressionResult, error) {
	if len(covariates) == 0 {
		return nil, &domain.StageError{Stage: domain.StageRegression, Msg: "no covariates selected", Err: domain.ErrEmptyFeatureSet}
	}
	w, err := s.Window(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.evaluate(w, covariates)
}

// Dashboard computes everything a dashboard view needs in one pass. The
// regression runs only when p.RunRegression is set. The report is published
// when a publisher is configured; a publish failure is logged and does not
// fail the call.
func (s *Service) Dashboard(ctx context.Context, p Params) (*Report, error) {
	if p.RunRegression && len(p.Covariates) == 0 {
		return nil, &domain.StageError{Stage: domain.StageRegression, Msg: "no covariates selected", Err: domain.ErrEmptyFeatureSet}
	}
	w, err := s.Window(ctx, p.Query)
	if err != nil {
		return nil, err
	}

	r := &Report{
		ID:           uuid.NewString(),
		Station:      s.station(p.Station),
		Source:       w.Series().Source,
		From:         w.YearLow,
		To:           w.YearHigh,
		GeneratedAt:  domain.Now(),
		Empty:        w.Empty(),
		Bounds:       w.Bounds(),
		Summary:      domain.Summarize(w, s.threshold(p.Query)),
		Trend:        domain.MonthlyMean(w),
		Distribution: w.Clipped(),
	}
	if p.RunRegression {
		res, err := s.evaluate(w, p.Covariates)
		if err != nil {
			return nil, err
		}
		r.Regression = res
	}

	s.publish(ctx, r)
	return r, nil
}

func (s *Service) evaluate(w domain.Window, covariates []domain.Covariate) (*domain.RegressionResult, error) {
	res, err := domain.Evaluate(w, covariates, s.opts.Split)
	if err != nil {
		s.metrics.Regressions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("evaluate %d-%d: %w", w.YearLow, w.YearHigh, err)
	}
	s.metrics.Regressions.WithLabelValues("ok").Inc()
	return res, nil
}

func (s *Service) publish(ctx context.Context, r *Report) {
	if s.opts.Publisher == nil {
		return
	}
	if err := s.opts.Publisher.Publish(ctx, r); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Warn("publish report failed", "report_id", r.ID, "station", r.Station, "error", err)
		return
	}
	r.Published = true
	s.metrics.ReportsPublished.Inc()
}

func (s *Service) threshold(q Query) float64 {
	if q.Threshold != 0 {
		return q.Threshold
	}
	return s.opts.Threshold
}

func (s *Service) station(name string) string {
	if name == "" {
		return s.opts.DefaultStation
	}
	return name
}
