package pipeline

import (
	"encoding/json"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// Report bundles one dashboard pass over a window.
type Report struct {
	ID           string
	Station      string
	Source       string
	From         int
	To           int
	GeneratedAt  time.Time
	Empty        bool
	Bounds       domain.ClipBounds
	Summary      domain.Summary
	Trend        []domain.MonthlyPoint
	Distribution []float64
	Regression   *domain.RegressionResult
	Published    bool
}

// MarshalJSON encodes missing readings and an undefined R² as null.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           string                `json:"id"`
		Station      string                `json:"station"`
		Source       string                `json:"source"`
		From         int                   `json:"from"`
		To           int                   `json:"to"`
		GeneratedAt  time.Time             `json:"generated_at"`
		Empty        bool                  `json:"empty"`
		Bounds       domain.ClipBounds     `json:"clip_bounds"`
		Summary      domain.Summary        `json:"summary"`
		Trend        []domain.MonthlyPoint `json:"trend"`
		Distribution []*float64            `json:"distribution"`
		Regression   *RegressionView       `json:"regression,omitempty"`
	}{
		ID:           r.ID,
		Station:      r.Station,
		Source:       r.Source,
		From:         r.From,
		To:           r.To,
		GeneratedAt:  r.GeneratedAt,
		Empty:        r.Empty,
		Bounds:       r.Bounds,
		Summary:      r.Summary,
		Trend:        nonNil(r.Trend),
		Distribution: NullableFloats(r.Distribution),
		Regression:   NewRegressionView(r.Regression),
	})
}

// RegressionView is the wire form of a regression result.
type RegressionView struct {
	Covariates   []domain.Covariate           `json:"covariates"`
	Intercept    float64                      `json:"intercept"`
	Coefficients map[domain.Covariate]float64 `json:"coefficients"`
	R2           *float64                     `json:"r2"`
	RMSE         float64                      `json:"rmse"`
	TrainSize    int                          `json:"train_size"`
	TestSize     int                          `json:"test_size"`
	Seed         uint64                       `json:"seed"`
	TestFraction float64                      `json:"test_fraction"`
	Predictions  []domain.Prediction          `json:"predictions"`
}

// NewRegressionView converts res for encoding. It returns nil for nil.
func NewRegressionView(res *domain.RegressionResult) *RegressionView {
	if res == nil {
		return nil
	}
	coef := make(map[domain.Covariate]float64, len(res.Covariates))
	for i, c := range res.Covariates {
		coef[c] = res.Coefficients[i]
	}
	return &RegressionView{
		Covariates:   res.Covariates,
		Intercept:    res.Intercept,
		Coefficients: coef,
		R2:           nullable(res.R2),
		RMSE:         res.RMSE,
		TrainSize:    res.TrainSize,
		TestSize:     res.TestSize,
		Seed:         res.Split.Seed,
		TestFraction: res.Split.TestFraction,
		Predictions:  nonNil(res.Predictions),
	}
}

// NullableFloats maps missing values to nil pointers.
func NullableFloats(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = nullable(v)
	}
	return out
}

func nullable(v float64) *float64 {
	if domain.Missing(v) {
		return nil
	}
	return &v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
