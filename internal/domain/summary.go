package domain

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultThreshold is the concentration above which a reading counts as a
// high-risk hour.
const DefaultThreshold = 75.0

// Risk band limits. Readings below GoodLimit are good, readings above
// UnhealthyLimit are unhealthy and everything in between is moderate.
const (
	GoodLimit      = 35.0
	UnhealthyLimit = 75.0
)

// RiskCounts counts readings per risk band.
type RiskCounts struct {
	Good      int `json:"good"`
	Moderate  int `json:"moderate"`
	Unhealthy int `json:"unhealthy"`
}

// Summary describes the clipped pollutant values of a window. Mean and Max are
// over non-missing readings. PercentAbove is over every hour in the window, a
// missing hour counting as not above. An empty summary has Count 0 and zero
// values.
type Summary struct {
	Count        int        `json:"count"`
	Missing      int        `json:"missing"`
	Mean         float64    `json:"mean"`
	Max          float64    `json:"max"`
	PercentAbove float64    `json:"percent_above"`
	Threshold    float64    `json:"threshold"`
	Categories   RiskCounts `json:"categories"`
}

// Empty reports whether the summary covers no readings.
func (s Summary) Empty() bool {
	return s.Count == 0
}

// Classify returns the risk band name for a concentration.
func Classify(v float64) string {
	switch {
	case v < GoodLimit:
		return "good"
	case v > UnhealthyLimit:
		return "unhealthy"
	default:
		return "moderate"
	}
}

// Summarize computes the mean, the maximum and the share of readings strictly
// above threshold.
func Summarize(w Window, threshold float64) Summary {
	s := Summary{Threshold: threshold}

	values := make([]float64, 0, w.Len())
	above := 0
	for _, v := range w.clipped() {
		if Missing(v) {
			s.Missing++
			continue
		}
		values = append(values, v)
		if v > threshold {
			above++
		}
		switch Classify(v) {
		case "good":
			s.Categories.Good++
		case "unhealthy":
			s.Categories.Unhealthy++
		default:
			s.Categories.Moderate++
		}
	}

	s.Count = len(values)
	if s.Count == 0 {
		return s
	}
	s.Mean = stat.Mean(values, nil)
	s.Max = floats.Max(values)
	s.PercentAbove = 100 * float64(above) / float64(w.Len())
	return s
}
