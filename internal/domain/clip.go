package domain

import (
	"math"
	"slices"
)

// Winsorization percentiles.
const (
	ClipLowQuantile  = 0.01
	ClipHighQuantile = 0.99
)

// ClipBounds is the closed interval pollutant values are clamped into.
type ClipBounds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Clamp returns v limited to [Low, High]. Missing values pass through.
func (b ClipBounds) Clamp(v float64) float64 {
	if Missing(v) {
		return v
	}
	return math.Min(math.Max(v, b.Low), b.High)
}

// Contains reports whether v lies in [Low, High].
func (b ClipBounds) Contains(v float64) bool {
	return v >= b.Low && v <= b.High
}

// Apply clamps every value into the bounds and returns a new slice.
// Applying the same bounds twice yields the same result as applying them once.
func (b ClipBounds) Apply(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = b.Clamp(v)
	}
	return out
}

// ComputeClipBounds returns the 1st and 99th percentiles of the non-missing
// values.
func ComputeClipBounds(values []float64) (ClipBounds, error) {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !Missing(v) {
			present = append(present, v)
		}
	}
	if len(present) < 2 {
		return ClipBounds{}, stageError(StageClip, ErrInsufficientData,
			"%d non-missing values, need at least 2", len(present))
	}
	slices.Sort(present)
	return ClipBounds{
		Low:  Quantile(present, ClipLowQuantile),
		High: Quantile(present, ClipHighQuantile),
	}, nil
}

// Clip computes the bounds over the whole repaired column and returns a copy
// of cs carrying the clamped column. Records and Repaired are shared with cs.
func Clip(cs *CleanedSeries) (*CleanedSeries, error) {
	bounds, err := ComputeClipBounds(cs.Repaired)
	if err != nil {
		return nil, err
	}
	out := *cs
	out.Bounds = bounds
	out.Clipped = bounds.Apply(cs.Repaired)
	return &out, nil
}

// Quantile returns the q-quantile of an ascending slice using linear
// interpolation between closest ranks at position (n-1)q.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*w
}
