package domain

import (
	"slices"
	"time"
)

// CleanedSeries is a loaded series with its repaired and clipped pollutant
// columns. It is built once per source and never mutated afterwards; windows
// and evaluations only read it.
type CleanedSeries struct {
	Source string

	// Records hold the raw pollutant reading and forward-filled covariates.
	Records Series

	// Repaired is the pollutant after time-weighted interpolation.
	Repaired []float64

	// Clipped is Repaired clamped into Bounds. Nil until Clip has run.
	Clipped []float64
	Bounds  ClipBounds

	Repair    RepairStats
	CleanedAt time.Time
}

// RepairStats counts what Repair changed.
type RepairStats struct {
	PollutantFilled    int
	PollutantUnfilled  int
	CovariatesFilled   [NumCovariates]int
	CovariatesUnfilled [NumCovariates]int
}

// Len returns the number of records.
func (cs *CleanedSeries) Len() int {
	return len(cs.Records)
}

// YearSpan returns the first and last calendar year in the series.
func (cs *CleanedSeries) YearSpan() (first, last int) {
	if len(cs.Records) == 0 {
		return 0, 0
	}
	return cs.Records[0].Time.Year(), cs.Records[len(cs.Records)-1].Time.Year()
}

// Repair fills pollutant gaps by time-weighted linear interpolation and
// covariate gaps by forward fill. The input series is not modified.
func Repair(series Series) (*CleanedSeries, error) {
	if len(series) == 0 {
		return nil, stageError(StageRepair, ErrEmptySeries, "no records")
	}

	records := slices.Clone(series)
	cs := &CleanedSeries{Records: records, CleanedAt: Now()}

	cs.Repair.CovariatesFilled, cs.Repair.CovariatesUnfilled = forwardFillCovariates(records)
	cs.Repaired, cs.Repair.PollutantFilled = interpolateByTime(records)
	for _, v := range cs.Repaired {
		if Missing(v) {
			cs.Repair.PollutantUnfilled++
		}
	}
	return cs, nil
}

// forwardFillCovariates propagates the last known value of each covariate
// into later gaps. Gaps before the first reading stay missing.
func forwardFillCovariates(records Series) (filled, unfilled [NumCovariates]int) {
	for c := range NumCovariates {
		last, seen := 0.0, false
		for i := range records {
			v := records[i].Covariates[c]
			switch {
			case !Missing(v):
				last, seen = v, true
			case seen:
				records[i].Covariates[c] = last
				filled[c]++
			default:
				unfilled[c]++
			}
		}
	}
	return filled, unfilled
}

// interpolateByTime returns the pollutant column with interior gaps filled
// from the nearest readings on either side, weighted by elapsed time rather
// than row distance. Leading and trailing gaps are left as NaN.
func interpolateByTime(records Series) ([]float64, int) {
	out := make([]float64, len(records))
	filled := 0
	prev := -1
	for i, r := range records {
		out[i] = r.Pollutant
		if Missing(r.Pollutant) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			filled += fillSpan(out, records, prev, i)
		}
		prev = i
	}
	return out, filled
}

// fillSpan interpolates out[lo+1:hi] between the anchors out[lo] and out[hi].
// Anchors sharing a timestamp leave no elapsed time to weight by, so the gap
// takes the earlier anchor's value.
func fillSpan(out []float64, records Series, lo, hi int) int {
	t0 := records[lo].Time
	span := records[hi].Time.Sub(t0)
	v0, v1 := out[lo], out[hi]
	for k := lo + 1; k < hi; k++ {
		if span <= 0 {
			out[k] = v0
			continue
		}
		w := float64(records[k].Time.Sub(t0)) / float64(span)
		out[k] = v0 + (v1-v0)*w
	}
	return hi - lo - 1
}
