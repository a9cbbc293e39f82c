package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

// hourlyRaws builds consecutive hourly rows starting at start. cov may be nil.
func hourlyRaws(start time.Time, pollutant []float64, cov func(i int) [NumCovariates]float64) []RawRecord {
	raws := make([]RawRecord, len(pollutant))
	for i, p := range pollutant {
		ts := start.Add(time.Duration(i) * time.Hour)
		raws[i] = RawRecord{
			Year: ts.Year(), Month: int(ts.Month()), Day: ts.Day(), Hour: ts.Hour(),
			Station:   "Test",
			Pollutant: p,
		}
		if cov != nil {
			raws[i].Covariates = cov(i)
		}
	}
	return raws
}

// cleaned runs load, repair and clip and fails the test on any error.
func cleaned(t *testing.T, raws []RawRecord) *CleanedSeries {
	t.Helper()
	series, err := Load(raws)
	require.NoError(t, err)
	cs, err := Repair(series)
	require.NoError(t, err)
	cs, err = Clip(cs)
	require.NoError(t, err)
	return cs
}

// unclipped wraps records in a series whose clipped column is the raw
// pollutant, for tests that need exact targets.
func unclipped(records Series) *CleanedSeries {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.Pollutant
	}
	return &CleanedSeries{
		Records:  records,
		Repaired: values,
		Clipped:  values,
		Bounds:   ClipBounds{Low: math.Inf(-1), High: math.Inf(1)},
	}
}
