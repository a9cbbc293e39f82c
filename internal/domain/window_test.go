package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yearlySeries(t *testing.T, years ...int) *CleanedSeries {
	t.Helper()
	var raws []RawRecord
	for _, y := range years {
		raws = append(raws, hourlyRaws(time.Date(y, 6, 1, 0, 0, 0, 0, time.UTC), []float64{float64(y), float64(y) + 1, float64(y) + 2}, nil)...)
	}
	return cleaned(t, raws)
}

func TestSelect(t *testing.T) {
	cs := yearlySeries(t, 2013, 2014, 2015, 2016)

	tests := []struct {
		name     string
		low      int
		high     int
		wantLen  int
		wantYear int
	}{
		{"single year", 2014, 2014, 3, 2014},
		{"inclusive range", 2014, 2015, 6, 2014},
		{"whole series", 2013, 2016, 12, 2013},
		{"overhanging range", 2010, 2013, 3, 2013},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Select(cs, tt.low, tt.high)

			require.Equal(t, tt.wantLen, w.Len())
			assert.Equal(t, tt.wantYear, w.Time(0).Year())
			for i := range w.Len() {
				y := w.Time(i).Year()
				assert.True(t, y >= tt.low && y <= tt.high)
			}
		})
	}

	t.Run("outside data is empty", func(t *testing.T) {
		for _, r := range [][2]int{{1990, 2000}, {2020, 2030}, {2015, 2014}} {
			w := Select(cs, r[0], r[1])
			assert.True(t, w.Empty())
			assert.Nil(t, w.Clipped())
		}
	})

	t.Run("windows coexist without copying", func(t *testing.T) {
		a := Select(cs, 2013, 2014)
		b := Select(cs, 2014, 2016)

		assert.Same(t, cs, a.Series())
		assert.Same(t, cs, b.Series())
		assert.Equal(t, a.ClippedAt(3), b.ClippedAt(0))
	})

	t.Run("clipped copy is detached", func(t *testing.T) {
		w := Select(cs, 2014, 2014)
		values := w.Clipped()
		values[0] = -1

		assert.NotEqual(t, -1.0, w.ClippedAt(0))
	})

	t.Run("nil series", func(t *testing.T) {
		assert.True(t, Select(nil, 2013, 2014).Empty())
	})
}

func TestSelect_UnclippedSeries(t *testing.T) {
	start := time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC)
	series, err := Load(hourlyRaws(start, []float64{10, nan, 30}, nil))
	require.NoError(t, err)
	cs, err := Repair(series)
	require.NoError(t, err)
	require.Nil(t, cs.Clipped)

	w := Select(cs, 2016, 2016)

	assert.True(t, w.Empty())
	assert.Empty(t, w.Clipped())
	assert.True(t, Summarize(w, DefaultThreshold).Empty())
	assert.Empty(t, MonthlyMean(w))

	_, err = Evaluate(w, []Covariate{Temperature}, DefaultSplit)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
}
