package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearSeries builds n hourly records whose pollutant is an exact linear
// function of temperature and wind speed, plus optional gaussian noise.
func linearSeries(n int, noise float64) Series {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewPCG(7, 7))
	series := make(Series, n)
	for i := range series {
		temp := float64(i%17) - 5
		dewp := float64((i*3)%13) - 10
		pres := 1000 + float64(i%5)
		wspm := float64((i * 7) % 11)
		series[i] = Record{
			Time:       start.Add(time.Duration(i) * time.Hour),
			Pollutant:  3 + 2*temp - 0.5*wspm + noise*rng.NormFloat64(),
			Covariates: [NumCovariates]float64{temp, dewp, pres, wspm},
		}
	}
	return series
}

func TestEvaluate_RecoversExactModel(t *testing.T) {
	w := Select(unclipped(linearSeries(200, 0)), 2015, 2015)

	res, err := Evaluate(w, []Covariate{Temperature, WindSpeed}, DefaultSplit)

	require.NoError(t, err)
	assert.Equal(t, []Covariate{Temperature, WindSpeed}, res.Covariates)
	assert.InDelta(t, 3.0, res.Intercept, 1e-9)
	assert.InDelta(t, 2.0, res.Coefficient(Temperature), 1e-9)
	assert.InDelta(t, -0.5, res.Coefficient(WindSpeed), 1e-9)
	assert.True(t, math.IsNaN(res.Coefficient(Pressure)))
	assert.InDelta(t, 1.0, res.R2, 1e-9)
	assert.InDelta(t, 0.0, res.RMSE, 1e-9)
	assert.Equal(t, 150, res.TrainSize)
	assert.Equal(t, 50, res.TestSize)
	assert.Len(t, res.Predictions, 50)
}

func TestEvaluate_MetricBounds(t *testing.T) {
	w := Select(unclipped(linearSeries(300, 4)), 2015, 2015)
	subsets := [][]Covariate{
		{Temperature},
		{DewPoint},
		{Pressure, WindSpeed},
		{Temperature, DewPoint, Pressure, WindSpeed},
	}
	for seed := range uint64(10) {
		for _, covs := range subsets {
			res, err := Evaluate(w, covs, SplitConfig{Seed: seed, TestFraction: 0.25})

			require.NoError(t, err)
			assert.LessOrEqual(t, res.R2, 1.0)
			assert.GreaterOrEqual(t, res.RMSE, 0.0)
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	w := Select(unclipped(linearSeries(250, 3)), 2015, 2015)
	covs := []Covariate{Temperature, DewPoint, WindSpeed}

	first, err := Evaluate(w, covs, DefaultSplit)
	require.NoError(t, err)
	second, err := Evaluate(w, covs, DefaultSplit)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, math.Float64bits(first.R2), math.Float64bits(second.R2))

	t.Run("seed changes the partition", func(t *testing.T) {
		other, err := Evaluate(w, covs, SplitConfig{Seed: 43, TestFraction: 0.25})
		require.NoError(t, err)
		assert.NotEqual(t, first.Predictions, other.Predictions)
	})
}

func TestEvaluate_IdenticalTargets(t *testing.T) {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	values := make([]float64, 100)
	for i := range values {
		values[i] = 50
	}

	// 0.1 has no exact binary form, so the mean of many copies drifts.
	for _, v := range []float64{0.1, 0.3, 1e-7, 1234.567} {
		t.Run(fmt.Sprintf("inexact value %g", v), func(t *testing.T) {
			same := make([]float64, 100)
			for i := range same {
				same[i] = v
			}
			cs := cleaned(t, hourlyRaws(start, same, func(i int) [NumCovariates]float64 {
				return [NumCovariates]float64{float64(i % 9), float64(i % 4), 1010 + float64(i%5), float64(i % 3)}
			}))

			res, err := Evaluate(Select(cs, 2015, 2015), []Covariate{Temperature, Pressure}, DefaultSplit)

			require.NoError(t, err)
			assert.True(t, math.IsNaN(res.R2), "R2=%v", res.R2)
			assert.InDelta(t, 0.0, res.RMSE, 1e-9)
		})
	}

	t.Run("varying covariates", func(t *testing.T) {
		cs := cleaned(t, hourlyRaws(start, values, func(i int) [NumCovariates]float64 {
			return [NumCovariates]float64{float64(i % 9), float64(i % 4), 1010, float64(i % 3)}
		}))

		res, err := Evaluate(Select(cs, 2015, 2015), []Covariate{Temperature, Pressure}, DefaultSplit)

		require.NoError(t, err)
		assert.True(t, math.IsNaN(res.R2))
		assert.InDelta(t, 0.0, res.RMSE, 1e-9)
	})

	t.Run("constant covariates", func(t *testing.T) {
		cs := cleaned(t, hourlyRaws(start, values, func(int) [NumCovariates]float64 {
			return [NumCovariates]float64{1, 2, 3, 4}
		}))

		res, err := Evaluate(Select(cs, 2015, 2015), []Covariate{Temperature, DewPoint, Pressure, WindSpeed}, DefaultSplit)

		require.NoError(t, err)
		assert.True(t, math.IsNaN(res.R2))
		assert.Equal(t, []float64{0, 0, 0, 0}, res.Coefficients)
		assert.Equal(t, 50.0, res.Intercept)
	})
}

func TestEvaluate_Errors(t *testing.T) {
	w := Select(unclipped(linearSeries(40, 1)), 2015, 2015)

	t.Run("empty feature set", func(t *testing.T) {
		_, err := Evaluate(w, nil, DefaultSplit)
		assert.ErrorIs(t, err, ErrEmptyFeatureSet)
	})

	t.Run("unknown covariate", func(t *testing.T) {
		_, err := Evaluate(w, []Covariate{Temperature, "RAIN"}, DefaultSplit)
		assert.ErrorIs(t, err, ErrUnknownCovariate)
	})

	t.Run("too few rows", func(t *testing.T) {
		small := Select(unclipped(linearSeries(9, 1)), 2015, 2015)
		_, err := Evaluate(small, []Covariate{Temperature}, DefaultSplit)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientSamples)
		assert.Contains(t, err.Error(), StageRegression)
	})

	t.Run("empty window", func(t *testing.T) {
		_, err := Evaluate(Select(unclipped(linearSeries(40, 1)), 1999, 1999), []Covariate{Temperature}, DefaultSplit)
		assert.ErrorIs(t, err, ErrInsufficientSamples)
	})

	t.Run("bad test fraction", func(t *testing.T) {
		_, err := Evaluate(w, []Covariate{Temperature}, SplitConfig{Seed: 1, TestFraction: 1})
		assert.ErrorIs(t, err, ErrInsufficientSamples)
	})
}

func TestEvaluate_ExcludesIncompleteRows(t *testing.T) {
	series := linearSeries(12, 0)
	for i := range 3 {
		series[i].Covariates[Temperature.Index()] = nan
	}
	w := Select(unclipped(series), 2015, 2015)

	_, err := Evaluate(w, []Covariate{Temperature}, DefaultSplit)
	assert.ErrorIs(t, err, ErrInsufficientSamples, "9 complete rows remain")

	res, err := Evaluate(w, []Covariate{WindSpeed}, DefaultSplit)
	require.NoError(t, err)
	assert.Equal(t, 12, res.TrainSize+res.TestSize)

	t.Run("missing target", func(t *testing.T) {
		series := linearSeries(20, 0)
		series[5].Pollutant = nan
		res, err := Evaluate(Select(unclipped(series), 2015, 2015), []Covariate{Temperature}, DefaultSplit)

		require.NoError(t, err)
		assert.Equal(t, 19, res.TrainSize+res.TestSize)
		assert.Equal(t, 5, res.TestSize)
	})
}

func TestEvaluate_DuplicateCovariatesCollapse(t *testing.T) {
	w := Select(unclipped(linearSeries(60, 0)), 2015, 2015)

	res, err := Evaluate(w, []Covariate{Temperature, WindSpeed, Temperature}, DefaultSplit)

	require.NoError(t, err)
	assert.Equal(t, []Covariate{Temperature, WindSpeed}, res.Covariates)
	assert.Len(t, res.Coefficients, 2)
}
