package domain

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinRegressionSamples is the fewest usable rows Evaluate will fit on.
const MinRegressionSamples = 10

// rankTolerance is the relative singular value cutoff for the least-squares
// solve. Columns that are constant or collinear over the training rows fall
// below it and receive a zero coefficient share.
const rankTolerance = 1e-10

// SplitConfig controls the train/test partition.
type SplitConfig struct {
	Seed         uint64
	TestFraction float64
}

// DefaultSplit holds out a quarter of the rows with seed 42.
var DefaultSplit = SplitConfig{Seed: 42, TestFraction: 0.25}

// Prediction pairs a held-out observation with the model's estimate.
type Prediction struct {
	Time      time.Time `json:"time"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
}

// RegressionResult is one fit of clipped pollutant on a covariate subset,
// scored on the held-out rows. R2 is NaN when the held-out targets are all
// identical.
type RegressionResult struct {
	Covariates   []Covariate
	Intercept    float64
	Coefficients []float64
	Predictions  []Prediction
	R2           float64
	RMSE         float64
	TrainSize    int
	TestSize     int
	Split        SplitConfig
}

// Coefficient returns the fitted slope for c, or NaN if c was not a predictor.
func (r *RegressionResult) Coefficient(c Covariate) float64 {
	for i, used := range r.Covariates {
		if used == c {
			return r.Coefficients[i]
		}
	}
	return math.NaN()
}

// Evaluate fits ordinary least squares of the clipped pollutant on the given
// covariates over a seeded train partition of the window and scores the fit
// on the held-out partition. Rows missing the target or any selected covariate
// are dropped first. The same window, covariates and split always produce the
// same result.
func Evaluate(w Window, covariates []Covariate, split SplitConfig) (*RegressionResult, error) {
	cols, err := normalizeCovariates(covariates)
	if err != nil {
		return nil, err
	}
	if !(split.TestFraction > 0 && split.TestFraction < 1) {
		return nil, stageError(StageRegression, ErrInsufficientSamples,
			"test fraction %v outside (0, 1)", split.TestFraction)
	}

	rows := usableRows(w, cols)
	n := len(rows)
	if n < MinRegressionSamples {
		return nil, stageError(StageRegression, ErrInsufficientSamples,
			"%d usable rows, need at least %d", n, MinRegressionSamples)
	}
	nTest := int(math.Ceil(split.TestFraction * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 2 {
		return nil, stageError(StageRegression, ErrInsufficientSamples,
			"split of %d rows leaves %d train and %d test", n, nTrain, nTest)
	}

	rng := rand.New(rand.NewPCG(split.Seed, split.Seed))
	perm := rng.Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	intercept, coef := fitOLS(w, rows, trainIdx, cols)

	res := &RegressionResult{
		Covariates:   cols,
		Intercept:    intercept,
		Coefficients: coef,
		Predictions:  make([]Prediction, 0, nTest),
		TrainSize:    nTrain,
		TestSize:     nTest,
		Split:        split,
	}
	actual := make([]float64, nTest)
	residuals := make([]float64, nTest)
	for k, p := range testIdx {
		i := rows[p]
		rec := w.Record(i)
		yhat := intercept
		for j, c := range cols {
			yhat += coef[j] * rec.Covariate(c)
		}
		y := w.ClippedAt(i)
		actual[k] = y
		residuals[k] = y - yhat
		res.Predictions = append(res.Predictions, Prediction{Time: rec.Time, Actual: y, Predicted: yhat})
	}

	ssRes := floats.Dot(residuals, residuals)
	res.RMSE = math.Sqrt(ssRes / float64(nTest))
	// Identical targets leave R² undefined. The mean of equal values can be
	// off by one rounding step, so equality is tested on the values.
	if allEqual(actual) {
		res.R2 = math.NaN()
		return res, nil
	}
	mean := stat.Mean(actual, nil)
	ssTot := 0.0
	for _, y := range actual {
		ssTot += (y - mean) * (y - mean)
	}
	res.R2 = 1 - ssRes/ssTot
	return res, nil
}

func allEqual(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// normalizeCovariates rejects empty and unknown sets and drops duplicates,
// keeping first-seen order.
func normalizeCovariates(covariates []Covariate) ([]Covariate, error) {
	if len(covariates) == 0 {
		return nil, stageError(StageRegression, ErrEmptyFeatureSet, "no covariates selected")
	}
	var seen [NumCovariates]bool
	out := make([]Covariate, 0, len(covariates))
	for _, c := range covariates {
		i := c.Index()
		if i < 0 {
			return nil, stageError(StageRegression, ErrUnknownCovariate, "%q", string(c))
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, c)
	}
	return out, nil
}

// usableRows returns the window indices whose target and selected covariates
// are all present.
func usableRows(w Window, cols []Covariate) []int {
	rows := make([]int, 0, w.Len())
outer:
	for i := range w.Len() {
		if Missing(w.ClippedAt(i)) {
			continue
		}
		rec := w.Record(i)
		for _, c := range cols {
			if Missing(rec.Covariate(c)) {
				continue outer
			}
		}
		rows = append(rows, i)
	}
	return rows
}

// fitOLS solves the centred least-squares problem on the training rows with a
// thin SVD and recovers the intercept from the column means. Rank-deficient
// designs get the minimum-norm solution.
func fitOLS(w Window, rows, trainIdx []int, cols []Covariate) (float64, []float64) {
	nTrain, p := len(trainIdx), len(cols)

	X := mat.NewDense(nTrain, p, nil)
	y := mat.NewVecDense(nTrain, nil)
	for r, t := range trainIdx {
		i := rows[t]
		rec := w.Record(i)
		for j, c := range cols {
			X.Set(r, j, rec.Covariate(c))
		}
		y.SetVec(r, w.ClippedAt(i))
	}

	xMean := make([]float64, p)
	for j := range p {
		xMean[j] = stat.Mean(mat.Col(nil, j, X), nil)
	}
	yMean := stat.Mean(y.RawVector().Data, nil)
	for r := range nTrain {
		for j := range p {
			X.Set(r, j, X.At(r, j)-xMean[j])
		}
		y.SetVec(r, y.AtVec(r)-yMean)
	}

	coef := make([]float64, p)
	var svd mat.SVD
	if svd.Factorize(X, mat.SVDThin) {
		if rank := svd.Rank(rankTolerance); rank > 0 {
			var beta mat.VecDense
			svd.SolveVecTo(&beta, y, rank)
			for j := range p {
				coef[j] = beta.AtVec(j)
			}
		}
	}

	intercept := yMean - floats.Dot(xMean, coef)
	return intercept, coef
}
