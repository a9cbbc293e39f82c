package domain

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// MonthlyPoint is the mean clipped pollutant value of one calendar month.
type MonthlyPoint struct {
	Month time.Time `json:"month"`
	Mean  float64   `json:"mean"`
	Count int       `json:"count"`
}

// MonthlyMean buckets the window by calendar month and averages the
// non-missing clipped values of each bucket. Months without a single
// reading are left out rather than reported as zero.
func MonthlyMean(w Window) []MonthlyPoint {
	var (
		points []MonthlyPoint
		bucket []float64
		month  time.Time
	)
	flush := func() {
		if len(bucket) > 0 {
			points = append(points, MonthlyPoint{Month: month, Mean: stat.Mean(bucket, nil), Count: len(bucket)})
		}
		bucket = bucket[:0]
	}

	for i := range w.Len() {
		ts := w.Time(i)
		start := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
		if !start.Equal(month) {
			flush()
			month = start
		}
		if v := w.ClippedAt(i); !Missing(v) {
			bucket = append(bucket, v)
		}
	}
	flush()
	return points
}
