package domain

import (
	"slices"
	"time"
)

// Window is a read-only view of a cleaned series restricted to an inclusive
// year range. It holds index bounds into the parent and never copies it.
type Window struct {
	series     *CleanedSeries
	start, end int

	YearLow  int
	YearHigh int
}

// Select returns the records whose year falls in [yearLow, yearHigh].
// A range outside the data, or yearLow > yearHigh, yields an empty window.
// So does a series that has not been through Clip yet.
func Select(cs *CleanedSeries, yearLow, yearHigh int) Window {
	w := Window{series: cs, YearLow: yearLow, YearHigh: yearHigh}
	if cs == nil || yearLow > yearHigh || len(cs.Clipped) != len(cs.Records) {
		return w
	}
	// Records are time-ordered, so matching years form one contiguous run.
	w.start = -1
	for i, r := range cs.Records {
		y := r.Time.Year()
		if y < yearLow {
			continue
		}
		if y > yearHigh {
			break
		}
		if w.start < 0 {
			w.start = i
		}
		w.end = i + 1
	}
	if w.start < 0 {
		w.start, w.end = 0, 0
	}
	return w
}

// Len returns the number of records in the window.
func (w Window) Len() int {
	return w.end - w.start
}

// Empty reports whether the window holds no records.
func (w Window) Empty() bool {
	return w.Len() == 0
}

// Series returns the parent series.
func (w Window) Series() *CleanedSeries {
	return w.series
}

// Bounds returns the parent's global clip bounds.
func (w Window) Bounds() ClipBounds {
	if w.series == nil {
		return ClipBounds{}
	}
	return w.series.Bounds
}

// Record returns the i-th record of the window.
func (w Window) Record(i int) Record {
	return w.series.Records[w.start+i]
}

// Time returns the timestamp of the i-th record.
func (w Window) Time(i int) time.Time {
	return w.series.Records[w.start+i].Time
}

// ClippedAt returns the clipped pollutant value of the i-th record.
func (w Window) ClippedAt(i int) float64 {
	return w.series.Clipped[w.start+i]
}

// Clipped returns a copy of the window's clipped pollutant column.
func (w Window) Clipped() []float64 {
	return slices.Clone(w.clipped())
}

// clipped returns the window's slice of the parent column without copying.
func (w Window) clipped() []float64 {
	if w.Empty() {
		return nil
	}
	return w.series.Clipped[w.start:w.end:w.end]
}
