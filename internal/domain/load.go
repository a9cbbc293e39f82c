package domain

import (
	"cmp"
	"slices"
	"time"
)

// Load validates the time fields of every raw record, builds a UTC
// timestamp for each and returns the records sorted ascending by time.
// Rows sharing a timestamp keep their input order.
func Load(raws []RawRecord) (Series, error) {
	if len(raws) == 0 {
		return nil, stageError(StageLoad, ErrEmptySeries, "no rows")
	}

	series := make(Series, 0, len(raws))
	for i, raw := range raws {
		ts, ok := buildTimestamp(raw.Year, raw.Month, raw.Day, raw.Hour)
		if !ok {
			return nil, stageError(StageLoad, ErrMalformedTimestamp,
				"row %d: year=%d month=%d day=%d hour=%d", i, raw.Year, raw.Month, raw.Day, raw.Hour)
		}
		series = append(series, Record{
			Time:       ts,
			Pollutant:  raw.Pollutant,
			Covariates: raw.Covariates,
		})
	}

	slices.SortStableFunc(series, func(a, b Record) int {
		return cmp.Compare(a.Time.UnixNano(), b.Time.UnixNano())
	})
	return series, nil
}

// buildTimestamp combines the calendar fields into an hour-resolution UTC
// instant. time.Date normalizes overflow (month 13 becomes January of the
// next year), so the result is rejected unless it round-trips.
func buildTimestamp(year, month, day, hour int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 0 || hour > 23 {
		return time.Time{}, false
	}
	ts := time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
	if ts.Year() != year || int(ts.Month()) != month || ts.Day() != day || ts.Hour() != hour {
		return time.Time{}, false
	}
	return ts, true
}
