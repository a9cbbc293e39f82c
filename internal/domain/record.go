package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Covariate names a meteorological column used as a regression predictor.
type Covariate string

const (
	Temperature Covariate = "TEMP"
	DewPoint    Covariate = "DEWP"
	Pressure    Covariate = "PRES"
	WindSpeed   Covariate = "WSPM"
)

// NumCovariates is the number of tracked covariates.
const NumCovariates = 4

// AllCovariates lists the covariates in storage order.
var AllCovariates = [NumCovariates]Covariate{Temperature, DewPoint, Pressure, WindSpeed}

// Index returns the storage slot of c, or -1 for an unknown name.
func (c Covariate) Index() int {
	for i, known := range AllCovariates {
		if known == c {
			return i
		}
	}
	return -1
}

// ParseCovariate accepts the column name in any case, plus a few long-form aliases.
func ParseCovariate(s string) (Covariate, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TEMP", "TEMPERATURE":
		return Temperature, nil
	case "DEWP", "DEWPOINT", "DEW_POINT":
		return DewPoint, nil
	case "PRES", "PRESSURE":
		return Pressure, nil
	case "WSPM", "WINDSPEED", "WIND_SPEED":
		return WindSpeed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCovariate, s)
}

// RawRecord is one row as read from the source, before any validation.
// Missing numeric values are NaN.
type RawRecord struct {
	Year    int
	Month   int
	Day     int
	Hour    int
	Station string

	Pollutant  float64
	Covariates [NumCovariates]float64
}

// Record is a validated observation with a single sortable timestamp.
type Record struct {
	Time       time.Time
	Pollutant  float64
	Covariates [NumCovariates]float64
}

// Covariate returns the value of c, NaN when c is unknown.
func (r Record) Covariate(c Covariate) float64 {
	i := c.Index()
	if i < 0 {
		return math.NaN()
	}
	return r.Covariates[i]
}

// Series is a time-ordered sequence of records.
type Series []Record

// Missing reports whether v is a missing reading.
func Missing(v float64) bool {
	return math.IsNaN(v)
}
