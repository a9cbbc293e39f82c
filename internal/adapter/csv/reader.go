// Package csvsource reads hourly station files in the PRSA layout
// (No,year,month,day,hour,PM2.5,...,TEMP,PRES,DEWP,RAIN,wd,WSPM,station).
// Columns are looked up by header name, so column order and extra columns do
// not matter. "NA" and empty cells are missing readings.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// DefaultPollutant is the pollutant column read when none is configured.
const DefaultPollutant = "PM2.5"

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// ctxCheckEvery is how many rows are parsed between context checks.
const ctxCheckEvery = 4096

// columns maps required fields to their position in a row.
type columns struct {
	year, month, day, hour int
	pollutant              int
	covariates             [domain.NumCovariates]int
	station                int // -1 when absent
}

func indexHeader(header []string, pollutant string) (columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "﻿"))
		pos[strings.ToLower(h)] = i
	}

	var missing []string
	find := func(name string) int {
		i, ok := pos[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	cols := columns{
		year:      find("year"),
		month:     find("month"),
		day:       find("day"),
		hour:      find("hour"),
		pollutant: find(pollutant),
		station:   -1,
	}
	for i, c := range domain.AllCovariates {
		cols.covariates[i] = find(string(c))
	}
	if i, ok := pos["station"]; ok {
		cols.station = i
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

// Parse reads every data row of r. Missing numeric cells become NaN; a
// non-numeric time field or reading is an error naming the line.
func Parse(ctx context.Context, r io.Reader, pollutant string) ([]domain.RawRecord, error) {
	if pollutant == "" {
		pollutant = DefaultPollutant
	}
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("read header: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexHeader(header, pollutant)
	if err != nil {
		return nil, err
	}

	var raws []domain.RawRecord
	for line := 2; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		raw, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func parseRow(row []string, cols columns) (domain.RawRecord, error) {
	var raw domain.RawRecord
	var err error

	ints := []struct {
		name string
		idx  int
		dst  *int
	}{
		{"year", cols.year, &raw.Year},
		{"month", cols.month, &raw.Month},
		{"day", cols.day, &raw.Day},
		{"hour", cols.hour, &raw.Hour},
	}
	for _, f := range ints {
		if *f.dst, err = parseInt(cell(row, f.idx)); err != nil {
			return raw, fmt.Errorf("%s: %w", f.name, err)
		}
	}

	if raw.Pollutant, err = parseReading(cell(row, cols.pollutant)); err != nil {
		return raw, fmt.Errorf("pollutant: %w", err)
	}
	for i, idx := range cols.covariates {
		if raw.Covariates[i], err = parseReading(cell(row, idx)); err != nil {
			return raw, fmt.Errorf("%s: %w", domain.AllCovariates[i], err)
		}
	}
	if cols.station >= 0 {
		raw.Station = strings.TrimSpace(cell(row, cols.station))
	}
	return raw, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseInt accepts integers and integral decimals such as "2013.0".
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

func parseReading(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "NA") || strings.EqualFold(s, "NaN") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
