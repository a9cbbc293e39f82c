package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	csvsource "github.com/couchcryptid/air-quality-etl/internal/adapter/csv"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(seed uint64) genOptions {
	return genOptions{
		station: "Gucheng",
		from:    time.Date(2015, 12, 1, 0, 0, 0, 0, time.UTC),
		to:      time.Date(2016, 2, 1, 0, 0, 0, 0, time.UTC),
		seed:    seed,
		gapRate: 0.05,
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	var a, b, c bytes.Buffer

	_, err := generate(&a, testOptions(7))
	require.NoError(t, err)
	_, err = generate(&b, testOptions(7))
	require.NoError(t, err)
	_, err = generate(&c, testOptions(8))
	require.NoError(t, err)

	assert.Equal(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), c.String())
}

func TestGenerate_CleansEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	stats, err := generate(&buf, testOptions(42))
	require.NoError(t, err)

	assert.Equal(t, (31+31)*24, stats.rows)
	assert.Positive(t, stats.pollutantGaps)

	raws, err := csvsource.Parse(context.Background(), &buf, "")
	require.NoError(t, err)
	require.Len(t, raws, stats.rows)
	assert.Equal(t, "Gucheng", raws[0].Station)

	missing := 0
	for _, r := range raws {
		if domain.Missing(r.Pollutant) {
			missing++
		}
	}
	assert.Equal(t, stats.pollutantGaps, missing)

	series, err := domain.Load(raws)
	require.NoError(t, err)
	cs, err := domain.Repair(series)
	require.NoError(t, err)
	cs, err = domain.Clip(cs)
	require.NoError(t, err)

	first, last := cs.YearSpan()
	assert.Equal(t, 2015, first)
	assert.Equal(t, 2016, last)
	assert.Len(t, domain.MonthlyMean(domain.Select(cs, first, last)), 2)
}
