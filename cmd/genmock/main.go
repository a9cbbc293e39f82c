// Command genmock writes a synthetic hourly station file in the PRSA CSV
// layout. Readings follow seasonal and daily cycles with a pollutant that
// depends on the weather covariates, and a deterministic share of cells is
// left as NA so the cleaning stages have gaps to repair.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -station Shunyi \
//	  -from 2013-03-01 -to 2017-03-01 \
//	  -seed 42 -gap-rate 0.02 \
//	  -out data/PRSA_Data_Shunyi_20130301-20170228.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var header = []string{
	"No", "year", "month", "day", "hour",
	"PM2.5", "PM10", "SO2", "NO2", "CO", "O3",
	"TEMP", "PRES", "DEWP", "RAIN", "wd", "WSPM", "station",
}

var windDirs = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

type genOptions struct {
	station string
	from    time.Time
	to      time.Time
	seed    uint64
	gapRate float64
}

// genStats counts what was written.
type genStats struct {
	rows          int
	pollutantGaps int
	covariateGaps int
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	station := flag.String("station", "Shunyi", "station name written to every row")
	from := flag.String("from", "2013-03-01", "first hour (YYYY-MM-DD)")
	to := flag.String("to", "2017-03-01", "end, exclusive (YYYY-MM-DD)")
	seed := flag.Uint64("seed", 42, "random seed")
	gapRate := flag.Float64("gap-rate", 0.02, "share of pollutant cells left as NA")
	out := flag.String("out", "", "output CSV path")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	opts := genOptions{station: *station, seed: *seed, gapRate: *gapRate}
	var err error
	if opts.from, err = time.Parse(time.DateOnly, *from); err != nil {
		return fmt.Errorf("parse -from: %w", err)
	}
	if opts.to, err = time.Parse(time.DateOnly, *to); err != nil {
		return fmt.Errorf("parse -to: %w", err)
	}
	if !opts.from.Before(opts.to) {
		return fmt.Errorf("-from %s is not before -to %s", *from, *to)
	}
	if opts.gapRate < 0 || opts.gapRate >= 1 {
		return fmt.Errorf("-gap-rate must be in [0, 1), got %g", opts.gapRate)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	stats, err := generate(f, opts)
	if err != nil {
		return err
	}
	log.Printf("wrote %s: %d rows, %d pollutant gaps, %d covariate gaps",
		*out, stats.rows, stats.pollutantGaps, stats.covariateGaps)
	return nil
}

func generate(out io.Writer, opts genOptions) (genStats, error) {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))
	var stats genStats

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return stats, err
	}

	row := make([]string, len(header))
	for ts := opts.from.UTC(); ts.Before(opts.to); ts = ts.Add(time.Hour) {
		stats.rows++
		day := float64(ts.YearDay())
		season := math.Cos(2 * math.Pi * (day - 200) / 365)
		daily := math.Sin(2 * math.Pi * float64(ts.Hour()-9) / 24)

		temp := 13 - 15*season + 5*daily + rng.NormFloat64()*2
		dewp := temp - 8 - 6*rng.Float64()
		pres := 1012 + 12*season - 0.3*temp + rng.NormFloat64()
		wspm := math.Max(0, 1.8+rng.ExpFloat64())
		rain := 0.0
		if rng.Float64() < 0.04 {
			rain = rng.ExpFloat64() * 3
		}
		pm25 := math.Max(3, 70+25*season-2.2*temp+1.5*(dewp-temp+8)-14*wspm+rng.NormFloat64()*20)
		// A heavy right tail for the clipping stage.
		if rng.Float64() < 0.005 {
			pm25 *= 4 + 4*rng.Float64()
		}

		row[0] = strconv.Itoa(stats.rows)
		row[1] = strconv.Itoa(ts.Year())
		row[2] = strconv.Itoa(int(ts.Month()))
		row[3] = strconv.Itoa(ts.Day())
		row[4] = strconv.Itoa(ts.Hour())
		row[5] = reading(pm25, 0)
		row[6] = reading(pm25*1.3+rng.Float64()*10, 0)
		row[7] = reading(math.Max(2, 12+8*season+rng.NormFloat64()*3), 0)
		row[8] = reading(math.Max(2, 45+0.3*pm25+rng.NormFloat64()*8), 0)
		row[9] = reading(math.Max(100, 900+12*pm25+rng.NormFloat64()*80), 0)
		row[10] = reading(math.Max(2, 60-30*season+3*daily+rng.NormFloat64()*10), 0)
		row[11] = reading(temp, 1)
		row[12] = reading(pres, 1)
		row[13] = reading(dewp, 1)
		row[14] = reading(rain, 1)
		row[15] = windDirs[rng.IntN(len(windDirs))]
		row[16] = reading(wspm, 1)
		row[17] = opts.station

		if rng.Float64() < opts.gapRate {
			row[5] = "NA"
			stats.pollutantGaps++
		}
		// Covariate gaps are rarer and hit one column at a time.
		if rng.Float64() < opts.gapRate/4 {
			row[[]int{11, 12, 13, 16}[rng.IntN(4)]] = "NA"
			stats.covariateGaps++
		}

		if err := w.Write(row); err != nil {
			return stats, err
		}
	}
	w.Flush()
	return stats, w.Error()
}

func reading(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
