// Command validate runs one station CSV through the cleaning pipeline and
// checks the output end to end: timestamps, gap repair, clipping, the year
// windows and the regression evaluation. It prints a pass/fail line per phase
// followed by the individual failures.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/PRSA_Data_Shunyi_20130301-20170228.csv \
//	  -pollutant PM2.5 \
//	  -features TEMP,DEWP,PRES,WSPM
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	csvsource "github.com/couchcryptid/air-quality-etl/internal/adapter/csv"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxErrorsShown caps the failures printed per phase.
const maxErrorsShown = 20

func main() {
	csvPath := flag.String("csv", "", "station CSV file to validate")
	pollutant := flag.String("pollutant", csvsource.DefaultPollutant, "pollutant column")
	features := flag.String("features", "TEMP,DEWP,PRES,WSPM", "covariates for the regression phase")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(context.Background(), os.Stdout, *csvPath, *pollutant, *features); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, out io.Writer, csvPath, pollutant, features string) int {
	fmt.Fprintln(out, "=== Air Quality Cleaning Validation ===")
	fmt.Fprintln(out)

	covs, err := parseFeatures(features)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	file, err := csvsource.OpenFile(csvPath, pollutant)
	if err != nil {
		fmt.Fprintf(out, "FATAL: open: %v\n", err)
		return 1
	}
	raws, err := file.Extract(ctx)
	if err != nil {
		fmt.Fprintf(out, "FATAL: parse: %v\n", err)
		return 1
	}

	logger := observability.NewTextLogger(os.Stderr, "warn")
	cleaner := pipeline.NewCleaner(logger, observability.NewMetricsWith(prometheus.NewRegistry()))
	cs, err := cleaner.Clean(ctx, file)
	if err != nil {
		fmt.Fprintf(out, "FATAL: clean: %v\n", err)
		return 1
	}

	phases := validate(raws, cs, covs)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	first, last := cs.YearSpan()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Station %s: %d rows, %d-%d, clip bounds [%.2f, %.2f]\n",
		file.Station(), cs.Len(), first, last, cs.Bounds.Low, cs.Bounds.High)
	fmt.Fprintf(out, "Repair: %d pollutant gaps filled, %d left at the edges\n",
		cs.Repair.PollutantFilled, cs.Repair.PollutantUnfilled)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrorsShown {
				fmt.Fprintf(out, "  ... and %d more\n", len(p.errors)-maxErrorsShown)
				break
			}
			fmt.Fprintf(out, "  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Fprintln(out, "\nAll checks passed.")
	return 0
}

func parseFeatures(s string) ([]domain.Covariate, error) {
	var covs []domain.Covariate
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		c, err := domain.ParseCovariate(part)
		if err != nil {
			return nil, err
		}
		covs = append(covs, c)
	}
	return covs, nil
}

func validate(raws []domain.RawRecord, cs *domain.CleanedSeries, covs []domain.Covariate) []*phase {
	return []*phase{
		validateTimestamps(raws, cs),
		validateRepair(cs),
		validateClip(cs),
		validateWindows(cs),
		validateRegression(cs, covs),
	}
}

// validateTimestamps checks row parity, ordering and duplicate hours.
func validateTimestamps(raws []domain.RawRecord, cs *domain.CleanedSeries) *phase {
	p := &phase{name: "Timestamps (order, duplicates, row parity)"}
	if len(raws) != cs.Len() {
		p.errorf("row count: parsed %d, cleaned %d", len(raws), cs.Len())
	}
	for i := 1; i < cs.Len(); i++ {
		prev, cur := cs.Records[i-1].Time, cs.Records[i].Time
		switch {
		case cur.Before(prev):
			p.errorf("row %d: %s before %s", i, cur, prev)
		case cur.Equal(prev):
			p.errorf("row %d: duplicate hour %s", i, cur)
		}
	}
	return p
}

// validateRepair checks that observed readings survive, interior gaps are
// filled and covariates have no gaps after their first observation.
func validateRepair(cs *domain.CleanedSeries) *phase {
	p := &phase{name: "Repair (interpolation, forward fill)"}
	if len(cs.Repaired) != cs.Len() {
		p.errorf("repaired length %d, want %d", len(cs.Repaired), cs.Len())
		return p
	}

	firstObs, lastObs := -1, -1
	for i, r := range cs.Records {
		if domain.Missing(r.Pollutant) {
			continue
		}
		if firstObs < 0 {
			firstObs = i
		}
		lastObs = i
		if cs.Repaired[i] != r.Pollutant {
			p.errorf("row %d: observed %g changed to %g", i, r.Pollutant, cs.Repaired[i])
		}
	}
	for i, v := range cs.Repaired {
		inside := firstObs >= 0 && i > firstObs && i < lastObs
		if inside && domain.Missing(v) {
			p.errorf("row %d: interior gap left unfilled", i)
		}
	}

	for _, c := range domain.AllCovariates {
		seen := false
		for i, r := range cs.Records {
			v := r.Covariate(c)
			if !domain.Missing(v) {
				seen = true
			} else if seen {
				p.errorf("row %d: %s missing after forward fill", i, c)
			}
		}
	}
	return p
}

// validateClip checks the bounds, that every value is inside them and that
// clipping left the missing positions alone.
func validateClip(cs *domain.CleanedSeries) *phase {
	p := &phase{name: "Clip (bounds, range, missing positions)"}
	b := cs.Bounds
	if !(b.Low <= b.High) {
		p.errorf("bounds inverted: [%g, %g]", b.Low, b.High)
	}
	if len(cs.Clipped) != len(cs.Repaired) {
		p.errorf("clipped length %d, want %d", len(cs.Clipped), len(cs.Repaired))
		return p
	}

	present := make([]float64, 0, len(cs.Repaired))
	for _, v := range cs.Repaired {
		if !domain.Missing(v) {
			present = append(present, v)
		}
	}
	slices.Sort(present)
	if len(present) >= 2 {
		low := domain.Quantile(present, domain.ClipLowQuantile)
		high := domain.Quantile(present, domain.ClipHighQuantile)
		if low != b.Low || high != b.High {
			p.errorf("bounds [%g, %g], recomputed [%g, %g]", b.Low, b.High, low, high)
		}
	}

	for i, v := range cs.Clipped {
		if domain.Missing(v) != domain.Missing(cs.Repaired[i]) {
			p.errorf("row %d: missing mismatch between repaired and clipped", i)
			continue
		}
		if !domain.Missing(v) && !b.Contains(v) {
			p.errorf("row %d: %g outside bounds", i, v)
		}
	}
	return p
}

// validateWindows checks that single-year windows partition the series and
// that monthly counts add up to the non-missing readings.
func validateWindows(cs *domain.CleanedSeries) *phase {
	p := &phase{name: "Windows (year partition, monthly counts)"}
	first, last := cs.YearSpan()

	total := 0
	for y := first; y <= last; y++ {
		w := domain.Select(cs, y, y)
		total += w.Len()
		for i := range w.Len() {
			if w.Time(i).Year() != y {
				p.errorf("window %d holds a row from %d", y, w.Time(i).Year())
				break
			}
		}
	}
	if total != cs.Len() {
		p.errorf("year windows hold %d rows, series has %d", total, cs.Len())
	}

	all := domain.Select(cs, first, last)
	counted := 0
	for _, pt := range domain.MonthlyMean(all) {
		counted += pt.Count
		if math.IsNaN(pt.Mean) {
			p.errorf("month %s: NaN mean", pt.Month.Format("2006-01"))
		}
	}
	if sum := domain.Summarize(all, domain.DefaultThreshold); counted != sum.Count {
		p.errorf("monthly counts sum to %d, summary counts %d", counted, sum.Count)
	}
	return p
}

// validateRegression runs the evaluation with the default split and checks
// the metric ranges and split sizes.
func validateRegression(cs *domain.CleanedSeries, covs []domain.Covariate) *phase {
	p := &phase{name: "Regression (split sizes, R², RMSE)"}
	first, last := cs.YearSpan()
	res, err := domain.Evaluate(domain.Select(cs, first, last), covs, domain.DefaultSplit)
	if err != nil {
		p.errorf("evaluate: %v", err)
		return p
	}
	if res.TrainSize < 2 || res.TestSize < 1 {
		p.errorf("split %d/%d too small", res.TrainSize, res.TestSize)
	}
	if len(res.Predictions) != res.TestSize {
		p.errorf("%d predictions for %d test rows", len(res.Predictions), res.TestSize)
	}
	if len(res.Coefficients) != len(res.Covariates) {
		p.errorf("%d coefficients for %d covariates", len(res.Coefficients), len(res.Covariates))
	}
	if !math.IsNaN(res.R2) && res.R2 > 1 {
		p.errorf("R² %g above 1", res.R2)
	}
	if math.IsNaN(res.RMSE) || res.RMSE < 0 {
		p.errorf("RMSE %g", res.RMSE)
	}
	return p
}
