package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/http"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory station ---

type memSource struct{ raws []domain.RawRecord }

func (m *memSource) ID() string      { return "mem:Shunyi" }
func (m *memSource) Station() string { return "Shunyi" }
func (m *memSource) Extract(context.Context) ([]domain.RawRecord, error) {
	return m.raws, nil
}

type memCatalog struct{ src *memSource }

func (c memCatalog) Stations(context.Context) ([]string, error) { return []string{"Shunyi"}, nil }
func (c memCatalog) Source(_ context.Context, station string) (pipeline.Source, error) {
	if station != "Shunyi" {
		return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownStation, station)
	}
	return c.src, nil
}

// shunyiRows covers March 2013 through February 2015 with a pollutant driven
// by temperature and wind.
func shunyiRows() []domain.RawRecord {
	start := time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	var raws []domain.RawRecord
	for i, ts := 0, start; ts.Before(end); i, ts = i+1, ts.Add(time.Hour) {
		temp := 12 + 10*math.Sin(float64(i)/300)
		wind := float64(i%9) / 3
		pm := 30 + 4*temp - 5*wind + float64(i%7)
		if i%50 == 7 {
			pm = math.NaN()
		}
		raws = append(raws, domain.RawRecord{
			Year: ts.Year(), Month: int(ts.Month()), Day: ts.Day(), Hour: ts.Hour(),
			Station:    "Shunyi",
			Pollutant:  pm,
			Covariates: [domain.NumCovariates]float64{temp, temp - 8, 1012 - temp/3, wind},
		})
	}
	return raws
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServiceServer(t *testing.T) *httpadapter.Server {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	store := pipeline.NewStore(pipeline.NewCleaner(discardLogger(), metrics), 2, discardLogger(), metrics)
	svc := pipeline.NewService(memCatalog{src: &memSource{raws: shunyiRows()}}, store,
		pipeline.Options{DefaultStation: "Shunyi"}, discardLogger(), metrics)
	return httpadapter.NewServer(":0", svc, metrics, discardLogger())
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// --- health ---

type notReadyAPI struct {
	httpadapter.API
	err error
}

func (n *notReadyAPI) CheckReadiness(context.Context) error { return n.err }

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newServiceServer(t), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestReadyz(t *testing.T) {
	srv := newServiceServer(t)

	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", decode(t, rec)["status"])

	require.Equal(t, http.StatusOK, get(t, srv, "/api/v1/summary").Code)

	rec = get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])
}

func TestReadyzReportsCheckerError(t *testing.T) {
	api := &notReadyAPI{err: fmt.Errorf("warming up")}
	srv := httpadapter.NewServer(":0", api, observability.NewMetricsForTesting(), discardLogger())

	rec := get(t, srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "warming up", decode(t, rec)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newServiceServer(t), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- api ---

func TestStations(t *testing.T) {
	rec := get(t, newServiceServer(t), "/api/v1/stations")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"Shunyi"}, decode(t, rec)["stations"])
}

func TestSummary(t *testing.T) {
	srv := newServiceServer(t)

	rec := get(t, srv, "/api/v1/summary?from=2014&to=2014&threshold=60")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["empty"])
	summary := body["summary"].(map[string]any)
	assert.Equal(t, 60.0, summary["threshold"])
	assert.Greater(t, summary["count"].(float64), 8000.0)

	t.Run("range outside data", func(t *testing.T) {
		rec := get(t, srv, "/api/v1/summary?from=1990&to=1991")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["empty"])
		assert.Equal(t, 0.0, body["summary"].(map[string]any)["count"])
	})
}

func TestTrend(t *testing.T) {
	rec := get(t, newServiceServer(t), "/api/v1/trend?from=2013&to=2013")

	require.Equal(t, http.StatusOK, rec.Code)
	points := decode(t, rec)["points"].([]any)
	require.Len(t, points, 10, "March through December")
	assert.Equal(t, "2013-03-01T00:00:00Z", points[0].(map[string]any)["month"])
}

func TestDistribution(t *testing.T) {
	rec := get(t, newServiceServer(t), "/api/v1/distribution?from=2015")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64((31+28)*24), body["count"])
	assert.Len(t, body["values"], (31+28)*24)
}

func TestRegression(t *testing.T) {
	srv := newServiceServer(t)

	rec := get(t, srv, "/api/v1/regression?features=temperature,WSPM")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{"TEMP", "WSPM"}, body["covariates"])
	assert.LessOrEqual(t, body["r2"].(float64), 1.0)
	assert.GreaterOrEqual(t, body["rmse"].(float64), 0.0)
	assert.Equal(t, 42.0, body["seed"])

	again := decode(t, get(t, srv, "/api/v1/regression?features=temperature,WSPM"))
	assert.Equal(t, body["coefficients"], again["coefficients"])
}

func TestDashboard(t *testing.T) {
	srv := newServiceServer(t)

	t.Run("regression skipped by default", func(t *testing.T) {
		rec := get(t, srv, "/api/v1/dashboard?from=2014&to=2014")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.NotEmpty(t, body["id"])
		assert.Equal(t, "Shunyi", body["station"])
		assert.NotContains(t, body, "regression")
		assert.Len(t, body["trend"], 12)
	})

	t.Run("regression on request", func(t *testing.T) {
		rec := get(t, srv, "/api/v1/dashboard?regression=true&features=TEMP,DEWP,PRES,WSPM")

		require.Equal(t, http.StatusOK, rec.Code)
		reg := decode(t, rec)["regression"].(map[string]any)
		assert.Len(t, reg["coefficients"], 4)
	})
}

func TestErrorMapping(t *testing.T) {
	srv := newServiceServer(t)

	tests := []struct {
		name   string
		target string
		status int
		stage  string
	}{
		{"empty feature set", "/api/v1/regression", http.StatusBadRequest, domain.StageRegression},
		{"unknown covariate", "/api/v1/regression?features=TEMP,RAIN", http.StatusBadRequest, ""},
		{"dashboard without features", "/api/v1/dashboard?regression=1", http.StatusBadRequest, domain.StageRegression},
		{"bad regression flag", "/api/v1/dashboard?regression=maybe", http.StatusBadRequest, ""},
		{"bad year", "/api/v1/summary?from=last", http.StatusBadRequest, ""},
		{"reversed range", "/api/v1/trend?from=2015&to=2013", http.StatusBadRequest, ""},
		{"bad threshold", "/api/v1/summary?threshold=-4", http.StatusBadRequest, ""},
		{"unknown station", "/api/v1/summary?station=Atlantis", http.StatusNotFound, ""},
		{"too few rows", "/api/v1/regression?features=TEMP&from=1990&to=1990", http.StatusUnprocessableEntity, domain.StageRegression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.target)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.NotEmpty(t, body["error"])
			if tt.stage != "" {
				assert.Equal(t, tt.stage, body["stage"])
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newServiceServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/summary", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
