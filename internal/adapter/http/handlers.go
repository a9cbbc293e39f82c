package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
)

// errBadParam marks a malformed query parameter.
var errBadParam = errors.New("bad parameter")

type summaryResponse struct {
	Station string         `json:"station,omitempty"`
	Empty   bool           `json:"empty"`
	Summary domain.Summary `json:"summary"`
}

type trendResponse struct {
	Station string                `json:"station,omitempty"`
	Points  []domain.MonthlyPoint `json:"points"`
}

type distributionResponse struct {
	Station string     `json:"station,omitempty"`
	Count   int        `json:"count"`
	Values  []*float64 `json:"values"`
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	names, err := s.api.Stations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"stations": names})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sum, err := s.api.Summary(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Station: q.Station, Empty: sum.Empty(), Summary: sum})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	points, err := s.api.MonthlyTrend(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if points == nil {
		points = []domain.MonthlyPoint{}
	}
	writeJSON(w, http.StatusOK, trendResponse{Station: q.Station, Points: points})
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	values, err := s.api.Distribution(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionResponse{Station: q.Station, Count: len(values), Values: pipeline.NullableFloats(values)})
}

func (s *Server) handleRegression(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q, err := parseQuery(params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	covs, err := parseCovariates(params.Get("features"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.api.RunRegression(r.Context(), q, covs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pipeline.NewRegressionView(res))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q, err := parseQuery(params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p := pipeline.Params{Query: q}
	if v := params.Get("regression"); v != "" {
		if p.RunRegression, err = strconv.ParseBool(v); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: regression=%q", errBadParam, v))
			return
		}
	}
	if p.RunRegression {
		if p.Covariates, err = parseCovariates(params.Get("features")); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	report, err := s.api.Dashboard(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// parseQuery reads station, from, to and threshold. Absent values stay zero.
func parseQuery(v url.Values) (pipeline.Query, error) {
	q := pipeline.Query{Station: strings.TrimSpace(v.Get("station"))}
	var err error
	if q.From, err = intParam(v, "from"); err != nil {
		return q, err
	}
	if q.To, err = intParam(v, "to"); err != nil {
		return q, err
	}
	if q.From != 0 && q.To != 0 && q.From > q.To {
		return q, fmt.Errorf("%w: from %d is after to %d", errBadParam, q.From, q.To)
	}
	if s := v.Get("threshold"); s != "" {
		if q.Threshold, err = strconv.ParseFloat(s, 64); err != nil || q.Threshold <= 0 {
			return q, fmt.Errorf("%w: threshold=%q", errBadParam, s)
		}
	}
	return q, nil
}

func intParam(v url.Values, name string) (int, error) {
	s := v.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, s)
	}
	return n, nil
}

// parseCovariates splits a comma-separated feature list. An empty list is
// left for the evaluator to reject.
func parseCovariates(s string) ([]domain.Covariate, error) {
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

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var se *domain.StageError
	if errors.As(err, &se) {
		resp.Stage = se.Stage
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, domain.ErrEmptyFeatureSet),
		errors.Is(err, domain.ErrUnknownCovariate):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrUnknownStation):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientSamples):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
