package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/Sumatoshi-tech/neardup/internal/report"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/lru"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
	"github.com/Sumatoshi-tech/neardup/pkg/detector"
	"github.com/Sumatoshi-tech/neardup/pkg/rank"
)

var (
	errBadRequest    = errors.New("bad request")
	errShinglerUnset = errors.New("out-of-corpus queries are disabled")
)

// QueryResponse is the body of /v1/query. Warning is set when the query
// document has no shingles.
type QueryResponse struct {
	report.QueryReport

	Warning string `json:"warning,omitempty"`
}

// CandidatesResponse is the body of /v1/candidates.
type CandidatesResponse struct {
	Doc        uint32   `json:"doc"`
	Candidates []uint32 `json:"candidates"`
}

// StatsResponse is the body of /v1/stats.
type StatsResponse struct {
	Params    detector.Params     `json:"params"`
	Stats     detector.BuildStats `json:"stats"`
	Threshold float64             `json:"lsh_threshold"`
	Cache     lru.Stats           `json:"query_cache"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(rw http.ResponseWriter, hr *http.Request, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		s.logger.ErrorContext(hr.Context(), "failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(rw http.ResponseWriter, hr *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ErrNoModel):
		status = http.StatusServiceUnavailable
	case errors.Is(err, detector.ErrUnknownDocument):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, rank.ErrUnknownMetric):
		status = http.StatusBadRequest
	case errors.Is(err, errShinglerUnset):
		status = http.StatusNotImplemented
	}

	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(hr.Context(), "request failed", "path", hr.URL.Path, "error", err)
	}

	s.writeJSON(rw, hr, status, errorResponse{Error: err.Error()})
}

// queryParams holds the parsed query string shared by the query endpoints.
type queryParams struct {
	metric      rank.Metric
	threshold   float64
	onlyMatches bool
}

func (s *Server) parseQueryParams(hr *http.Request, m *detector.Model) (queryParams, error) {
	q := hr.URL.Query()
	p := queryParams{metric: m.Params().Metric, threshold: s.cfg.Threshold}

	if name := q.Get("metric"); name != "" {
		metric, err := rank.ParseMetric(name)
		if err != nil {
			return p, err
		}

		p.metric = metric
	}

	if raw := q.Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return p, fmt.Errorf("%w: threshold %q", errBadRequest, raw)
		}

		p.threshold = v
	}

	if raw := q.Get("matches"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return p, fmt.Errorf("%w: matches %q", errBadRequest, raw)
		}

		p.onlyMatches = v
	}

	return p, nil
}

// resolveDoc reads the document from ?doc=ID or ?path=P.
func resolveDoc(hr *http.Request, m *detector.Model) (id uint32, label string, err error) {
	q := hr.URL.Query()

	if raw := q.Get("doc"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return 0, "", fmt.Errorf("%w: doc %q", errBadRequest, raw)
		}

		return uint32(v), raw, nil
	}

	if path := q.Get("path"); path != "" {
		id, ok := m.Lookup(path)
		if !ok {
			return 0, "", fmt.Errorf("%w: path %q", detector.ErrUnknownDocument, path)
		}

		return id, path, nil
	}

	return 0, "", fmt.Errorf("%w: doc or path is required", errBadRequest)
}

func (s *Server) currentModel() (*detector.Model, error) {
	m := s.model.Load()
	if m == nil {
		return nil, ErrNoModel
	}

	return m, nil
}

func (s *Server) handleQuery(rw http.ResponseWriter, hr *http.Request) {
	m, err := s.currentModel()
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	id, label, err := resolveDoc(hr, m)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	params, err := s.parseQueryParams(hr, m)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	key := queryKey{model: m, id: id, metric: params.metric, threshold: params.threshold, onlyMatches: params.onlyMatches}
	resp, hit := s.cache.Get(key)
	if s.cache != nil {
		s.red.RecordCacheLookup(hr.Context(), hit)
	}

	if hit {
		resp.Query = label
		s.writeJSON(rw, hr, http.StatusOK, resp)

		return
	}

	results, err := m.Query(hr.Context(), id, params.metric)

	resp, err = answer(m, label, params, results, err)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	s.cache.Put(key, resp)
	s.writeJSON(rw, hr, http.StatusOK, resp)
}

func (s *Server) handleQueryText(rw http.ResponseWriter, hr *http.Request) {
	m, err := s.currentModel()
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	if s.shingler == nil {
		s.writeError(rw, hr, errShinglerUnset)

		return
	}

	params, err := s.parseQueryParams(hr, m)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	shingles, err := s.shingler.FromReader(http.MaxBytesReader(rw, hr.Body, maxBodyBytes))
	if err != nil {
		s.writeError(rw, hr, fmt.Errorf("%w: %w", errBadRequest, err))

		return
	}

	results, err := m.QueryShingles(hr.Context(), shingles, params.metric)

	resp, err := answer(m, "(request body)", params, results, err)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	s.writeJSON(rw, hr, http.StatusOK, resp)
}

// answer builds the response for a finished query. A query without shingles
// is answered with no hits and a warning.
func answer(m *detector.Model, label string, params queryParams, results []rank.Result, err error) (QueryResponse, error) {
	var warning string

	switch {
	case err == nil:
	case errors.Is(err, minhash.ErrEmptySignature):
		warning = err.Error()
	default:
		return QueryResponse{}, err
	}

	return QueryResponse{
		QueryReport: report.NewQueryReport(label, params.metric, params.threshold, results, m.Path, params.onlyMatches),
		Warning:     warning,
	}, nil
}

func (s *Server) handleCandidates(rw http.ResponseWriter, hr *http.Request) {
	m, err := s.currentModel()
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	id, _, err := resolveDoc(hr, m)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	candidates, err := m.Candidates(id)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	s.writeJSON(rw, hr, http.StatusOK, CandidatesResponse{Doc: id, Candidates: candidates})
}

func (s *Server) handlePairs(rw http.ResponseWriter, hr *http.Request) {
	m, err := s.currentModel()
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	params, err := s.parseQueryParams(hr, m)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	pairs, err := m.Pairs(hr.Context(), params.metric, params.threshold)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	s.writeJSON(rw, hr, http.StatusOK, report.NewPairsReport(params.metric, params.threshold, pairs, m.Path))
}

func (s *Server) handleStats(rw http.ResponseWriter, hr *http.Request) {
	m, err := s.currentModel()
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	s.writeJSON(rw, hr, http.StatusOK, StatsResponse{
		Params:    m.Params(),
		Stats:     m.Stats(),
		Threshold: m.Params().Threshold(),
		Cache:     s.cache.Stats(),
	})
}
