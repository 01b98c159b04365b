package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/paperdup/internal/embedding"
	"github.com/matsen/paperdup/internal/logger"
	"github.com/matsen/paperdup/internal/reference"
	"github.com/matsen/paperdup/internal/semantic"
)

// maxRequestBody bounds the size of a check request.
const maxRequestBody = 1 << 20

// CheckRequest is the body of POST /api/v1/check.
type CheckRequest struct {
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Threshold *float64 `json:"threshold,omitempty"`
	TopK      *int     `json:"top_k,omitempty"`
}

// PapersResponse is the body of GET /api/v1/papers.
type PapersResponse struct {
	Total  int                   `json:"total"`
	Papers []reference.Reference `json:"papers"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CheckRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Abstract) == "" {
		s.respondError(w, http.StatusBadRequest, "title or abstract is required")
		return
	}

	var opts []semantic.CheckerOption
	if req.Threshold != nil {
		opts = append(opts, semantic.WithThreshold(*req.Threshold))
	}
	if req.TopK != nil {
		opts = append(opts, semantic.WithTopK(*req.TopK))
	}
	checker, err := s.checker.With(opts...)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	corpus, err := s.corpus(r.Context())
	if err != nil {
		log.Error("Loading corpus failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "loading corpus: "+err.Error())
		return
	}

	verdict, err := checker.Check(r.Context(), req.Title, req.Abstract, corpus)
	if err != nil {
		log.Error("Check failed", zap.Error(err))
		s.respondError(w, checkErrorStatus(err), err.Error())
		return
	}

	log.Debug("Check completed",
		zap.Int("corpus", len(corpus)),
		zap.Bool("exists", verdict.Exists),
	)
	s.respondJSON(w, http.StatusOK, verdict)
}

// checkErrorStatus maps a failed check to an HTTP status.
func checkErrorStatus(err error) int {
	switch {
	case embedding.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, semantic.ErrInvariantViolation):
		return http.StatusInternalServerError
	case embedding.IsEncodingError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	corpus, err := s.corpus(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Loading corpus failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "loading corpus: "+err.Error())
		return
	}

	papers := corpus
	if limit > 0 && len(papers) > limit {
		papers = papers[:limit]
	}
	s.respondJSON(w, http.StatusOK, PapersResponse{Total: len(corpus), Papers: papers})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "model": s.model})
}

// respondJSON encodes data before writing the status, so a value JSON cannot
// represent (a NaN score) becomes a 500 instead of a truncated 200.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		s.logger.Error("Encoding response failed", zap.Error(err))
		buf.Reset()
		status = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(map[string]string{"error": "encoding response: " + err.Error()})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("Writing response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
