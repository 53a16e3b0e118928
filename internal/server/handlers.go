package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"enhancer/internal/core"

	"github.com/go-chi/chi/v5"
)

// HealthResponse is the /health body
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

// Envelope wraps successful API responses
type Envelope struct {
	Success bool `json:"success"`
	Count   *int `json:"count,omitempty"`
	Data    any  `json:"data"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

const maxBodyBytes = 1 << 20

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}
	status := http.StatusOK
	overall := "ok"

	if err := s.deps.Store.Ping(r.Context()); err != nil {
		s.log.Warn("Health check failed", "error", err.Error())
		checks["store"] = "error"
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	s.respondJSON(w, status, HealthResponse{
		Status: overall,
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
		Checks: checks,
	})
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondData(w http.ResponseWriter, status int, data any) {
	s.respondJSON(w, status, Envelope{Success: true, Data: data})
}

// respondError writes {"error": message}
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

// respondFailure maps err onto a status code by kind and logs server-side failures.
func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}
	s.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotOriginal), errors.Is(err, core.ErrInvalidArticle):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// articleID parses the {id} URL parameter
func articleID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid article id: " + raw)
	}
	return id, nil
}

// decodeJSON reads a bounded JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
