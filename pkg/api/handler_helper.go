package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-threatgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// decodeJSON reads a bounded JSON body, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// do runs fn on the engine goroutine and maps runner failures to a response.
// It reports whether fn ran.
func (s *Server) do(w http.ResponseWriter, r *http.Request, operation string, fn func(*engine.Engine)) bool {
	err := s.runner.Do(r.Context(), fn)
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, engine.ErrRunnerStopped):
		s.respondError(w, http.StatusServiceUnavailable, "engine is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// client went away; nothing useful to write
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		s.logger.Error("engine operation failed",
			logging.Operation(operation),
			logging.String("request_id", middleware.GetRequestID(r)),
			logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, operation+" failed")
	}
	return false
}
