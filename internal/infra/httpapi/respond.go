package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"jobtalk/internal/application"
	"jobtalk/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrSuperseded):
		return http.StatusConflict
	case domain.IsTranscription(err), domain.IsCategorization(err):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Info("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeJSON reads a size-limited JSON body into v. Bad input is a
// ValidationError.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &domain.ValidationError{Field: "body", Reason: "request body is empty"}
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &domain.ValidationError{Field: "body", Reason: fmt.Sprintf("request body exceeds %d bytes", limit), Err: err}
		}
		return &domain.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error(), Err: err}
	}
	return nil
}
