package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError translates domain errors into the JSON error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *domain.ValidationError
		ce *domain.ConflictError
		te *domain.InvalidTransitionError
		ne *domain.NotFoundError
	)

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, errorResponse{Error: ce.Message, Field: ce.Field})
	case errors.As(err, &te):
		writeJSON(w, http.StatusConflict, errorResponse{Error: te.Error()})
	case errors.As(err, &ne):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: ne.Error()})
	default:
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
