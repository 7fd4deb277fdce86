package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/identity-platform/internal/domain"
)

// MessageEnvelope is the generic response wrapper. ErrorCode is the stable
// code clients branch on; Error is a human-readable message.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// TokenEnvelope wraps responses that carry a bearer token.
type TokenEnvelope struct {
	Bearer string `json:"bearer"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: code})
}

// writeDomainError maps a sentinel-wrapped service error to an HTTP status
// and stable error code. Internal and downstream failures deliberately hide
// their detail from the caller; the full context is already logged.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error(), domain.CodeBadRequest)
	case errors.Is(err, domain.ErrEmailExists):
		writeError(w, http.StatusConflict, err.Error(), domain.CodeEmailExists)
	case errors.Is(err, domain.ErrCodeInvalid):
		writeError(w, http.StatusUnauthorized, err.Error(), domain.CodeInvalidOrExpired)
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error(), domain.CodeInvalidCredentials)
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error(), domain.CodeUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error(), domain.CodeForbidden)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), domain.CodeBadRequest)
	case errors.Is(err, domain.ErrDownstream):
		writeError(w, http.StatusBadGateway, "registration could not be completed", domain.CodeDownstreamFailed)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", domain.CodeInternal)
	}
}
