package handler

import (
	"encoding/json"
	"net/http"

	"github.com/identity-platform/internal/application/login"
	"github.com/identity-platform/internal/domain"
	"github.com/identity-platform/internal/transport/http/middleware"
)

// SessionHandler exposes the credential verification flows.
type SessionHandler struct {
	svc login.Service
}

func NewSessionHandler(svc login.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Login authenticates a password-bearing identity.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", domain.CodeBadRequest)
		return
	}
	bearer, err := h.svc.LoginPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{Bearer: bearer})
}

// RequestLoginCode issues a one-time login code for a code-only identity.
func (h *SessionHandler) RequestLoginCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid request body", domain.CodeBadRequest)
		return
	}
	if err := h.svc.RequestLoginCode(r.Context(), req.Email); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "login code sent"})
}

// VerifyLoginCode consumes the login code and returns a subject token.
func (h *SessionHandler) VerifyLoginCode(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", domain.CodeBadRequest)
		return
	}
	bearer, err := h.svc.VerifyLoginCode(r.Context(), req.Email, req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{Bearer: bearer})
}

// ChangePassword rotates the authenticated subject's password.
func (h *SessionHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", domain.CodeUnauthorized)
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", domain.CodeBadRequest)
		return
	}
	// Same bounds as registration; 72 is the bcrypt input limit.
	if len(req.NewPassword) < 8 || len(req.NewPassword) > 72 {
		writeError(w, http.StatusBadRequest, "password must be 8-72 characters", domain.CodeBadRequest)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), claims.SubjectID, req.CurrentPassword, req.NewPassword); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password changed"})
}
