package handler

import (
	"encoding/json"
	"net/http"

	"github.com/identity-platform/internal/application/registration"
	"github.com/identity-platform/internal/domain"
)

// RegistrationHandler exposes the registration saga entry points.
type RegistrationHandler struct {
	svc registration.Service
}

func NewRegistrationHandler(svc registration.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// Register accepts a registration request and acknowledges it. The response
// never contains the code or a token.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", domain.CodeBadRequest)
		return
	}
	if err := h.svc.Register(r.Context(), req); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "verification code sent"})
}

// Verify submits the one-time code and returns a subject token on success.
func (h *RegistrationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", domain.CodeBadRequest)
		return
	}
	bearer, err := h.svc.VerifyAndCommit(r.Context(), req.Email, req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TokenEnvelope{Bearer: bearer})
}

// Resend rotates the pending code and dispatches it again.
func (h *RegistrationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid request body", domain.CodeBadRequest)
		return
	}
	if err := h.svc.ResendCode(r.Context(), req.Email); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "verification code sent"})
}
