package handler

import (
	"encoding/json"
	"net/http"

	"github.com/identity-platform/internal/application/token"
	"github.com/identity-platform/internal/domain"
	"github.com/identity-platform/internal/transport/http/middleware"
)

// TokenHandler mints purpose-scoped tokens for authenticated subjects.
type TokenHandler struct {
	svc token.Service
}

func NewTokenHandler(svc token.Service) *TokenHandler {
	return &TokenHandler{svc: svc}
}

// IssueScoped mints a short-lived token restricted to one purpose.
func (h *TokenHandler) IssueScoped(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", domain.CodeUnauthorized)
		return
	}
	var req struct {
		Purpose string `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Purpose == "" {
		writeError(w, http.StatusBadRequest, "invalid request body", domain.CodeBadRequest)
		return
	}
	scoped, err := h.svc.IssueScoped(r.Context(), claims.Role, req.Purpose)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TokenEnvelope{Bearer: scoped})
}

// AuthorizeUpload is the single operation a document-upload scoped token is
// good for. Storage itself lives behind an external collaborator; this
// endpoint only proves the token was minted for exactly this operation.
func (h *TokenHandler) AuthorizeUpload(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
