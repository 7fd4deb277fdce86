package token

import (
	"context"
	"fmt"

	"github.com/identity-platform/internal/domain"
)

// PurposeDocumentUpload authorizes exactly one document upload call without
// granting full account access.
const PurposeDocumentUpload = "document-upload"

// allowedPurposes lists the operations a scoped token may be minted for and
// the roles that may request each.
var allowedPurposes = map[string][]string{
	PurposeDocumentUpload: {domain.RolePartner, domain.RoleUser},
}

type Service interface {
	// IssueScoped mints a short-lived token restricted to one purpose for
	// the caller's role. Scoped tokens are never exchangeable for subject
	// tokens.
	IssueScoped(ctx context.Context, role, purpose string) (string, error)
}

type scopedSigner interface {
	SignScoped(purpose, role string) (string, error)
}

type service struct {
	signer scopedSigner
}

func NewService(signer scopedSigner) Service {
	return &service{signer: signer}
}

func (s *service) IssueScoped(_ context.Context, role, purpose string) (string, error) {
	roles, ok := allowedPurposes[purpose]
	if !ok {
		return "", fmt.Errorf("unknown purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	for _, r := range roles {
		if r == role {
			return s.signer.SignScoped(purpose, role)
		}
	}
	return "", fmt.Errorf("role %s may not mint %q tokens: %w", role, purpose, domain.ErrForbidden)
}
