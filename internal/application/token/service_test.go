package token

import (
	"context"
	"testing"

	"github.com/identity-platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockScopedSigner struct{ mock.Mock }

func (m *mockScopedSigner) SignScoped(purpose, role string) (string, error) {
	args := m.Called(purpose, role)
	return args.String(0), args.Error(1)
}

func TestIssueScoped_AllowedRoles(t *testing.T) {
	for _, role := range []string{domain.RoleUser, domain.RolePartner} {
		sg := &mockScopedSigner{}
		sg.On("SignScoped", PurposeDocumentUpload, role).Return("scoped-token", nil)

		token, err := NewService(sg).IssueScoped(context.Background(), role, PurposeDocumentUpload)
		require.NoError(t, err, role)
		assert.Equal(t, "scoped-token", token)
	}
}

func TestIssueScoped_UnknownPurpose(t *testing.T) {
	sg := &mockScopedSigner{}
	_, err := NewService(sg).IssueScoped(context.Background(), domain.RoleUser, "account-takeover")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	sg.AssertNotCalled(t, "SignScoped", mock.Anything, mock.Anything)
}

func TestIssueScoped_RoleNotAllowed(t *testing.T) {
	sg := &mockScopedSigner{}
	_, err := NewService(sg).IssueScoped(context.Background(), domain.RoleAdmin, PurposeDocumentUpload)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	sg.AssertNotCalled(t, "SignScoped", mock.Anything, mock.Anything)
}
