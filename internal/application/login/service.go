package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/identity-platform/internal/domain"
	"github.com/identity-platform/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	// LoginPassword authenticates a password-bearing identity. The error
	// never distinguishes an unknown email from a wrong password.
	LoginPassword(ctx context.Context, email, password string) (string, error)
	// RequestLoginCode issues a one-time login code for an existing
	// code-only identity. Unlike registration, no draft is created.
	RequestLoginCode(ctx context.Context, email string) error
	// VerifyLoginCode consumes the login code and issues a subject token.
	VerifyLoginCode(ctx context.Context, email, code string) (string, error)
	// ChangePassword rotates the password hash for a password-bearing role.
	ChangePassword(ctx context.Context, subjectID, currentPassword, newPassword string) error
}

type identityStore interface {
	Get(ctx context.Context, subjectID string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	UpdatePasswordHash(ctx context.Context, subjectID, newHash string) error
}

type codeStore interface {
	Put(ctx context.Context, email, purpose, code string, payload []byte, ttl time.Duration) error
	Verify(ctx context.Context, email, purpose, candidate string) ([]byte, error)
}

type tokenSigner interface {
	SignSubject(subjectID, email, role string) (string, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	identities identityStore
	codes      codeStore
	signer     tokenSigner
	mail       mailer
	codeTTL    time.Duration
}

type ServiceDeps struct {
	IdentityRepo identityStore
	CodeStore    codeStore
	Signer       tokenSigner
	Mailer       mailer
	CodeTTL      time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		identities: deps.IdentityRepo,
		codes:      deps.CodeStore,
		signer:     deps.Signer,
		mail:       deps.Mailer,
		codeTTL:    deps.CodeTTL,
	}
}

func (s *service) LoginPassword(ctx context.Context, email, password string) (string, error) {
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Burn a comparison anyway so the response time does not reveal
			// whether the email exists.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if identity.PasswordHash == "" || !domain.PasswordBearing(identity.Role) {
		return "", domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}
	return s.signer.SignSubject(identity.SubjectID, identity.Email, identity.Role)
}

func (s *service) RequestLoginCode(ctx context.Context, email string) error {
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no account for email: %w", domain.ErrNotFound)
		}
		return err
	}
	if domain.PasswordBearing(identity.Role) {
		return fmt.Errorf("role %s logs in with a password: %w", identity.Role, domain.ErrBadRequest)
	}

	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrInternal)
	}
	if err := s.codes.Put(ctx, email, domain.PurposeLogin, code, nil, s.codeTTL); err != nil {
		return err
	}
	if err := s.mail.SendEmail(email, "Your login code", "Your login code: "+code); err != nil {
		slog.Warn("could not dispatch login code", "email", email, "err", err)
	}
	return nil
}

func (s *service) VerifyLoginCode(ctx context.Context, email, code string) (string, error) {
	if _, err := s.codes.Verify(ctx, email, domain.PurposeLogin, code); err != nil {
		if errors.Is(err, domain.ErrCodeInvalid) {
			return "", domain.ErrCodeInvalid
		}
		return "", err
	}
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return s.signer.SignSubject(identity.SubjectID, identity.Email, identity.Role)
}

func (s *service) ChangePassword(ctx context.Context, subjectID, currentPassword, newPassword string) error {
	identity, err := s.identities.Get(ctx, subjectID)
	if err != nil {
		return err
	}
	if !domain.PasswordBearing(identity.Role) {
		return fmt.Errorf("role %s has no password: %w", identity.Role, domain.ErrBadRequest)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.identities.UpdatePasswordHash(ctx, subjectID, string(hash))
}
