package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/identity-platform/internal/domain"
	"github.com/identity-platform/internal/infrastructure/profile"
	"github.com/identity-platform/internal/pkg/id"
	"github.com/identity-platform/internal/pkg/otp"
	"github.com/identity-platform/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// commitTimeout bounds the commit/compensate sequence. It runs under a
// context detached from the request so a caller disconnect after the code is
// consumed cannot leave the saga between states.
const commitTimeout = 30 * time.Second

type Service interface {
	// Register validates the request, issues a one-time code and parks the
	// pending identity and profile drafts. Nothing durable is written.
	Register(ctx context.Context, req domain.RegisterRequest) error
	// VerifyAndCommit consumes the code, commits the identity, creates the
	// downstream profile and returns a subject token. Exactly one of N
	// concurrent submissions of the correct code commits.
	VerifyAndCommit(ctx context.Context, email, code string) (string, error)
	// ResendCode reissues a fresh code for a still-pending registration.
	ResendCode(ctx context.Context, email string) error
}

type identityStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	Create(ctx context.Context, id *domain.Identity) error
	Delete(ctx context.Context, subjectID string) error
}

type codeStore interface {
	Put(ctx context.Context, email, purpose, code string, payload []byte, ttl time.Duration) error
	Verify(ctx context.Context, email, purpose, candidate string) ([]byte, error)
	Rotate(ctx context.Context, email, purpose, newCode string, ttl time.Duration) error
	Clear(ctx context.Context, email, purpose string) error
}

type profileCreator interface {
	Create(ctx context.Context, role string, req *profile.CreateRequest) error
}

type tokenSigner interface {
	SignSubject(subjectID, email, role string) (string, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type alertPublisher interface {
	PublishAlert(ctx context.Context, subject, message string) error
}

type service struct {
	identities identityStore
	codes      codeStore
	profiles   profileCreator
	signer     tokenSigner
	mail       mailer
	alerts     alertPublisher
	codeTTL    time.Duration
}

type ServiceDeps struct {
	IdentityRepo identityStore
	CodeStore    codeStore
	Profiles     profileCreator
	Signer       tokenSigner
	Mailer       mailer
	Alerts       alertPublisher
	CodeTTL      time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		identities: deps.IdentityRepo,
		codes:      deps.CodeStore,
		profiles:   deps.Profiles,
		signer:     deps.Signer,
		mail:       deps.Mailer,
		alerts:     deps.Alerts,
		codeTTL:    deps.CodeTTL,
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if err := validateRoleShape(req); err != nil {
		return err
	}

	if _, err := s.identities.GetByEmail(ctx, req.Email); err == nil {
		return fmt.Errorf("email %s: %w", req.Email, domain.ErrEmailExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	draft := domain.Identity{
		Email: req.Email,
		Role:  req.Role,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		draft.PasswordHash = string(hash)
	}

	pending := domain.PendingRegistration{
		IdentityDraft: draft,
		ProfileDraft:  req.ProfileFields,
	}
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("encode pending registration: %w", domain.ErrInternal)
	}

	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrInternal)
	}
	if err := s.codes.Put(ctx, req.Email, domain.PurposeRegister, code, payload, s.codeTTL); err != nil {
		return err
	}

	// Dispatch is fire-and-forget for the saga: a failed send is logged and
	// the caller may request a resend, but the pending entry stands.
	if err := s.mail.SendEmail(req.Email, "Your verification code", "Your verification code: "+code); err != nil {
		slog.Warn("could not dispatch verification code", "email", req.Email, "err", err)
	}
	return nil
}

func (s *service) VerifyAndCommit(ctx context.Context, email, code string) (string, error) {
	payload, err := s.codes.Verify(ctx, email, domain.PurposeRegister, code)
	if err != nil {
		if errors.Is(err, domain.ErrCodeInvalid) {
			return "", domain.ErrCodeInvalid
		}
		return "", err
	}

	var pending domain.PendingRegistration
	if err := json.Unmarshal(payload, &pending); err != nil {
		return "", fmt.Errorf("decode pending registration: %w", domain.ErrInternal)
	}

	// The code is consumed; the saga now runs to a terminal state regardless
	// of the caller's liveness.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	now := time.Now().UTC()
	identity := pending.IdentityDraft
	identity.SubjectID = id.New()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	if err := s.identities.Create(commitCtx, &identity); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			// Lost the commit race against a concurrent registration; nothing
			// was written by this run, so there is nothing to compensate.
			return "", fmt.Errorf("email %s: %w", email, domain.ErrEmailExists)
		}
		return "", err
	}

	err = s.profiles.Create(commitCtx, identity.Role, &profile.CreateRequest{
		SubjectID:     identity.SubjectID,
		Email:         identity.Email,
		ProfileFields: pending.ProfileDraft,
	})
	if err != nil {
		s.compensate(commitCtx, &identity, err)
		return "", fmt.Errorf("profile creation: %w", domain.ErrDownstream)
	}

	return s.signer.SignSubject(identity.SubjectID, identity.Email, identity.Role)
}

// compensate deletes the identity committed earlier in the same saga run so
// the caller can re-register from scratch. Failure leaves an orphaned
// identity with no profile; that is escalated, not retried forever.
func (s *service) compensate(ctx context.Context, identity *domain.Identity, cause error) {
	slog.Warn("rolling back identity after downstream failure",
		"subject_id", identity.SubjectID, "role", identity.Role, "err", cause)

	if err := s.identities.Delete(ctx, identity.SubjectID); err != nil {
		slog.Error("compensation failed, orphaned identity",
			"subject_id", identity.SubjectID, "err", err)
		if s.alerts != nil {
			msg := fmt.Sprintf("identity %s (role %s) committed but profile creation and rollback both failed", identity.SubjectID, identity.Role)
			if aerr := s.alerts.PublishAlert(ctx, "identity compensation failed", msg); aerr != nil {
				slog.Error("could not publish compensation alert", "err", aerr)
			}
		}
	}
}

func (s *service) ResendCode(ctx context.Context, email string) error {
	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrInternal)
	}
	if err := s.codes.Rotate(ctx, email, domain.PurposeRegister, code, s.codeTTL); err != nil {
		return err
	}
	if err := s.mail.SendEmail(email, "Your verification code", "Your verification code: "+code); err != nil {
		slog.Warn("could not dispatch verification code", "email", email, "err", err)
	}
	return nil
}

// validateRoleShape checks the role-specific constraints: password presence
// and the expected profile_fields shape. Failures are reported synchronously
// and never reach the code store.
func validateRoleShape(req domain.RegisterRequest) error {
	switch req.Role {
	case domain.RoleUser:
		if req.Password == "" {
			return fmt.Errorf("password required for role %s: %w", req.Role, domain.ErrBadRequest)
		}
		var draft domain.UserProfileDraft
		if err := json.Unmarshal(req.ProfileFields, &draft); err != nil {
			return fmt.Errorf("malformed profile_fields: %w", domain.ErrBadRequest)
		}
		if err := validate.Struct(draft); err != nil {
			return fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
		}
	case domain.RolePartner:
		if req.Password != "" {
			return fmt.Errorf("role %s authenticates with one-time codes, not passwords: %w", req.Role, domain.ErrBadRequest)
		}
		var draft domain.PartnerProfileDraft
		if err := json.Unmarshal(req.ProfileFields, &draft); err != nil {
			return fmt.Errorf("malformed profile_fields: %w", domain.ErrBadRequest)
		}
		if err := validate.Struct(draft); err != nil {
			return fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
		}
	default:
		return fmt.Errorf("unknown role %q: %w", req.Role, domain.ErrBadRequest)
	}
	return nil
}
