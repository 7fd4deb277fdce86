package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/identity-platform/internal/application/login"
	"github.com/identity-platform/internal/application/registration"
	"github.com/identity-platform/internal/application/token"
	"github.com/identity-platform/internal/config"
	"github.com/identity-platform/internal/domain"
	"github.com/identity-platform/internal/transport/http/handler"
	appmiddleware "github.com/identity-platform/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second with a burst of 10, applied to the sensitive public
	// endpoints so code issuance and verification cannot be hammered.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	registrationSvc := registration.NewService(registration.ServiceDeps{
		IdentityRepo: deps.IdentityRepo,
		CodeStore:    deps.CodeStore,
		Profiles:     deps.ProfileClient,
		Signer:       deps.JWTProvider,
		Mailer:       deps.Mailer,
		Alerts:       deps.Alerts,
		CodeTTL:      cfg.CodeTTL,
	})
	loginSvc := login.NewService(login.ServiceDeps{
		IdentityRepo: deps.IdentityRepo,
		CodeStore:    deps.CodeStore,
		Signer:       deps.JWTProvider,
		Mailer:       deps.Mailer,
		CodeTTL:      cfg.CodeTTL,
	})
	tokenSvc := token.NewService(deps.JWTProvider)

	healthH := handler.NewHealthHandler()
	registrationH := handler.NewRegistrationHandler(registrationSvc)
	sessionH := handler.NewSessionHandler(loginSvc)
	tokenH := handler.NewTokenHandler(tokenSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/registrations", registrationH.Register)
		r.With(sensitiveRL.Limit).Post("/registrations/verify", registrationH.Verify)
		r.With(sensitiveRL.Limit).Post("/registrations/resend", registrationH.Resend)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/sessions/login-code/request", sessionH.RequestLoginCode)
		r.With(sensitiveRL.Limit).Post("/sessions/login-code/verify", sessionH.VerifyLoginCode)

		// ── Scoped-token routes ──────────────────────────────────────────────
		r.With(appmiddleware.Scoped(deps.JWTProvider, token.PurposeDocumentUpload, domain.RolePartner, domain.RoleUser)).
			Post("/uploads/authorize", tokenH.AuthorizeUpload)

		// ── Authenticated routes (subject token) ─────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))

			r.Post("/tokens/scoped", tokenH.IssueScoped)
			r.With(appmiddleware.RequireRole(domain.RoleUser, domain.RoleAdmin)).
				Put("/credentials/password", sessionH.ChangePassword)
		})
	})

	return r
}
