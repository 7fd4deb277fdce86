package http

import (
	"github.com/identity-platform/internal/infrastructure/dynamo"
	jwtinfra "github.com/identity-platform/internal/infrastructure/jwt"
	"github.com/identity-platform/internal/infrastructure/profile"
	redisinfra "github.com/identity-platform/internal/infrastructure/redis"
	"github.com/identity-platform/internal/infrastructure/smtp"
	"github.com/identity-platform/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router. Everything is
// constructed in main and passed in; no package-level state.
type Deps struct {
	IdentityRepo  *dynamo.IdentityRepo
	CodeStore     *redisinfra.CodeStore
	ProfileClient *profile.Client
	Mailer        smtp.Mailer
	Alerts        sns.AlertPublisher
	JWTProvider   *jwtinfra.Provider
}
