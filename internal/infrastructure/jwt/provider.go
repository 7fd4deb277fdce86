package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/identity-platform/internal/config"
)

// Claims holds the JWT payload fields. A subject token carries SubjectID,
// Email and Role; a scoped token carries Purpose and Role only. The presence
// of SubjectID is the discriminator between the two shapes.
type Claims struct {
	SubjectID string `json:"subject_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// IsSubject reports whether the claims belong to a full subject token.
func (c *Claims) IsSubject() bool { return c.SubjectID != "" }

// Provider signs and verifies RS256 JWTs. The key pair is process-wide
// configuration loaded once at startup.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	subjectTTL time.Duration
	scopedTTL  time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{
		privateKey: privKey,
		publicKey:  pubKey,
		subjectTTL: cfg.SubjectTokenTTL,
		scopedTTL:  cfg.ScopedTokenTTL,
	}, nil
}

// SignSubject issues a full post-authentication subject token.
func (p *Provider) SignSubject(subjectID, email, role string) (string, error) {
	return p.sign(Claims{
		SubjectID: subjectID,
		Email:     email,
		Role:      role,
	}, p.subjectTTL)
}

// SignScoped issues a short-lived token restricted to one purpose/role pair.
// Scoped tokens are never exchangeable for subject tokens.
func (p *Provider) SignScoped(purpose, role string) (string, error) {
	return p.sign(Claims{
		Purpose: purpose,
		Role:    role,
	}, p.scopedTTL)
}

func (p *Provider) sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

// Verify checks the signature and expiry and returns the claims of either
// token shape. Tokens signed with a different key or past expiry fail.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// VerifySubject verifies the token and additionally requires the full
// subject shape; a scoped token is rejected where a subject token is needed.
func (p *Provider) VerifySubject(tokenStr string) (*Claims, error) {
	claims, err := p.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if !claims.IsSubject() {
		return nil, errors.New("scoped token not accepted here")
	}
	return claims, nil
}

// VerifyScoped verifies the token and requires a scoped shape minted for
// exactly the given purpose and role.
func (p *Provider) VerifyScoped(tokenStr, purpose, role string) (*Claims, error) {
	claims, err := p.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.IsSubject() || claims.Purpose != purpose || claims.Role != role {
		return nil, errors.New("token not scoped for this operation")
	}
	return claims, nil
}
