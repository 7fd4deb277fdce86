package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/identity-platform/internal/config"
	"github.com/identity-platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProvider generates a fresh RSA key pair, writes it to temp files,
// and returns a Provider with the given TTLs.
func newTestProvider(t *testing.T, subjectTTL, scopedTTL time.Duration) *Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		SubjectTokenTTL:   subjectTTL,
		ScopedTokenTTL:    scopedTTL,
	})
	require.NoError(t, err)
	return p
}

func TestSignSubject_RoundTrip(t *testing.T) {
	p := newTestProvider(t, time.Hour, time.Minute)

	token, err := p.SignSubject("01HXYZ", "alice@x.com", domain.RoleUser)
	require.NoError(t, err)

	claims, err := p.VerifySubject(token)
	require.NoError(t, err)
	assert.Equal(t, "01HXYZ", claims.SubjectID)
	assert.Equal(t, "alice@x.com", claims.Email)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Empty(t, claims.Purpose)
}

func TestSignScoped_RoundTrip(t *testing.T) {
	p := newTestProvider(t, time.Hour, time.Minute)

	token, err := p.SignScoped("document-upload", domain.RolePartner)
	require.NoError(t, err)

	claims, err := p.VerifyScoped(token, "document-upload", domain.RolePartner)
	require.NoError(t, err)
	assert.Empty(t, claims.SubjectID)
	assert.Equal(t, "document-upload", claims.Purpose)
}

func TestVerifySubject_RejectsScopedToken(t *testing.T) {
	p := newTestProvider(t, time.Hour, time.Minute)

	token, err := p.SignScoped("document-upload", domain.RolePartner)
	require.NoError(t, err)

	_, err = p.VerifySubject(token)
	assert.Error(t, err)
}

func TestVerifyScoped_RejectsSubjectToken(t *testing.T) {
	p := newTestProvider(t, time.Hour, time.Minute)

	token, err := p.SignSubject("01HXYZ", "alice@x.com", domain.RolePartner)
	require.NoError(t, err)

	_, err = p.VerifyScoped(token, "document-upload", domain.RolePartner)
	assert.Error(t, err)
}

func TestVerifyScoped_RejectsWrongPurposeOrRole(t *testing.T) {
	p := newTestProvider(t, time.Hour, time.Minute)

	token, err := p.SignScoped("document-upload", domain.RolePartner)
	require.NoError(t, err)

	_, err = p.VerifyScoped(token, "bank-change", domain.RolePartner)
	assert.Error(t, err)
	_, err = p.VerifyScoped(token, "document-upload", domain.RoleUser)
	assert.Error(t, err)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	p := newTestProvider(t, -time.Minute, time.Minute)

	token, err := p.SignSubject("01HXYZ", "alice@x.com", domain.RoleUser)
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.Error(t, err)
}

func TestVerify_RejectsTokenSignedWithDifferentKey(t *testing.T) {
	p1 := newTestProvider(t, time.Hour, time.Minute)
	p2 := newTestProvider(t, time.Hour, time.Minute)

	token, err := p1.SignSubject("01HXYZ", "alice@x.com", domain.RoleUser)
	require.NoError(t, err)

	_, err = p2.Verify(token)
	assert.Error(t, err)
}

func TestVerify_RejectsGarbage(t *testing.T) {
	p := newTestProvider(t, time.Hour, time.Minute)
	_, err := p.Verify("not.a.jwt")
	assert.Error(t, err)
}
