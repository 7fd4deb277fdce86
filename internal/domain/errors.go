package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes and stable
// error codes without leaking infrastructure details.
var (
	ErrNotFound           = errors.New("not found")
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailExists        = errors.New("email already registered")
	ErrCodeInvalid        = errors.New("invalid or expired code")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDownstream         = errors.New("downstream registration failed")
	ErrInternal           = errors.New("internal error")
)

// Stable error codes returned to clients alongside the HTTP status.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInvalidOrExpired   = "INVALID_OR_EXPIRED_CODE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeDownstreamFailed   = "DOWNSTREAM_REGISTRATION_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL_ERROR"
)
