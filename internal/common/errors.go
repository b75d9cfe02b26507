// Package common defines sentinel errors and constants shared by the
// fileshare server, its transports and its admin tooling. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound          = errors.New("not found")
	ErrDuplicateIdentifier = errors.New("identifier already registered")
	ErrFileNotFound        = errors.New("file not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrValidation     = errors.New("validation error")

	// Login errors. ErrInvalidCredentials is returned both for unknown
	// identifiers and wrong passwords.
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")

	// Signed token errors.
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")

	// Upload errors.
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
)

// AuthorizationHeaderName is the HTTP header and gRPC metadata key carrying
// the bearer token.
const AuthorizationHeaderName = "authorization"
