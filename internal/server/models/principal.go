// Package models defines the server-side records shared by repositories,
// services and transports.
package models

import (
	"strings"
	"time"
)

// Variant tags a principal class. Its string value names the session
// namespace and selects the credential table.
type Variant string

const (
	VariantOps    Variant = "ops"
	VariantClient Variant = "client"
)

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	return v == VariantOps || v == VariantClient
}

func (v Variant) String() string { return string(v) }

// Principal is an account able to log in: an ops uploader identified by
// username or a client downloader identified by email.
type Principal struct {
	ID           string
	Variant      Variant
	Identifier   string
	PasswordHash string
	// Verified is always true for ops accounts.
	Verified  bool
	CreatedAt time.Time
}

// NormalizeIdentifier canonicalizes a login identifier for the variant.
// Client emails are compared case-insensitively; ops usernames only lose
// surrounding whitespace.
func NormalizeIdentifier(v Variant, identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if v == VariantClient {
		return strings.ToLower(identifier)
	}
	return identifier
}
