// Package auth holds the signed-token codec used for email verification and
// download capabilities, and the Guard that protects session-gated
// operations.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// Token purposes and the maximum age each is accepted for.
const (
	PurposeEmailVerify    = "email-verify"
	PurposeSecureDownload = "secure-download"

	EmailVerifyMaxAge    = 3600 * time.Second
	SecureDownloadMaxAge = 1800 * time.Second
)

// MinSecretLen is the shortest accepted signing secret, in bytes.
const MinSecretLen = 32

// Payload is the data carried by a signed token.
type Payload map[string]string

type tokenClaims struct {
	jwt.RegisteredClaims
	Purpose string  `json:"pur"`
	Data    Payload `json:"dat"`
}

// Signer mints and checks purpose-bound, time-limited tokens. Tokens are
// HS256 JWTs whose key is derived from the secret and the purpose, so a
// token minted for one purpose never verifies under another.
//
// A Signer is immutable after construction and safe for concurrent use.
type Signer struct {
	secret   []byte
	previous [][]byte

	// Now is the clock used by Decode.
	Now func() time.Time
}

// NewSigner returns a Signer for secret. Tokens signed with any of the
// previous secrets are still accepted, which allows rotating the secret
// without invalidating outstanding links.
func NewSigner(secret []byte, previous ...[]byte) (*Signer, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", MinSecretLen)
	}
	s := &Signer{secret: append([]byte(nil), secret...), Now: time.Now}
	for _, p := range previous {
		if len(p) == 0 {
			continue
		}
		if len(p) < MinSecretLen {
			return nil, fmt.Errorf("previous signing secret must be at least %d bytes", MinSecretLen)
		}
		s.previous = append(s.previous, append([]byte(nil), p...))
	}
	return s, nil
}

// GenerateSecret returns a random secret suitable for NewSigner.
func GenerateSecret() ([]byte, error) {
	return shared.RandomBytes(MinSecretLen)
}

func deriveKey(secret []byte, purpose string) []byte {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte("fileshare." + purpose))
	return m.Sum(nil)
}

// Encode signs payload for purpose with the given issue time.
func (s *Signer) Encode(payload Payload, purpose string, issuedAt time.Time) (string, error) {
	if payload == nil {
		payload = Payload{}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(issuedAt)},
		Purpose:          purpose,
		Data:             payload,
	})
	return token.SignedString(deriveKey(s.secret, purpose))
}

// Decode verifies token for purpose and returns its payload.
//
// The signature is checked first; any malformed, tampered or foreign token
// yields common.ErrInvalidSignature. A genuine token older than maxAge
// yields common.ErrTokenExpired.
func (s *Signer) Decode(token, purpose string, maxAge time.Duration) (Payload, error) {
	keys := jwt.VerificationKeySet{Keys: []jwt.VerificationKey{deriveKey(s.secret, purpose)}}
	for _, p := range s.previous {
		keys.Keys = append(keys.Keys, deriveKey(p, purpose))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)

	claims := &tokenClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return keys, nil
	})
	if err != nil || !parsed.Valid {
		return nil, common.ErrInvalidSignature
	}

	if claims.Purpose != purpose || claims.IssuedAt == nil {
		return nil, common.ErrInvalidSignature
	}

	age := s.Now().Unix() - claims.IssuedAt.Unix()
	if age < 0 || age > int64(maxAge/time.Second) {
		return nil, common.ErrTokenExpired
	}

	if claims.Data == nil {
		claims.Data = Payload{}
	}
	return claims.Data, nil
}

// IsTokenError reports whether err is one of the Decode failures.
func IsTokenError(err error) bool {
	return errors.Is(err, common.ErrInvalidSignature) || errors.Is(err, common.ErrTokenExpired)
}
