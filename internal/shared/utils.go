// Package shared provides helpers for generating random tokens and for
// wiping sensitive byte slices.
package shared

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomBytes returns size bytes read from crypto/rand.
func RandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// RandomURLToken generates size random bytes and returns them encoded with
// unpadded URL-safe base64. 32 bytes give a 43-character token.
func RandomURLToken(size int) (string, error) {
	b, err := RandomBytes(size)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
