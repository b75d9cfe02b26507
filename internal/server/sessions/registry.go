package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/metrics"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/shared"
)

// TokenBytes is the entropy of a bearer token.
const TokenBytes = 32

// DefaultTTL is the absolute session lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

// newToken is a seam for tests.
var newToken = func() (string, error) {
	return shared.RandomURLToken(TokenBytes)
}

// Registry maps bearer tokens to principals.
type Registry struct {
	store   Store
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRegistry(store Store, ttl time.Duration, m *metrics.Metrics) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{store: store, ttl: ttl, metrics: m, now: time.Now}
}

// Create issues a new token for principalID in the variant's namespace.
func (r *Registry) Create(ctx context.Context, principalID string, variant models.Variant) (string, error) {
	if !variant.Valid() {
		return "", fmt.Errorf("unknown variant %q: %w", variant, common.ErrValidation)
	}

	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	now := r.now().UTC()
	s := &models.Session{
		Token:       token,
		PrincipalID: principalID,
		Variant:     variant,
		CreatedAt:   now,
		ExpiresAt:   now.Add(r.ttl),
	}
	if err := r.store.Put(ctx, s); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}

	r.metrics.SessionCreated(variant.String())
	return token, nil
}

// Resolve returns the principal id bound to token in variant's namespace.
// Unknown, expired and foreign-namespace tokens all yield
// common.ErrorUnauthorized.
func (r *Registry) Resolve(ctx context.Context, token string, variant models.Variant) (string, error) {
	if token == "" || !variant.Valid() {
		return "", common.ErrorUnauthorized
	}

	s, err := r.store.Get(ctx, variant, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", fmt.Errorf("loading session: %w", err)
	}

	if s.Variant != variant || s.Expired(r.now()) {
		return "", common.ErrorUnauthorized
	}
	return s.PrincipalID, nil
}

// Revoke removes token from variant's namespace. Unknown tokens are ignored.
func (r *Registry) Revoke(ctx context.Context, token string, variant models.Variant) error {
	if token == "" || !variant.Valid() {
		return nil
	}
	if err := r.store.Delete(ctx, variant, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	r.metrics.SessionRevoked(variant.String())
	return nil
}
