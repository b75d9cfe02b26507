package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

// Authorizer resolves a bearer token within one variant namespace.
type Authorizer interface {
	Authorize(ctx context.Context, token string, variant models.Variant) (string, error)
}

// Principal identifies the caller of a guarded operation.
type Principal struct {
	ID      string
	Variant models.Variant
}

type ctxKey struct{}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal injected by Guard.Require.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Guard gates an operation on a valid session of one variant. Transports
// adapt it: an HTTP middleware and a gRPC interceptor.
type Guard struct {
	authz Authorizer
}

func NewGuard(a Authorizer) *Guard {
	return &Guard{authz: a}
}

// Require resolves token for variant and returns ctx with the principal
// attached. Missing, unknown and foreign-namespace tokens all fail with
// common.ErrorUnauthorized; store failures with common.ErrorInternal.
func (g *Guard) Require(ctx context.Context, token string, variant models.Variant) (context.Context, error) {
	if token == "" {
		return ctx, common.ErrorUnauthorized
	}
	id, err := g.authz.Authorize(ctx, token, variant)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return ctx, common.ErrorUnauthorized
		}
		return ctx, common.ErrorInternal
	}
	return WithPrincipal(ctx, Principal{ID: id, Variant: variant}), nil
}

// BearerToken extracts the token from an Authorization value. Both
// "Bearer <token>" and a bare "<token>" are accepted.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
