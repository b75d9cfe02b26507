// Package sessions issues and resolves opaque bearer tokens. Each principal
// variant has its own namespace: a token created for ops never resolves as
// a client session.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

// Store keeps sessions until their ExpiresAt. Get returns
// common.ErrorNotFound for unknown or expired tokens; Delete of an unknown
// token succeeds.
type Store interface {
	Put(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, variant models.Variant, token string) (*models.Session, error)
	Delete(ctx context.Context, variant models.Variant, token string) error
}
