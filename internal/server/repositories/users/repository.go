// Package users is the credential store: ops and client accounts with their
// password hashes, looked up by login identifier within a variant.
package users

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

// Repository persists principals.
//
// FindByIdentifier returns common.ErrorNotFound when no account of the
// variant has the identifier. InsertIfAbsent is atomic with respect to the
// (variant, identifier) pair and returns common.ErrDuplicateIdentifier when
// the identifier is taken.
type Repository interface {
	FindByIdentifier(ctx context.Context, variant models.Variant, identifier string) (*models.Principal, error)
	InsertIfAbsent(ctx context.Context, p *models.Principal) (string, error)
	SetVerified(ctx context.Context, id string) error
}
