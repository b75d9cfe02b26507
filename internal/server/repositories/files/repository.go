// Package files stores the metadata of uploaded documents. The document
// bytes themselves live in the blob store.
package files

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

// Repository persists file references. GetByID and Delete report a missing
// row as common.ErrFileNotFound.
type Repository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id string) (*models.File, error)
	List(ctx context.Context) ([]*models.File, error)
	Delete(ctx context.Context, id string) error
}
