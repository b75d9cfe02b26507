package files

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu    sync.RWMutex
	files map[string]models.File
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{files: map[string]models.File{}, now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[file.ID]; ok {
		return common.ErrDuplicateIdentifier
	}
	file.UploadedAt = r.now().UTC()
	r.files[file.ID] = *file
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[id]
	if !ok {
		return nil, common.ErrFileNotFound
	}
	return &f, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.File, 0, len(r.files))
	for _, f := range r.files {
		f := f
		result = append(result, &f)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadedAt.After(result[j].UploadedAt)
	})
	return result, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[id]; !ok {
		return common.ErrFileNotFound
	}
	delete(r.files, id)
	return nil
}
