package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. Used by tests and by
// the server's -memory development mode.
type MemoryRepository struct {
	mu         sync.RWMutex
	byIdentity map[models.Variant]map[string]*models.Principal
	byID       map[string]*models.Principal
	now        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byIdentity: map[models.Variant]map[string]*models.Principal{
			models.VariantOps:    {},
			models.VariantClient: {},
		},
		byID: map[string]*models.Principal{},
		now:  time.Now,
	}
}

func (r *MemoryRepository) FindByIdentifier(_ context.Context, variant models.Variant, identifier string) (*models.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, ok := r.byIdentity[variant]
	if !ok {
		return nil, common.ErrValidation
	}
	p, ok := ns[identifier]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

// InsertIfAbsent checks and inserts under one write lock.
func (r *MemoryRepository) InsertIfAbsent(_ context.Context, p *models.Principal) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, ok := r.byIdentity[p.Variant]
	if !ok {
		return "", common.ErrValidation
	}
	if _, taken := ns[p.Identifier]; taken {
		return "", common.ErrDuplicateIdentifier
	}

	p.ID = uuid.NewString()
	p.CreatedAt = r.now().UTC()
	if p.Variant == models.VariantOps {
		p.Verified = true
	}

	stored := *p
	ns[p.Identifier] = &stored
	r.byID[p.ID] = &stored
	return p.ID, nil
}

func (r *MemoryRepository) SetVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok || p.Variant != models.VariantClient {
		return common.ErrorNotFound
	}
	p.Verified = true
	return nil
}
