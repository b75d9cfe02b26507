package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

// MemoryStore keeps one map per variant. Sessions do not survive a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[models.Variant]map[string]models.Session
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces: map[models.Variant]map[string]models.Session{
			models.VariantOps:    {},
			models.VariantClient: {},
		},
		now: time.Now,
	}
}

func (m *MemoryStore) Put(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[s.Variant]
	if !ok {
		return common.ErrValidation
	}
	ns[s.Token] = *s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, variant models.Variant, token string) (*models.Session, error) {
	m.mu.RLock()
	s, ok := m.namespaces[variant][token]
	m.mu.RUnlock()

	if !ok || s.Expired(m.now()) {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, variant models.Variant, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ns, ok := m.namespaces[variant]; ok {
		delete(ns, token)
	}
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, ns := range m.namespaces {
		for token, s := range ns {
			if s.Expired(now) {
				delete(ns, token)
				removed++
			}
		}
	}
	return removed
}

// RunJanitor calls Sweep every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}
