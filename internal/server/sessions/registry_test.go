package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/metrics"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(t *testing.T, ttl time.Duration) (*Registry, *clock, *MemoryStore) {
	t.Helper()
	clk := &clock{t: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clk.Now
	r := NewRegistry(store, ttl, nil)
	r.now = clk.Now
	return r, clk, store
}

func TestRegistry_CreateResolve(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t, time.Hour)

	tok, err := r.Create(ctx, "o-1", models.VariantOps)
	require.NoError(t, err)
	assert.Len(t, tok, 43)

	id, err := r.Resolve(ctx, tok, models.VariantOps)
	require.NoError(t, err)
	assert.Equal(t, "o-1", id)
}

func TestRegistry_CrossNamespaceRejected(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t, time.Hour)

	opsTok, err := r.Create(ctx, "o-1", models.VariantOps)
	require.NoError(t, err)
	cliTok, err := r.Create(ctx, "c-1", models.VariantClient)
	require.NoError(t, err)

	_, err = r.Resolve(ctx, opsTok, models.VariantClient)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = r.Resolve(ctx, cliTok, models.VariantOps)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRegistry_SameTokenInBothNamespacesStaysSeparate(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t, time.Hour)

	orig := newToken
	t.Cleanup(func() { newToken = orig })
	newToken = func() (string, error) { return "collision", nil }

	_, err := r.Create(ctx, "o-1", models.VariantOps)
	require.NoError(t, err)
	_, err = r.Create(ctx, "c-1", models.VariantClient)
	require.NoError(t, err)

	id, err := r.Resolve(ctx, "collision", models.VariantOps)
	require.NoError(t, err)
	assert.Equal(t, "o-1", id)
	id, err = r.Resolve(ctx, "collision", models.VariantClient)
	require.NoError(t, err)
	assert.Equal(t, "c-1", id)
}

func TestRegistry_Expiry(t *testing.T) {
	ctx := context.Background()
	r, clk, _ := newTestRegistry(t, time.Hour)

	tok, err := r.Create(ctx, "c-1", models.VariantClient)
	require.NoError(t, err)

	clk.Advance(59 * time.Minute)
	_, err = r.Resolve(ctx, tok, models.VariantClient)
	require.NoError(t, err)

	clk.Advance(time.Minute)
	_, err = r.Resolve(ctx, tok, models.VariantClient)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRegistry_Revoke(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	r, _, _ := newTestRegistry(t, time.Hour)
	r.metrics = m

	tok, err := r.Create(ctx, "o-1", models.VariantOps)
	require.NoError(t, err)

	require.NoError(t, r.Revoke(ctx, tok, models.VariantOps))
	_, err = r.Resolve(ctx, tok, models.VariantOps)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	require.NoError(t, r.Revoke(ctx, tok, models.VariantOps), "second revoke is a no-op")
	require.NoError(t, r.Revoke(ctx, "never-issued", models.VariantClient))
	require.NoError(t, r.Revoke(ctx, "", models.VariantClient))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCreated.WithLabelValues("ops")))
}

func TestRegistry_RevokeOnlyOwnNamespace(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t, time.Hour)

	tok, err := r.Create(ctx, "o-1", models.VariantOps)
	require.NoError(t, err)

	require.NoError(t, r.Revoke(ctx, tok, models.VariantClient))
	_, err = r.Resolve(ctx, tok, models.VariantOps)
	assert.NoError(t, err)
}

func TestRegistry_InvalidInput(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t, 0)
	assert.Equal(t, DefaultTTL, r.ttl)

	_, err := r.Create(ctx, "x", models.Variant("admin"))
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = r.Resolve(ctx, "", models.VariantOps)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = r.Resolve(ctx, "tok", models.Variant("admin"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, *models.Session) error { return f.err }
func (f failingStore) Get(context.Context, models.Variant, string) (*models.Session, error) {
	return nil, f.err
}
func (f failingStore) Delete(context.Context, models.Variant, string) error { return f.err }

func TestRegistry_StoreErrorsAreNotUnauthorized(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store down")
	r := NewRegistry(failingStore{err: boom}, time.Hour, nil)

	_, err := r.Create(ctx, "o-1", models.VariantOps)
	assert.ErrorIs(t, err, boom)

	_, err = r.Resolve(ctx, "tok", models.VariantOps)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)

	assert.ErrorIs(t, r.Revoke(ctx, "tok", models.VariantOps), boom)
}

func TestRegistry_TokenGenerationFailure(t *testing.T) {
	orig := newToken
	t.Cleanup(func() { newToken = orig })
	newToken = func() (string, error) { return "", errors.New("entropy") }

	r, _, _ := newTestRegistry(t, time.Hour)
	_, err := r.Create(context.Background(), "o-1", models.VariantOps)
	assert.ErrorContains(t, err, "entropy")
}

func TestRegistry_Concurrent(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := r.Create(ctx, "c-1", models.VariantClient)
			if !assert.NoError(t, err) {
				return
			}
			id, err := r.Resolve(ctx, tok, models.VariantClient)
			assert.NoError(t, err)
			assert.Equal(t, "c-1", id)
			assert.NoError(t, r.Revoke(ctx, tok, models.VariantClient))
		}()
	}
	wg.Wait()
}
