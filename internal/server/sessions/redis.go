package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps sessions under session:<variant>:<token> with a TTL
// matching the session's deadline, so several server processes can share
// them.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func key(variant models.Variant, token string) string {
	return keyPrefix + string(variant) + ":" + token
}

func (r *RedisStore) Put(ctx context.Context, s *models.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := r.rdb.Set(ctx, key(s.Variant, s.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, variant models.Variant, token string) (*models.Session, error) {
	data, err := r.rdb.Get(ctx, key(variant, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	s.Token = token
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, variant models.Variant, token string) error {
	if err := r.rdb.Del(ctx, key(variant, token)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
