package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/redis/go-redis/v9"
)

// RedisTokenStore is a [TokenStore] backed by Redis. Records expire through native key
// TTLs, so DeleteExpiredTokens has nothing to do.
type RedisTokenStore struct {
	store *stores.SingleUseStore
}

var _ TokenStore = (*RedisTokenStore)(nil)

// NewRedisTokenStore returns a store that keeps records under keys starting with
// prefix. An empty prefix uses "asu".
func NewRedisTokenStore(client redis.UniversalClient, prefix string) *RedisTokenStore {
	return &RedisTokenStore{store: stores.NewSingleUseStore(client, prefix)}
}

// WithClock sets the clock used to derive key TTLs from record expiry. [Builder.Build]
// passes the engine clock here.
func (s *RedisTokenStore) WithClock(now func() time.Time) *RedisTokenStore {
	s.store.WithClock(now)
	return s
}

func (s *RedisTokenStore) SaveToken(ctx context.Context, record TokenRecord) error {
	return s.store.Save(ctx, record.Hash, &stores.SingleUseRecord{
		UserID:    record.UserID,
		Kind:      string(record.Kind),
		ExpiresAt: record.ExpiresAt.Unix(),
		CreatedAt: record.CreatedAt.Unix(),
	})
}

func (s *RedisTokenStore) ConsumeToken(ctx context.Context, kind TokenKind, hash [32]byte, now time.Time) (TokenRecord, error) {
	rec, err := s.store.Consume(ctx, string(kind), hash)
	if err != nil {
		// Losing the optimistic race means another caller redeemed the token.
		if errors.Is(err, stores.ErrSingleUseNotFound) || errors.Is(err, stores.ErrSingleUseContention) {
			return TokenRecord{}, ErrTokenNotFound
		}
		return TokenRecord{}, err
	}

	out := TokenRecord{
		Hash:      hash,
		UserID:    rec.UserID,
		Kind:      TokenKind(rec.Kind),
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
		CreatedAt: time.Unix(rec.CreatedAt, 0),
	}
	if !out.ExpiresAt.After(now) {
		return TokenRecord{}, ErrTokenNotFound
	}
	return out, nil
}

func (s *RedisTokenStore) DeleteExpiredTokens(context.Context, time.Time) (int64, error) {
	return 0, nil
}
