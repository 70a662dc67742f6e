package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// laxTokenStore returns whatever it holds without checking kind or expiry.
type laxTokenStore struct {
	mu      sync.Mutex
	records map[[32]byte]TokenRecord
	err     error
}

func newLaxTokenStore() *laxTokenStore {
	return &laxTokenStore{records: map[[32]byte]TokenRecord{}}
}

func (s *laxTokenStore) SaveToken(_ context.Context, rec TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records[rec.Hash] = rec
	return nil
}

func (s *laxTokenStore) ConsumeToken(_ context.Context, _ TokenKind, hash [32]byte, _ time.Time) (TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return TokenRecord{}, s.err
	}
	rec, ok := s.records[hash]
	if !ok {
		return TokenRecord{}, ErrTokenNotFound
	}
	delete(s.records, hash)
	return rec, nil
}

func (s *laxTokenStore) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rec := range s.records {
		if !rec.ExpiresAt.After(now) {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}

func TestTokenRegistryStoresDigestOnly(t *testing.T) {
	store := newLaxTokenStore()
	reg := NewTokenRegistry(store, nil)

	token, err := reg.Create(context.Background(), TokenVerification, "u1", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(token))
	}
	for hash, rec := range store.records {
		if string(hash[:]) == token || rec.UserID != "u1" {
			t.Fatalf("unexpected stored record %+v", rec)
		}
	}

	userID, err := reg.Consume(context.Background(), TokenVerification, token)
	if err != nil || userID != "u1" {
		t.Fatalf("Consume = %q, %v", userID, err)
	}
	if _, err := reg.Consume(context.Background(), TokenVerification, token); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected reuse to fail, got %v", err)
	}
}

func TestTokenRegistryRechecksKindAndExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := newLaxTokenStore()
	reg := NewTokenRegistry(store, func() time.Time { return now })
	ctx := context.Background()

	reset, err := reg.Create(ctx, TokenReset, "u1", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reg.Consume(ctx, TokenVerification, reset); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected kind mismatch to fail, got %v", err)
	}

	dead, err := reg.Create(ctx, TokenReset, "u1", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reg.Consume(ctx, TokenReset, dead); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected zero ttl token to be unusable, got %v", err)
	}

	short, err := reg.Create(ctx, TokenReset, "u1", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := reg.Consume(ctx, TokenReset, short); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestTokenRegistryStoreErrors(t *testing.T) {
	store := newLaxTokenStore()
	reg := NewTokenRegistry(store, nil)
	ctx := context.Background()

	token, err := reg.Create(ctx, TokenReset, "u1", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	store.err = errors.New("backend down")
	if _, err := reg.Create(ctx, TokenReset, "u1", time.Hour); err == nil {
		t.Fatal("expected save failure")
	}
	_, err = reg.Consume(ctx, TokenReset, token)
	if err == nil || errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected backend error to surface, got %v", err)
	}

	if _, err := reg.Create(ctx, TokenReset, "", time.Hour); err == nil {
		t.Fatal("expected empty user id to be rejected")
	}
}

func TestTokenRegistrySweep(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := newLaxTokenStore()
	reg := NewTokenRegistry(store, func() time.Time { return now })
	ctx := context.Background()

	for _, ttl := range []time.Duration{time.Minute, time.Minute, time.Hour} {
		if _, err := reg.Create(ctx, TokenVerification, "u1", ttl); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	now = now.Add(10 * time.Minute)

	n, err := reg.Sweep(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Sweep = %d, %v", n, err)
	}
}
