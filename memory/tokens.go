package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/authcore"
)

var errDuplicateToken = errors.New("memory: duplicate token hash")

// TokenStore keeps single-use token records keyed by their digest. Expired records are
// invisible to ConsumeToken and removed by DeleteExpiredTokens.
type TokenStore struct {
	mu      sync.Mutex
	records map[[32]byte]authcore.TokenRecord
}

var _ authcore.TokenStore = (*TokenStore)(nil)

func NewTokenStore() *TokenStore {
	return &TokenStore{records: make(map[[32]byte]authcore.TokenRecord)}
}

func (s *TokenStore) SaveToken(_ context.Context, record authcore.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.Hash]; ok {
		return errDuplicateToken
	}
	s.records[record.Hash] = record
	return nil
}

// ConsumeToken removes the record under a single lock, so concurrent callers see it at
// most once.
func (s *TokenStore) ConsumeToken(_ context.Context, kind authcore.TokenKind, hash [32]byte, now time.Time) (authcore.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[hash]
	if !ok || rec.Kind != kind {
		return authcore.TokenRecord{}, authcore.ErrTokenNotFound
	}
	if !rec.ExpiresAt.After(now) {
		delete(s.records, hash)
		return authcore.TokenRecord{}, authcore.ErrTokenNotFound
	}
	delete(s.records, hash)
	return rec, nil
}

func (s *TokenStore) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, rec := range s.records {
		if !rec.ExpiresAt.After(now) {
			delete(s.records, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired ones included.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
