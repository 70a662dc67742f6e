package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal"
)

// TokenRegistry creates and consumes single-use tokens on top of a [TokenStore]. The
// plaintext token only ever leaves through the return value of Create.
type TokenRegistry struct {
	store TokenStore
	now   func() time.Time
}

// NewTokenRegistry returns a registry over store. A nil now uses time.Now.
func NewTokenRegistry(store TokenStore, now func() time.Time) *TokenRegistry {
	if now == nil {
		now = time.Now
	}
	return &TokenRegistry{store: store, now: now}
}

// Create generates a 256-bit token bound to userID and persists its digest. A ttl that
// is not positive yields a token that can never be consumed.
func (r *TokenRegistry) Create(ctx context.Context, kind TokenKind, userID string, ttl time.Duration) (string, error) {
	if r == nil || r.store == nil {
		return "", ErrEngineNotReady
	}
	if userID == "" {
		return "", errors.New("create token: empty user id")
	}

	token, digest, err := internal.NewOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}

	now := r.now()
	record := TokenRecord{
		Hash:      digest,
		UserID:    userID,
		Kind:      kind,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := r.store.SaveToken(ctx, record); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return token, nil
}

// Consume atomically redeems token and returns its user ID. Unknown, expired, already
// consumed and malformed tokens all return [ErrInvalidOrExpiredToken].
func (r *TokenRegistry) Consume(ctx context.Context, kind TokenKind, token string) (string, error) {
	if r == nil || r.store == nil {
		return "", ErrEngineNotReady
	}
	if err := internal.ValidateOpaqueToken(token); err != nil {
		return "", ErrInvalidOrExpiredToken
	}

	now := r.now()
	record, err := r.store.ConsumeToken(ctx, kind, internal.HashOpaqueToken(token), now)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", ErrInvalidOrExpiredToken
		}
		return "", fmt.Errorf("consume token: %w", err)
	}

	// Stores already filter on expiry and kind; checked again so a lax store cannot
	// hand out a dead token.
	if record.Kind != kind || !record.ExpiresAt.After(now) {
		return "", ErrInvalidOrExpiredToken
	}
	return record.UserID, nil
}

// Sweep deletes expired records and returns how many were removed.
func (r *TokenRegistry) Sweep(ctx context.Context) (int64, error) {
	if r == nil || r.store == nil {
		return 0, ErrEngineNotReady
	}
	return r.store.DeleteExpiredTokens(ctx, r.now())
}
