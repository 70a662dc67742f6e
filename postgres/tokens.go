package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

// TokenStore implements authcore.TokenStore. Expired rows stay until
// DeleteExpiredTokens runs but are never returned by ConsumeToken.
type TokenStore struct {
	db DB
}

var _ authcore.TokenStore = (*TokenStore)(nil)

func NewTokenStore(db DB) *TokenStore {
	return &TokenStore{db: db}
}

// SaveToken skips records that are already expired.
func (s *TokenStore) SaveToken(ctx context.Context, rec authcore.TokenRecord) error {
	if !rec.ExpiresAt.After(rec.CreatedAt) {
		return nil
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO single_use_tokens (token_hash, user_id, kind, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.Hash[:], rec.UserID, string(rec.Kind), rec.ExpiresAt.UTC(), rec.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("TOKEN_DUPLICATE").With("operation", "save token").Wrap(err)
		}
		return oops.Code("TOKEN_SAVE_FAILED").With("operation", "save token").With("kind", string(rec.Kind)).Wrap(err)
	}
	return nil
}

// ConsumeToken deletes the row and returns it in one statement. An expired row is
// deleted as well and reported as not found.
func (s *TokenStore) ConsumeToken(ctx context.Context, kind authcore.TokenKind, hash [32]byte, now time.Time) (authcore.TokenRecord, error) {
	rec := authcore.TokenRecord{Hash: hash, Kind: kind}
	err := s.db.QueryRow(ctx,
		`DELETE FROM single_use_tokens WHERE token_hash = $1 AND kind = $2
		 RETURNING user_id, expires_at, created_at`,
		hash[:], string(kind),
	).Scan(&rec.UserID, &rec.ExpiresAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return authcore.TokenRecord{}, authcore.ErrTokenNotFound
	}
	if err != nil {
		return authcore.TokenRecord{}, oops.Code("TOKEN_CONSUME_FAILED").With("operation", "consume token").With("kind", string(kind)).Wrap(err)
	}
	if !rec.ExpiresAt.After(now) {
		return authcore.TokenRecord{}, authcore.ErrTokenNotFound
	}
	return rec, nil
}

func (s *TokenStore) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM single_use_tokens WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, oops.Code("TOKEN_SWEEP_FAILED").With("operation", "delete expired tokens").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
