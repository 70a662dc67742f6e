package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

const userColumns = `id::text, name, email, password_hash, is_verified, role, created_at, updated_at`

// UserStore implements authcore.UserStore.
type UserStore struct {
	db  DB
	now func() time.Time
}

var _ authcore.UserStore = (*UserStore)(nil)

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db, now: time.Now}
}

// CreateUser inserts the account. The unique index on lower(email) turns a concurrent
// duplicate into ErrDuplicateEmail.
func (s *UserStore) CreateUser(ctx context.Context, in authcore.NewUser) (authcore.User, error) {
	role := in.Role
	if role == "" {
		role = authcore.RoleUser
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	u := authcore.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		IsVerified:   in.IsVerified,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, is_verified, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.IsVerified, string(u.Role), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return authcore.User{}, authcore.ErrDuplicateEmail
		}
		return authcore.User{}, oops.Code("USER_CREATE_FAILED").With("operation", "create user").Wrap(err)
	}
	return u, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (authcore.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, authcore.ErrUserNotFound) {
			return authcore.User{}, err
		}
		return authcore.User{}, oops.Code("USER_LOOKUP_FAILED").With("operation", "get user by email").Wrap(err)
	}
	return u, nil
}

func (s *UserStore) GetUserByID(ctx context.Context, userID string) (authcore.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return authcore.User{}, authcore.ErrUserNotFound
	}

	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, authcore.ErrUserNotFound) {
			return authcore.User{}, err
		}
		return authcore.User{}, oops.Code("USER_LOOKUP_FAILED").With("operation", "get user by id").With("user_id", userID).Wrap(err)
	}
	return u, nil
}

func (s *UserStore) MarkEmailVerified(ctx context.Context, userID string) error {
	return s.update(ctx, "mark email verified", userID,
		`UPDATE users SET is_verified = TRUE, updated_at = $2 WHERE id = $1`)
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	return s.update(ctx, "update password hash", userID,
		`UPDATE users SET password_hash = $3, updated_at = $2 WHERE id = $1`, passwordHash)
}

func (s *UserStore) update(ctx context.Context, operation, userID, query string, extra ...any) error {
	if _, err := uuid.Parse(userID); err != nil {
		return authcore.ErrUserNotFound
	}

	args := append([]any{userID, s.now().UTC()}, extra...)
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("operation", operation).With("user_id", userID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (authcore.User, error) {
	var (
		u    authcore.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsVerified, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return authcore.User{}, authcore.ErrUserNotFound
	}
	if err != nil {
		return authcore.User{}, err
	}
	u.Role = authcore.Role(role)
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
