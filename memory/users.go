package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/google/uuid"
)

// UserStore keeps accounts in maps guarded by a mutex. Emails are compared
// case-insensitively.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]authcore.User
	byEmail map[string]string
	now     func() time.Time
}

var _ authcore.UserStore = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]authcore.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (s *UserStore) CreateUser(_ context.Context, in authcore.NewUser) (authcore.User, error) {
	key := emailKey(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[key]; ok {
		return authcore.User{}, authcore.ErrDuplicateEmail
	}

	role := in.Role
	if role == "" {
		role = authcore.RoleUser
	}
	now := s.now().UTC()
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
	s.byID[u.ID] = u
	s.byEmail[key] = u.ID
	return u, nil
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return authcore.User{}, authcore.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *UserStore) GetUserByID(_ context.Context, userID string) (authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return authcore.User{}, authcore.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) MarkEmailVerified(_ context.Context, userID string) error {
	return s.update(userID, func(u *authcore.User) { u.IsVerified = true })
}

func (s *UserStore) UpdatePasswordHash(_ context.Context, userID, passwordHash string) error {
	return s.update(userID, func(u *authcore.User) { u.PasswordHash = passwordHash })
}

// SetRole changes the role of an existing account. Roles are assigned out of band.
func (s *UserStore) SetRole(_ context.Context, userID string, role authcore.Role) error {
	return s.update(userID, func(u *authcore.User) { u.Role = role })
}

// Len returns the number of stored accounts.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *UserStore) update(userID string, fn func(*authcore.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return authcore.ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = s.now().UTC()
	s.byID[userID] = u
	return nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
