package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStoreCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	u, err := s.CreateUser(ctx, authcore.NewUser{Name: "Ann", Email: "ann@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = uuid.Parse(u.ID)
	assert.NoError(t, err)
	assert.Equal(t, authcore.RoleUser, u.Role)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := s.GetUserByEmail(ctx, "ANN@x.com")
	require.NoError(t, err)
	assert.Equal(t, u, byEmail)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, byID)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, authcore.ErrUserNotFound)
}

func TestUserStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	_, err := s.CreateUser(ctx, authcore.NewUser{Name: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, authcore.NewUser{Name: "Other", Email: "Ann@X.com"})
	assert.ErrorIs(t, err, authcore.ErrDuplicateEmail)
	assert.Equal(t, 1, s.Len())
}

func TestUserStoreConcurrentCreateSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateUser(ctx, authcore.NewUser{Name: "Ann", Email: "ann@x.com"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, authcore.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, created)
}

func TestUserStoreUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	u, err := s.CreateUser(ctx, authcore.NewUser{Name: "Ann", Email: "ann@x.com", PasswordHash: "old"})
	require.NoError(t, err)

	require.NoError(t, s.MarkEmailVerified(ctx, u.ID))
	require.NoError(t, s.UpdatePasswordHash(ctx, u.ID, "new"))
	require.NoError(t, s.SetRole(ctx, u.ID, authcore.RoleAdmin))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.Equal(t, "new", got.PasswordHash)
	assert.Equal(t, authcore.RoleAdmin, got.Role)
	assert.False(t, got.UpdatedAt.Before(u.UpdatedAt))

	assert.ErrorIs(t, s.MarkEmailVerified(ctx, "missing"), authcore.ErrUserNotFound)
	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "missing", "x"), authcore.ErrUserNotFound)
}
