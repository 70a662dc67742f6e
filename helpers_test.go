package authcore

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	testAccessSecret  = []byte("access-secret-access-secret-0123456789")
	testRefreshSecret = []byte("refresh-secret-refresh-secret-0123456789")
)

type mockUserStore struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]User
	byEmail map[string]string

	getByEmailCalls     int
	updatePasswordCalls int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		byID:    map[string]User{},
		byEmail: map[string]string{},
	}
}

func (m *mockUserStore) CreateUser(_ context.Context, in NewUser) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(in.Email)
	if _, ok := m.byEmail[key]; ok {
		return User{}, ErrDuplicateEmail
	}
	m.nextID++
	now := time.Now()
	u := User{
		ID:           "u" + strconv.Itoa(m.nextID),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		IsVerified:   in.IsVerified,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.byID[u.ID] = u
	m.byEmail[key] = u.ID
	return u, nil
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getByEmailCalls++
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *mockUserStore) GetUserByID(_ context.Context, userID string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserStore) MarkEmailVerified(_ context.Context, userID string) error {
	return m.update(userID, func(u *User) { u.IsVerified = true })
}

func (m *mockUserStore) UpdatePasswordHash(_ context.Context, userID, digest string) error {
	m.mu.Lock()
	m.updatePasswordCalls++
	m.mu.Unlock()
	return m.update(userID, func(u *User) { u.PasswordHash = digest })
}

func (m *mockUserStore) update(userID string, fn func(*User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	m.byID[userID] = u
	return nil
}

func (m *mockUserStore) setRole(userID string, role Role) {
	_ = m.update(userID, func(u *User) { u.Role = role })
}

func (m *mockUserStore) remove(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[userID]
	delete(m.byEmail, strings.ToLower(u.Email))
	delete(m.byID, userID)
}

func (m *mockUserStore) get(userID string) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[userID]
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) last(t *testing.T) Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("expected a notification")
	}
	return n.sent[len(n.sent)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = testAccessSecret
	cfg.JWT.RefreshSecret = testRefreshSecret
	cfg.Password.BcryptCost = 4
	cfg.Password.PoolSize = 4
	cfg.Links.ClientURL = "https://app.example.com"
	return cfg
}

type testEngine struct {
	*Engine
	users    *mockUserStore
	notifier *recordingNotifier
	redis    *miniredis.Miniredis
}

func newTestEngine(t *testing.T, mutate func(*Builder)) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	users := newMockUserStore()
	notifier := &recordingNotifier{}

	hasher, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}

	b := New().
		WithConfig(testConfig()).
		WithUserStore(users).
		WithRedis(rdb).
		WithNotifier(notifier).
		WithHasher(hasher)
	if mutate != nil {
		mutate(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, users: users, notifier: notifier, redis: mr}
}

// tokenFromLink returns the last path segment of a notification link.
func tokenFromLink(link string) string {
	return link[strings.LastIndex(link, "/")+1:]
}

// registerVerified registers an account and verifies it through the emailed token.
func (te *testEngine) registerVerified(t *testing.T, name, email, pw string) User {
	t.Helper()
	ctx := context.Background()

	res, err := te.Register(ctx, RegisterInput{Name: name, Email: email, Password: pw})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.VerificationRequired {
		if err := te.VerifyEmail(ctx, te.notifier.last(t).Token); err != nil {
			t.Fatalf("VerifyEmail: %v", err)
		}
	}
	return res.User
}
