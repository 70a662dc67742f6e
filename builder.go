package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. It is single use: Build may succeed only once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users    UserStore
	tokens   TokenStore
	notifier Notifier
	logger   *slog.Logger
	hasher   password.Hasher
	now      func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserStore sets the account store. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithTokenStore sets the single-use token store. It takes precedence over WithRedis.
func (b *Builder) WithTokenStore(store TokenStore) *Builder {
	b.tokens = store
	return b
}

// WithRedis stores single-use tokens in Redis when no token store is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithNotifier sets the delivery channel for verification and reset links. Required
// when email verification is enabled; reset links need it as well.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithHasher replaces the hasher selected by Config.Password.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithClock overrides time.Now for token issuance and single-use token expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.tokens == nil && b.redis == nil {
		return nil, errors.New("token store or redis client required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	tokenStore := b.tokens
	if tokenStore == nil {
		tokenStore = NewRedisTokenStore(b.redis, "").WithClock(now)
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- PASSWORD HASHING --------
	hasher := b.hasher
	if hasher == nil {
		h, err := newHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
		hasher = h
	}
	pool := password.NewPool(hasher, cfg.Password.PoolSize)

	dummy, err := newDummyDigest(pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("dummy digest: %w", err)
	}

	// -------- TOKEN ISSUER --------
	issuer, err := jwt.NewIssuer(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Clock:         now,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	engine := &Engine{
		config:      cfg,
		users:       b.users,
		tokens:      NewTokenRegistry(tokenStore, now),
		notifier:    b.notifier,
		hasher:      pool,
		issuer:      issuer,
		logger:      logger.With("component", "authcore"),
		metrics:     NewMetrics(cfg.Metrics),
		now:         now,
		dummyDigest: dummy,
	}

	b.built = true

	return engine, nil
}

func newHasher(cfg PasswordConfig) (password.Hasher, error) {
	switch cfg.Algorithm {
	case PasswordArgon2:
		return password.NewArgon2(cfg.Argon2)
	default:
		return password.NewBcrypt(cfg.BcryptCost)
	}
}

// newDummyDigest hashes a random secret with the live parameters so that verifying an
// unknown email costs the same as verifying a real one.
func newDummyDigest(pool *password.Pool) (string, error) {
	secret, err := internal.NewSecret(18)
	if err != nil {
		return "", err
	}
	return pool.Hash(context.Background(), fmt.Sprintf("%x", secret))
}
