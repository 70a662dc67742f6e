package authcore

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore/internal/errutil"
	internalflows "github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
)

// Engine is the authentication service. Build one with [New] and [Builder.Build]; all
// methods are safe for concurrent use.
type Engine struct {
	config   Config
	users    UserStore
	tokens   *TokenRegistry
	notifier Notifier
	hasher   *password.Pool
	issuer   *jwt.Issuer
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time

	// dummyDigest is verified against for unknown emails.
	dummyDigest string
	closed      atomic.Bool
}

// Close stops accepting hashing work and waits for in-flight hashes. Calls after the
// first are no-ops.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	if e.hasher != nil {
		e.hasher.Close()
	}
}

// MetricsSnapshot returns the current counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AccessTTL returns the configured access token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	return e.config.JWT.AccessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (e *Engine) RefreshTTL() time.Duration {
	return e.config.JWT.RefreshTTL
}

// Login authenticates email and password and issues an access/refresh token pair.
//
// Unknown emails and wrong passwords both return [ErrInvalidCredential]. When email
// verification is enabled and the password is correct, an unverified account returns
// [ErrEmailNotVerified].
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res, err := internalflows.RunLogin(ctx, email, password, e.loginFlowDeps())
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			e.logger.InfoContext(ctx, "login rejected", e.requestAttrs(ctx)...)
		}
		return nil, err
	}

	user := userFromAccount(res.User)
	user.PasswordHash = ""
	return &LoginResult{
		User:             user,
		AccessToken:      res.AccessToken,
		AccessExpiresAt:  res.AccessExpiresAt,
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpiresAt,
	}, nil
}

// Refresh verifies refreshToken and issues a new access token for the same subject with
// its current role. The refresh token is not rotated.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res, err := internalflows.RunRefresh(ctx, refreshToken, e.refreshFlowDeps())
	if err != nil {
		return nil, err
	}
	return &RefreshResult{AccessToken: res.AccessToken, AccessExpiresAt: res.AccessExpiresAt}, nil
}

// Logout records a logout. Tokens are stateless, so nothing is invalidated on the
// server; the caller clears the client-held cookies. Tokens that were copied elsewhere
// stay valid until they expire.
func (e *Engine) Logout(ctx context.Context) {
	if e == nil {
		return
	}
	e.metricInc(MetricLogout)
}

// ValidateAccess verifies an access token and returns its claims. Every verification
// failure maps to [ErrUnauthorized].
func (e *Engine) ValidateAccess(token string) (*AccessClaims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := e.issuer.Verify(token, jwt.KindAccess)
	if err != nil {
		return nil, ErrUnauthorized
	}

	out := &AccessClaims{
		UserID: claims.Subject,
		Role:   Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Profile returns the stored user for userID.
func (e *Engine) Profile(ctx context.Context, userID string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUserNotFound
	}

	u, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		e.logError(ctx, "profile lookup failed", err, "user_id", userID)
		return nil, ErrInternal
	}
	u.PasswordHash = ""
	return &u, nil
}

// SweepExpiredTokens removes expired single-use tokens from stores without native
// expiry and returns how many were removed.
func (e *Engine) SweepExpiredTokens(ctx context.Context) (int64, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	n, err := e.tokens.Sweep(ctx)
	if err != nil {
		e.logError(ctx, "token sweep failed", err)
		return 0, ErrInternal
	}
	if n > 0 {
		e.metrics.Add(MetricTokensSwept, uint64(n))
		e.logger.DebugContext(ctx, "expired tokens swept", "count", n)
	}
	return n, nil
}

func (e *Engine) ready() bool {
	return e != nil && !e.closed.Load() && e.users != nil && e.tokens != nil && e.issuer != nil && e.hasher != nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) logError(ctx context.Context, msg string, err error, attrs ...any) {
	errutil.LogError(ctx, e.logger, msg, err, append(e.requestAttrs(ctx), attrs...)...)
}

func (e *Engine) requestAttrs(ctx context.Context) []any {
	var attrs []any
	if id := requestIDFromContext(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		attrs = append(attrs, "client_ip", ip)
	}
	return attrs
}

func (e *Engine) flowErrors() internalflows.Errors {
	return internalflows.Errors{
		EngineNotReady:        ErrEngineNotReady,
		DuplicateEmail:        ErrDuplicateEmail,
		InvalidCredential:     ErrInvalidCredential,
		EmailNotVerified:      ErrEmailNotVerified,
		InvalidOrExpiredToken: ErrInvalidOrExpiredToken,
		Unauthorized:          ErrUnauthorized,
		Internal:              ErrInternal,
		UserNotFound:          ErrUserNotFound,
	}
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	return internalflows.LoginDeps{
		RequireVerified:    e.config.EmailVerification.Enabled,
		UpgradeOnLogin:     e.config.Password.UpgradeOnLogin,
		DummyDigest:        e.dummyDigest,
		NormalizeEmail:     NormalizeEmail,
		GetUserByEmail:     e.getAccountByEmail,
		VerifyPassword:     e.hasher.Verify,
		NeedsUpgrade:       e.hasher.NeedsUpgrade,
		HashPassword:       e.hasher.Hash,
		UpdatePasswordHash: e.users.UpdatePasswordHash,
		IssueAccess:        e.issuer.IssueAccess,
		IssueRefresh:       e.issuer.IssueRefresh,
		Now:                e.now,
		ObserveLatency:     func(d time.Duration) { e.metrics.Observe(MetricLoginLatency, d) },
		LogError:           e.logError,
		MetricInc:          func(id int) { e.metricInc(MetricID(id)) },
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:    int(MetricLoginSuccess),
			LoginFailure:    int(MetricLoginFailure),
			LoginUnverified: int(MetricLoginUnverified),
			PasswordRehash:  int(MetricPasswordRehash),
			InternalError:   int(MetricInternalError),
		},
		Errors: e.flowErrors(),
	}
}

func (e *Engine) refreshFlowDeps() internalflows.RefreshDeps {
	return internalflows.RefreshDeps{
		VerifyRefresh: func(token string) (string, error) {
			claims, err := e.issuer.Verify(token, jwt.KindRefresh)
			if err != nil {
				return "", err
			}
			return claims.Subject, nil
		},
		GetUserByID: e.getAccountByID,
		IssueAccess: e.issuer.IssueAccess,
		LogError:    e.logError,
		MetricInc:   func(id int) { e.metricInc(MetricID(id)) },
		Metrics: internalflows.RefreshMetrics{
			RefreshSuccess: int(MetricRefreshSuccess),
			RefreshFailure: int(MetricRefreshFailure),
			InternalError:  int(MetricInternalError),
		},
		Errors: e.flowErrors(),
	}
}

func (e *Engine) getAccountByEmail(ctx context.Context, email string) (internalflows.Account, error) {
	u, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		return internalflows.Account{}, err
	}
	return accountFromUser(u), nil
}

func (e *Engine) getAccountByID(ctx context.Context, userID string) (internalflows.Account, error) {
	u, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return internalflows.Account{}, err
	}
	return accountFromUser(u), nil
}

func (e *Engine) createToken(ctx context.Context, kind, userID string, ttl time.Duration) (string, error) {
	return e.tokens.Create(ctx, TokenKind(kind), userID, ttl)
}

func (e *Engine) consumeToken(ctx context.Context, kind, token string) (string, error) {
	return e.tokens.Consume(ctx, TokenKind(kind), token)
}

func (e *Engine) notify(ctx context.Context, n internalflows.Notification) error {
	if e.notifier == nil {
		return errors.New("no notifier configured")
	}
	return e.notifier.Notify(ctx, Notification{
		Kind:  NotificationKind(n.Kind),
		To:    n.To,
		Name:  n.Name,
		Token: n.Token,
		Link:  n.Link,
	})
}

func accountFromUser(u User) internalflows.Account {
	return internalflows.Account{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsVerified:   u.IsVerified,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromAccount(a internalflows.Account) User {
	return User{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		IsVerified:   a.IsVerified,
		Role:         Role(a.Role),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
