package flows

import (
	"context"
	"errors"
	"time"
)

type LoginMetrics struct {
	LoginSuccess    int
	LoginFailure    int
	LoginUnverified int
	PasswordRehash  int
	InternalError   int
}

type LoginResult struct {
	User             Account
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type LoginDeps struct {
	RequireVerified bool
	UpgradeOnLogin  bool
	// DummyDigest is verified against when the email is unknown so both failure paths
	// spend the same hashing time.
	DummyDigest string

	NormalizeEmail     func(string) string
	GetUserByEmail     func(context.Context, string) (Account, error)
	IsUserNotFound     func(error) bool
	VerifyPassword     func(context.Context, string, string) (bool, error)
	NeedsUpgrade       func(string) bool
	HashPassword       func(context.Context, string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error
	IssueAccess        func(string, string) (string, time.Time, error)
	IssueRefresh       func(string) (string, time.Time, error)

	Now            func() time.Time
	ObserveLatency func(time.Duration)
	LogError       LogFunc
	MetricInc      func(int)

	Metrics LoginMetrics
	Errors  Errors
}

// RunLogin authenticates email and password and issues an access and refresh token.
//
// An unknown email and a wrong password return the same error after the same amount of
// hashing work. The verification check runs only after the password matched, so an
// unverified account is never revealed to a caller without the password.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (LoginResult, error) {
	normalizeLoginDeps(&deps)

	if deps.GetUserByEmail == nil || deps.VerifyPassword == nil || deps.IssueAccess == nil || deps.IssueRefresh == nil {
		return LoginResult{}, deps.Errors.EngineNotReady
	}

	start := deps.Now()
	defer func() { deps.ObserveLatency(deps.Now().Sub(start)) }()

	email = deps.NormalizeEmail(email)

	var user Account
	found := false
	if email != "" {
		u, err := deps.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			user, found = u, true
		case deps.IsUserNotFound(err):
		default:
			deps.LogError(ctx, "login lookup failed", err)
			deps.MetricInc(deps.Metrics.InternalError)
			return LoginResult{}, deps.Errors.Internal
		}
	}

	digest := deps.DummyDigest
	if found {
		digest = user.PasswordHash
	}

	ok, err := deps.VerifyPassword(ctx, password, digest)
	if err != nil {
		if ctx.Err() == nil {
			deps.LogError(ctx, "login verify failed", err)
			deps.MetricInc(deps.Metrics.InternalError)
		}
		return LoginResult{}, deps.Errors.Internal
	}
	if !found || !ok || password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return LoginResult{}, deps.Errors.InvalidCredential
	}

	if deps.RequireVerified && !user.IsVerified {
		deps.MetricInc(deps.Metrics.LoginUnverified)
		return LoginResult{}, deps.Errors.EmailNotVerified
	}

	if deps.UpgradeOnLogin && deps.NeedsUpgrade != nil && deps.NeedsUpgrade(user.PasswordHash) {
		rehashOnLogin(ctx, user, password, &deps)
	}

	access, accessExp, err := deps.IssueAccess(user.ID, user.Role)
	if err != nil {
		deps.LogError(ctx, "login access token failed", err, "user_id", user.ID)
		deps.MetricInc(deps.Metrics.InternalError)
		return LoginResult{}, deps.Errors.Internal
	}
	refresh, refreshExp, err := deps.IssueRefresh(user.ID)
	if err != nil {
		deps.LogError(ctx, "login refresh token failed", err, "user_id", user.ID)
		deps.MetricInc(deps.Metrics.InternalError)
		return LoginResult{}, deps.Errors.Internal
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	return LoginResult{
		User:             user,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// A failed upgrade leaves the old digest in place; the login still succeeds.
func rehashOnLogin(ctx context.Context, user Account, password string, deps *LoginDeps) {
	if deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return
	}
	digest, err := deps.HashPassword(ctx, password)
	if err != nil {
		deps.LogError(ctx, "login rehash failed", err, "user_id", user.ID)
		return
	}
	if err := deps.UpdatePasswordHash(ctx, user.ID, digest); err != nil {
		deps.LogError(ctx, "login rehash store failed", err, "user_id", user.ID)
		return
	}
	deps.MetricInc(deps.Metrics.PasswordRehash)
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.NormalizeEmail == nil {
		deps.NormalizeEmail = func(s string) string { return s }
	}
	if deps.IsUserNotFound == nil {
		deps.IsUserNotFound = func(err error) bool { return errors.Is(err, deps.Errors.UserNotFound) }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.LogError == nil {
		deps.LogError = noopLog
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
}
