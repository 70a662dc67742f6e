package flows

import (
	"context"
	"errors"
	"time"
)

type PasswordResetMetrics struct {
	PasswordResetRequest        int
	PasswordResetConfirmSuccess int
	PasswordResetConfirmFailure int
	NotificationFailure         int
	InternalError               int
}

type PasswordResetDeps struct {
	ResetTTL time.Duration

	NormalizeEmail     func(string) string
	ValidEmail         func(string) bool
	ValidatePassword   func(string) error
	GetUserByEmail     func(context.Context, string) (Account, error)
	IsUserNotFound     func(error) bool
	HashPassword       func(context.Context, string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error
	CreateToken        func(context.Context, string, string, time.Duration) (string, error)
	ConsumeToken       func(context.Context, string, string) (string, error)
	ResetLink          func(string) string
	Notify             func(context.Context, Notification) error

	LogError  LogFunc
	MetricInc func(int)

	Metrics PasswordResetMetrics
	Errors  Errors
}

// RunRequestPasswordReset issues a reset token when email belongs to an account. It
// returns nil for every outcome except a missing dependency, so callers cannot learn
// whether the address is registered.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.GetUserByEmail == nil || deps.CreateToken == nil || deps.Notify == nil || deps.ResetLink == nil {
		return deps.Errors.EngineNotReady
	}

	deps.MetricInc(deps.Metrics.PasswordResetRequest)

	email = deps.NormalizeEmail(email)
	if !deps.ValidEmail(email) {
		return nil
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if !deps.IsUserNotFound(err) {
			deps.LogError(ctx, "password reset lookup failed", err)
			deps.MetricInc(deps.Metrics.InternalError)
		}
		return nil
	}

	token, err := deps.CreateToken(ctx, TokenKindReset, user.ID, deps.ResetTTL)
	if err != nil {
		deps.LogError(ctx, "password reset token failed", err, "user_id", user.ID)
		deps.MetricInc(deps.Metrics.InternalError)
		return nil
	}

	if err := deps.Notify(ctx, Notification{
		Kind:  NotificationPasswordReset,
		To:    user.Email,
		Name:  user.Name,
		Token: token,
		Link:  deps.ResetLink(token),
	}); err != nil {
		deps.LogError(ctx, "password reset notify failed", err, "user_id", user.ID)
		deps.MetricInc(deps.Metrics.NotificationFailure)
	}
	return nil
}

// RunResetPassword consumes a reset token and replaces the password digest of its user.
// Session tokens issued before the reset stay valid until they expire.
func RunResetPassword(ctx context.Context, token, newPassword string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.ConsumeToken == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	if deps.ValidatePassword != nil {
		if err := deps.ValidatePassword(newPassword); err != nil {
			deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
			return err
		}
	}

	// Hash before consuming so a hashing failure leaves the token usable.
	digest, err := deps.HashPassword(ctx, newPassword)
	if err != nil {
		deps.LogError(ctx, "password reset hash failed", err)
		deps.MetricInc(deps.Metrics.InternalError)
		return deps.Errors.Internal
	}

	userID, err := deps.ConsumeToken(ctx, TokenKindReset, token)
	if err != nil {
		if errors.Is(err, deps.Errors.InvalidOrExpiredToken) {
			deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
			return deps.Errors.InvalidOrExpiredToken
		}
		deps.LogError(ctx, "password reset consume failed", err)
		deps.MetricInc(deps.Metrics.InternalError)
		return deps.Errors.Internal
	}

	if err := deps.UpdatePasswordHash(ctx, userID, digest); err != nil {
		if deps.IsUserNotFound(err) {
			deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
			return deps.Errors.InvalidOrExpiredToken
		}
		deps.LogError(ctx, "password reset update failed", err, "user_id", userID)
		deps.MetricInc(deps.Metrics.InternalError)
		return deps.Errors.Internal
	}

	deps.MetricInc(deps.Metrics.PasswordResetConfirmSuccess)
	return nil
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	if deps.NormalizeEmail == nil {
		deps.NormalizeEmail = func(s string) string { return s }
	}
	if deps.ValidEmail == nil {
		deps.ValidEmail = func(s string) bool { return s != "" }
	}
	if deps.IsUserNotFound == nil {
		deps.IsUserNotFound = func(err error) bool { return errors.Is(err, deps.Errors.UserNotFound) }
	}
	if deps.LogError == nil {
		deps.LogError = noopLog
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
}
