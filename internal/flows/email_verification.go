package flows

import (
	"context"
	"errors"
	"time"
)

type EmailVerificationMetrics struct {
	EmailVerificationRequest int
	EmailVerificationSuccess int
	EmailVerificationFailure int
	NotificationFailure      int
	InternalError            int
}

type EmailVerificationDeps struct {
	Enabled         bool
	VerificationTTL time.Duration

	NormalizeEmail    func(string) string
	ValidEmail        func(string) bool
	GetUserByEmail    func(context.Context, string) (Account, error)
	IsUserNotFound    func(error) bool
	MarkEmailVerified func(context.Context, string) error
	CreateToken       func(context.Context, string, string, time.Duration) (string, error)
	// ConsumeToken returns the user ID bound to a live token or InvalidOrExpiredToken.
	ConsumeToken func(context.Context, string, string) (string, error)
	VerifyLink   func(string) string
	Notify       func(context.Context, Notification) error

	LogError  LogFunc
	MetricInc func(int)

	Metrics EmailVerificationMetrics
	Errors  Errors
}

// RunVerifyEmail consumes a verification token and marks its user verified.
func RunVerifyEmail(ctx context.Context, token string, deps EmailVerificationDeps) error {
	normalizeEmailVerificationDeps(&deps)

	if deps.ConsumeToken == nil || deps.MarkEmailVerified == nil {
		return deps.Errors.EngineNotReady
	}

	userID, err := deps.ConsumeToken(ctx, TokenKindVerification, token)
	if err != nil {
		if errors.Is(err, deps.Errors.InvalidOrExpiredToken) {
			deps.MetricInc(deps.Metrics.EmailVerificationFailure)
			return deps.Errors.InvalidOrExpiredToken
		}
		deps.LogError(ctx, "verify email consume failed", err)
		deps.MetricInc(deps.Metrics.InternalError)
		return deps.Errors.Internal
	}

	if err := deps.MarkEmailVerified(ctx, userID); err != nil {
		if deps.IsUserNotFound(err) {
			deps.MetricInc(deps.Metrics.EmailVerificationFailure)
			return deps.Errors.InvalidOrExpiredToken
		}
		deps.LogError(ctx, "verify email update failed", err, "user_id", userID)
		deps.MetricInc(deps.Metrics.InternalError)
		return deps.Errors.Internal
	}

	deps.MetricInc(deps.Metrics.EmailVerificationSuccess)
	return nil
}

// RunResendVerification issues a fresh verification token for an unverified account.
// The outcome is identical for unknown, already verified and unverified addresses;
// failures are logged only.
func RunResendVerification(ctx context.Context, email string, deps EmailVerificationDeps) error {
	normalizeEmailVerificationDeps(&deps)

	if !deps.Enabled {
		return nil
	}
	if deps.GetUserByEmail == nil || deps.CreateToken == nil || deps.Notify == nil || deps.VerifyLink == nil {
		return deps.Errors.EngineNotReady
	}

	deps.MetricInc(deps.Metrics.EmailVerificationRequest)

	email = deps.NormalizeEmail(email)
	if !deps.ValidEmail(email) {
		return nil
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if !deps.IsUserNotFound(err) {
			deps.LogError(ctx, "resend verification lookup failed", err)
			deps.MetricInc(deps.Metrics.InternalError)
		}
		return nil
	}
	if user.IsVerified {
		return nil
	}

	token, err := deps.CreateToken(ctx, TokenKindVerification, user.ID, deps.VerificationTTL)
	if err != nil {
		deps.LogError(ctx, "resend verification token failed", err, "user_id", user.ID)
		deps.MetricInc(deps.Metrics.InternalError)
		return nil
	}

	if err := deps.Notify(ctx, Notification{
		Kind:  NotificationVerifyEmail,
		To:    user.Email,
		Name:  user.Name,
		Token: token,
		Link:  deps.VerifyLink(token),
	}); err != nil {
		deps.LogError(ctx, "resend verification notify failed", err, "user_id", user.ID)
		deps.MetricInc(deps.Metrics.NotificationFailure)
	}
	return nil
}

func normalizeEmailVerificationDeps(deps *EmailVerificationDeps) {
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
