package authcore

import (
	"context"

	internalflows "github.com/MrEthical07/authcore/internal/flows"
)

// VerifyEmail consumes a verification token and marks its account verified. Unknown,
// expired and already used tokens return [ErrInvalidOrExpiredToken].
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunVerifyEmail(ctx, token, e.emailVerificationFlowDeps())
}

// ResendVerification sends a new verification link when email belongs to an unverified
// account. It returns nil whether or not that is the case.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunResendVerification(ctx, email, e.emailVerificationFlowDeps())
}

func (e *Engine) emailVerificationFlowDeps() internalflows.EmailVerificationDeps {
	return internalflows.EmailVerificationDeps{
		Enabled:           e.config.EmailVerification.Enabled,
		VerificationTTL:   e.config.EmailVerification.VerificationTTL,
		NormalizeEmail:    NormalizeEmail,
		ValidEmail:        func(s string) bool { return validateEmail(s) == nil },
		GetUserByEmail:    e.getAccountByEmail,
		MarkEmailVerified: e.users.MarkEmailVerified,
		CreateToken:       e.createToken,
		ConsumeToken:      e.consumeToken,
		VerifyLink:        e.config.Links.verifyEmailLink,
		Notify:            e.notify,
		LogError:          e.logError,
		MetricInc:         func(id int) { e.metricInc(MetricID(id)) },
		Metrics: internalflows.EmailVerificationMetrics{
			EmailVerificationRequest: int(MetricEmailVerificationRequest),
			EmailVerificationSuccess: int(MetricEmailVerificationSuccess),
			EmailVerificationFailure: int(MetricEmailVerificationFailure),
			NotificationFailure:      int(MetricNotificationFailure),
			InternalError:            int(MetricInternalError),
		},
		Errors: e.flowErrors(),
	}
}
