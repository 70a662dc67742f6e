package authcore

import (
	"context"

	internalflows "github.com/MrEthical07/authcore/internal/flows"
)

// RequestPasswordReset stores a reset token and notifies the account owner when email
// is registered. The result is the same for registered and unknown addresses; internal
// failures are logged and not returned.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunRequestPasswordReset(ctx, email, e.passwordResetFlowDeps())
}

// ResetPassword consumes a reset token and replaces the account password. Session tokens
// issued before the reset remain valid until they expire.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunResetPassword(ctx, token, newPassword, e.passwordResetFlowDeps())
}

func (e *Engine) passwordResetFlowDeps() internalflows.PasswordResetDeps {
	return internalflows.PasswordResetDeps{
		ResetTTL:           e.config.PasswordReset.ResetTTL,
		NormalizeEmail:     NormalizeEmail,
		ValidEmail:         func(s string) bool { return validateEmail(s) == nil },
		ValidatePassword:   validatePassword,
		GetUserByEmail:     e.getAccountByEmail,
		HashPassword:       e.hasher.Hash,
		UpdatePasswordHash: e.users.UpdatePasswordHash,
		CreateToken:        e.createToken,
		ConsumeToken:       e.consumeToken,
		ResetLink:          e.config.Links.resetPasswordLink,
		Notify:             e.notify,
		LogError:           e.logError,
		MetricInc:          func(id int) { e.metricInc(MetricID(id)) },
		Metrics: internalflows.PasswordResetMetrics{
			PasswordResetRequest:        int(MetricPasswordResetRequest),
			PasswordResetConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
			PasswordResetConfirmFailure: int(MetricPasswordResetConfirmFailure),
			NotificationFailure:         int(MetricNotificationFailure),
			InternalError:               int(MetricInternalError),
		},
		Errors: e.flowErrors(),
	}
}
