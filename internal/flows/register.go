package flows

import (
	"context"
	"errors"
	"time"
)

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

type RegisterMetrics struct {
	RegisterSuccess     int
	RegisterDuplicate   int
	RegisterInvalid     int
	NotificationFailure int
	InternalError       int
}

type RegisterDeps struct {
	VerificationEnabled bool
	VerificationTTL     time.Duration
	DefaultRole         string

	// Validate normalizes req in place and returns a validation error.
	Validate       func(*RegisterRequest) error
	GetUserByEmail func(context.Context, string) (Account, error)
	IsUserNotFound func(error) bool
	IsDuplicate    func(error) bool
	HashPassword   func(context.Context, string) (string, error)
	CreateUser     func(context.Context, Account) (Account, error)
	CreateToken    func(context.Context, string, string, time.Duration) (string, error)
	VerifyLink     func(string) string
	Notify         func(context.Context, Notification) error

	LogError  LogFunc
	MetricInc func(int)

	Metrics RegisterMetrics
	Errors  Errors
}

// RunRegister validates req, creates the account and, when verification is enabled,
// issues a verification token and hands it to the notifier. The token is stored before
// delivery is attempted; a delivery failure is logged and registration still succeeds.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (Account, bool, error) {
	normalizeRegisterDeps(&deps)

	if deps.Validate == nil || deps.HashPassword == nil || deps.CreateUser == nil || deps.IsDuplicate == nil {
		return Account{}, false, deps.Errors.EngineNotReady
	}
	if deps.VerificationEnabled && (deps.CreateToken == nil || deps.Notify == nil || deps.VerifyLink == nil) {
		return Account{}, false, deps.Errors.EngineNotReady
	}

	if err := deps.Validate(&req); err != nil {
		deps.MetricInc(deps.Metrics.RegisterInvalid)
		return Account{}, false, err
	}

	if deps.GetUserByEmail != nil {
		_, err := deps.GetUserByEmail(ctx, req.Email)
		switch {
		case err == nil:
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			return Account{}, false, deps.Errors.DuplicateEmail
		case deps.IsUserNotFound != nil && deps.IsUserNotFound(err):
		default:
			deps.LogError(ctx, "register lookup failed", err)
			deps.MetricInc(deps.Metrics.InternalError)
			return Account{}, false, deps.Errors.Internal
		}
	}

	digest, err := deps.HashPassword(ctx, req.Password)
	if err != nil {
		deps.LogError(ctx, "register hash failed", err)
		deps.MetricInc(deps.Metrics.InternalError)
		return Account{}, false, deps.Errors.Internal
	}

	created, err := deps.CreateUser(ctx, Account{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: digest,
		IsVerified:   !deps.VerificationEnabled,
		Role:         deps.DefaultRole,
	})
	if err != nil {
		if deps.IsDuplicate(err) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			return Account{}, false, deps.Errors.DuplicateEmail
		}
		deps.LogError(ctx, "register create failed", err)
		deps.MetricInc(deps.Metrics.InternalError)
		return Account{}, false, deps.Errors.Internal
	}
	deps.MetricInc(deps.Metrics.RegisterSuccess)

	if !deps.VerificationEnabled {
		return created, false, nil
	}

	token, err := deps.CreateToken(ctx, TokenKindVerification, created.ID, deps.VerificationTTL)
	if err != nil {
		// The account exists; the user can ask for a new link.
		deps.LogError(ctx, "register verification token failed", err, "user_id", created.ID)
		deps.MetricInc(deps.Metrics.InternalError)
		return created, true, nil
	}

	if err := deps.Notify(ctx, Notification{
		Kind:  NotificationVerifyEmail,
		To:    created.Email,
		Name:  created.Name,
		Token: token,
		Link:  deps.VerifyLink(token),
	}); err != nil {
		deps.LogError(ctx, "register verification notify failed", err, "user_id", created.ID)
		deps.MetricInc(deps.Metrics.NotificationFailure)
	}

	return created, true, nil
}

func normalizeRegisterDeps(deps *RegisterDeps) {
	if deps.LogError == nil {
		deps.LogError = noopLog
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.IsUserNotFound == nil {
		deps.IsUserNotFound = func(err error) bool { return errors.Is(err, deps.Errors.UserNotFound) }
	}
	if deps.IsDuplicate == nil {
		deps.IsDuplicate = func(err error) bool { return errors.Is(err, deps.Errors.DuplicateEmail) }
	}
}
