package flows

import (
	"context"
	"errors"
	"time"
)

type RefreshMetrics struct {
	RefreshSuccess int
	RefreshFailure int
	InternalError  int
}

type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
}

type RefreshDeps struct {
	// VerifyRefresh returns the subject of a valid refresh token.
	VerifyRefresh  func(string) (string, error)
	GetUserByID    func(context.Context, string) (Account, error)
	IsUserNotFound func(error) bool
	IssueAccess    func(string, string) (string, time.Time, error)

	LogError  LogFunc
	MetricInc func(int)

	Metrics RefreshMetrics
	Errors  Errors
}

// RunRefresh exchanges a refresh token for a new access token. The refresh token itself
// is not rotated. The user is re-read so the new token carries the current role and a
// user that no longer exists cannot refresh.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (RefreshResult, error) {
	normalizeRefreshDeps(&deps)

	if deps.VerifyRefresh == nil || deps.GetUserByID == nil || deps.IssueAccess == nil {
		return RefreshResult{}, deps.Errors.EngineNotReady
	}
	if refreshToken == "" {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		return RefreshResult{}, deps.Errors.Unauthorized
	}

	userID, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		return RefreshResult{}, deps.Errors.Unauthorized
	}

	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		if deps.IsUserNotFound(err) {
			deps.MetricInc(deps.Metrics.RefreshFailure)
			return RefreshResult{}, deps.Errors.Unauthorized
		}
		deps.LogError(ctx, "refresh lookup failed", err, "user_id", userID)
		deps.MetricInc(deps.Metrics.InternalError)
		return RefreshResult{}, deps.Errors.Internal
	}

	access, exp, err := deps.IssueAccess(user.ID, user.Role)
	if err != nil {
		deps.LogError(ctx, "refresh access token failed", err, "user_id", user.ID)
		deps.MetricInc(deps.Metrics.InternalError)
		return RefreshResult{}, deps.Errors.Internal
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	return RefreshResult{AccessToken: access, AccessExpiresAt: exp}, nil
}

func normalizeRefreshDeps(deps *RefreshDeps) {
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
