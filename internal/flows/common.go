package flows

import (
	"context"
	"time"
)

// Account is the flow-level view of a user record.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsVerified   bool
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Notification mirrors the public notification payload.
type Notification struct {
	Kind  string
	To    string
	Name  string
	Token string
	Link  string
}

const (
	TokenKindVerification = "verification"
	TokenKindReset        = "reset"

	NotificationVerifyEmail   = "verify_email"
	NotificationPasswordReset = "password_reset"
)

// Errors are the sentinels a flow may return. The engine fills them with the public
// authcore errors.
type Errors struct {
	EngineNotReady        error
	DuplicateEmail        error
	InvalidCredential     error
	EmailNotVerified      error
	InvalidOrExpiredToken error
	Unauthorized          error
	Internal              error
	UserNotFound          error
}

// LogFunc records a failure with structured attributes. It must never receive secrets.
type LogFunc func(ctx context.Context, msg string, err error, attrs ...any)

func noopLog(context.Context, string, error, ...any) {}

func noopMetric(int) {}
