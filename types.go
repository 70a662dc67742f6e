package authcore

import (
	"context"
	"time"
)

// Role is the authorization role carried in access tokens.
type Role string

const (
	// RoleUser is assigned to every newly registered account.
	RoleUser Role = "user"
	// RoleAdmin is assigned out of band.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the persisted account record. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsVerified   bool      `json:"isVerified"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser is the input to [UserStore.CreateUser]. Email is already normalized.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	IsVerified   bool
	Role         Role
}

// UserStore persists user records. Implementations must enforce email uniqueness
// atomically and return [ErrDuplicateEmail] on conflict and [ErrUserNotFound] for
// missing users.
type UserStore interface {
	CreateUser(ctx context.Context, input NewUser) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID string) (User, error)
	MarkEmailVerified(ctx context.Context, userID string) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// TokenKind separates verification tokens from reset tokens. A token of one kind can
// never be consumed as the other.
type TokenKind string

const (
	// TokenVerification proves control of an email address.
	TokenVerification TokenKind = "verification"
	// TokenReset authorizes one password replacement.
	TokenReset TokenKind = "reset"
)

// TokenRecord is the persisted form of a single-use token. Only the SHA-256 of the
// token is stored.
type TokenRecord struct {
	Hash      [32]byte
	UserID    string
	Kind      TokenKind
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenStore persists single-use token records.
//
// ConsumeToken must atomically remove and return the record so that at most one caller
// observes it. A record whose ExpiresAt is not after now must be reported as
// [ErrTokenNotFound].
type TokenStore interface {
	SaveToken(ctx context.Context, record TokenRecord) error
	ConsumeToken(ctx context.Context, kind TokenKind, hash [32]byte, now time.Time) (TokenRecord, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// NotificationKind identifies the message template.
type NotificationKind string

const (
	// NotifyVerifyEmail carries an email verification link.
	NotifyVerifyEmail NotificationKind = "verify_email"
	// NotifyPasswordReset carries a password reset link.
	NotifyPasswordReset NotificationKind = "password_reset"
)

// Notification is handed to a [Notifier] after the token has been persisted.
type Notification struct {
	Kind  NotificationKind
	To    string
	Name  string
	Token string
	Link  string
}

// Notifier delivers out-of-band messages. A delivery failure never invalidates the
// token that was already stored.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// RegisterInput is the register request body.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

// RegisterResult reports the created account and whether it must be verified before
// login.
type RegisterResult struct {
	User                 User
	VerificationRequired bool
}

// LoginResult holds the issued session tokens.
type LoginResult struct {
	User             User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshResult holds a newly issued access token.
type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	UserID    string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
