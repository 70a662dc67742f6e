package authcore

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrValidation is returned when a request fails schema validation. The concrete
	// error is a *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEmail is returned by Register and by UserStore.CreateUser when the
	// normalized email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredential is returned by Login for an unknown email and for a wrong
	// password alike.
	ErrInvalidCredential = errors.New("invalid email or password")
	// ErrEmailNotVerified is returned by Login when the password is correct but the
	// account has not been verified.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidOrExpiredToken is returned when a single-use token is absent, expired or
	// already consumed.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrUnauthorized is returned when a session token fails verification.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInternal is returned for store, hashing and delivery failures. Details are
	// logged, never returned.
	ErrInternal = errors.New("internal error")
	// ErrUserNotFound is returned by UserStore lookups.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenNotFound is returned by TokenStore.ConsumeToken when no live record
	// matches.
	ErrTokenNotFound = errors.New("token not found")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or
	// closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError carries one message per invalid field. It matches ErrValidation with
// errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	b.WriteString(": ")
	for i, name := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteString(" ")
		b.WriteString(e.Fields[name])
	}
	return b.String()
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
