// Package jwt issues and verifies the two session tokens: short-lived access tokens that
// carry the subject and role, and longer-lived refresh tokens that carry only the subject.
//
// Each kind is signed with its own HMAC secret and tagged with a "typ" claim, so a leaked
// access secret cannot mint refresh tokens and a refresh token is never accepted where an
// access token is expected. Verification failures are classified into
// [ErrInvalidSignature], [ErrExpired] and [ErrMalformed].
package jwt
