// Package middleware exposes HTTP middleware that authenticates requests with
// authcore access tokens.
//
// # Guards
//
//   - [Guard] reads the access token from the accessToken cookie or an
//     Authorization: Bearer header and verifies it with Engine.ValidateAccess.
//   - [RequireRole] rejects authenticated requests whose token carries another role.
//
// Validated claims are stored in the request context; read them with
// [ClaimsFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not parse JWTs
// itself and never touches a store.
package middleware
