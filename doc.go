// Package authcore provides an authentication engine for end users: registration, login,
// stateless JWT session issuance and renewal, email verification and password reset.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], the storage
// interfaces [UserStore] and [TokenStore], the [Notifier] interface and value types. Flow
// orchestration and the Redis record encoding live under internal/ and are never exported.
// Concrete stores live in the postgres and memory sub-packages; delivery lives in notify.
//
// # Sessions
//
// Access and refresh tokens are self-contained signed artifacts. The engine keeps no
// server-side session state, so logout only clears client-held cookies and a password
// reset does not invalidate tokens that were already issued. Both remain valid until
// they expire.
//
// # What this package must NOT do
//
//   - Log or return passwords, password digests or plaintext single-use tokens.
//   - Reveal whether an email is registered through login or password reset outcomes.
//   - Import any sub-package that re-imports authcore (no import cycles).
package authcore
