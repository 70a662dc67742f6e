// Package stores provides the Redis-backed single-use token store used for email
// verification and password reset.
//
// # Design
//
// Each record is persisted under a key derived from the token kind and the SHA-256 of the
// token, as a versioned binary value with a native Redis TTL. Consume uses a WATCH/MULTI
// optimistic transaction (GET, check expiry, DEL) retried on contention, so of any number
// of concurrent consumers at most one observes the record. Reads re-check expiresAt and
// never trust the TTL alone.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for single-use records. It does
// NOT generate tokens or make authentication decisions.
//
// # What this package must NOT do
//
//   - Import authcore or any sibling internal package.
//   - Store or log plaintext tokens.
package stores
