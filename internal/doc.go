// Package internal contains helpers that are private to authcore: single-use token
// generation and hashing.
//
// # Sub-packages
//
//   - app: process configuration, logger construction and dependency wiring for cmd/authd
//   - errutil: structured error logging
//   - flows: pure-function orchestrators for every Engine operation
//   - stores: Redis-backed single-use token records
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal
