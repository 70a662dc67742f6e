// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunRefresh, etc.) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. The Engine builds the dependency structs once and stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user store, the single-use token registry,
// the password pool, the JWT issuer, the notifier and metrics. They do NOT own any of
// these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authcore (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
//   - Pass passwords, digests or plaintext tokens to a log function.
package flows
