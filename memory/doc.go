// Package memory provides in-process implementations of authcore.UserStore and
// authcore.TokenStore for local development, examples and tests. State is lost when
// the process exits.
package memory
