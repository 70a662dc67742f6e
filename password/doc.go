// Package password implements adaptive password hashing and verification.
//
// # Algorithms
//
// [Bcrypt] is the default hasher (cost 10). [Argon2] produces PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Both implement [Hasher]. [Hasher.NeedsUpgrade] reports whether a stored digest was
// produced with weaker parameters so the caller can re-hash after a successful login.
//
// # Worker pool
//
// Hashing is CPU bound. [Pool] runs Hash and Verify on a bounded number of dedicated
// goroutines so a burst of logins cannot starve unrelated request handling. Callers wait
// on their context; a cancelled caller returns immediately while the in-flight hash
// finishes and releases its slot.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length, allowed
// characters) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive digests.
//   - Import any other authcore package.
//   - Log plaintext passwords or digests.
package password
