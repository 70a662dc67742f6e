package password

import "errors"

// ErrMalformedDigest is returned by Verify and NeedsUpgrade when the stored digest cannot be
// parsed.
var ErrMalformedDigest = errors.New("malformed password digest")

// Hasher computes and verifies salted password digests.
//
// Verify returns (false, nil) on mismatch and (false, err) only when the digest itself is
// unusable. Implementations must be safe for concurrent use.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsUpgrade(encoded string) (bool, error)
}

var (
	_ Hasher = (*Bcrypt)(nil)
	_ Hasher = (*Argon2)(nil)
)
