package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// OpaqueTokenBytes is the entropy of a single-use token: 256 bits.
const OpaqueTokenBytes = 32

// NewOpaqueToken returns a hex encoded random token and the SHA-256 digest that is persisted
// in its place.
func NewOpaqueToken() (string, [32]byte, error) {
	var raw [OpaqueTokenBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", [32]byte{}, err
	}
	token := hex.EncodeToString(raw[:])
	return token, HashOpaqueToken(token), nil
}

// HashOpaqueToken returns the lookup digest for a presented token.
func HashOpaqueToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// ValidateOpaqueToken checks the shape of a presented token before any store lookup.
func ValidateOpaqueToken(token string) error {
	if len(token) != hex.EncodedLen(OpaqueTokenBytes) {
		return errors.New("invalid token length")
	}
	if _, err := hex.DecodeString(token); err != nil {
		return errors.New("invalid token encoding")
	}
	return nil
}

// NewSecret returns n random bytes.
func NewSecret(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("invalid secret size")
	}
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}
