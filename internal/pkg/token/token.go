package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewCredentialSecret generates the random 64-character hex secret stored
// (hashed) on employee identities created by verification. It is never
// disclosed to anyone, which makes such accounts reachable only through
// re-verification.
func NewCredentialSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate credential secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
