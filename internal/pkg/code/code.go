package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Issuer produces one-time verification codes. Codes come from crypto/rand
// and only the bcrypt hash ever reaches storage.
type Issuer struct {
	TTL  time.Duration
	Cost int // bcrypt cost; 0 means bcrypt.DefaultCost
}

// Issued is one freshly generated code. Plaintext exists only in memory and
// on the outbound delivery path.
type Issued struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// Issue generates a fixed-width 6-digit code, hashes it and computes its expiry.
func (i Issuer) Issue() (*Issued, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	plaintext := fmt.Sprintf("%06d", n.Int64())

	cost := i.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	return &Issued{
		Plaintext: plaintext,
		Hash:      string(hash),
		ExpiresAt: time.Now().UTC().Add(i.TTL),
	}, nil
}

// Verify compares a submitted code against a stored hash. Never compare
// plaintext directly.
func Verify(hash, submitted string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(submitted)) == nil
}
