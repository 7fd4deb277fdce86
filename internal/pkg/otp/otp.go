package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Digits is the fixed length of every one-time code.
const Digits = 6

var codeSpace = big.NewInt(1_000_000)

// Generate returns a uniformly distributed 6-digit numeric code from a
// cryptographically secure source. Failure of the source is not retryable.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate one-time code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
