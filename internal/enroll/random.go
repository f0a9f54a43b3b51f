// ABOUTME: Random alphanumeric string generation for auth secrets and invite codes
// ABOUTME: Uniform selection over [a-zA-Z0-9] from crypto/rand

package enroll

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphanumerics = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomString returns n uniformly random alphanumeric characters.
func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(alphanumerics)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading randomness: %w", err)
		}
		b[i] = alphanumerics[idx.Int64()]
	}
	return string(b), nil
}
