package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	LoginTTL         = 10 * time.Minute
	ImpersonationTTL = 60 * time.Second
	ResendWindow     = 30 * time.Second
	MaxAttempts      = 5
	codeDigits       = 6
)

const (
	PurposeLogin         = "login"
	PurposeImpersonation = "impersonation"
)

// Grant is what a stored code authorizes once redeemed.
type Grant struct {
	Purpose   string
	Actor     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identifier combines the normalized email with the membership id or the
// platform sentinel. Codes are only ever looked up by this value.
func Identifier(email, discriminator string) string {
	return strings.ToLower(strings.TrimSpace(email)) + ":" + strings.TrimSpace(discriminator)
}

// GenerateCode returns a zero-padded numeric code.
func GenerateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
