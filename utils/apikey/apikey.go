package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"

	"mme/internal/core"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateBearerToken returns "pk-" followed by 32 random alphanumerics.
func GenerateBearerToken() (string, error) {
	var b strings.Builder
	b.Grow(len(core.BearerTokenPrefix) + core.BearerTokenLength)
	b.WriteString(core.BearerTokenPrefix)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < core.BearerTokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// HashToken is the cache key form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Mask keeps the first and last four characters.
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
