package security

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSecureToken generates a cryptographically secure random token of
// the given byte length, hex-encoded
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
