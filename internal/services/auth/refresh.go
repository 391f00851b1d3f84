package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	refreshTokenBytes = 32
	sessionIDBytes    = 18
)

// randomToken returns n random bytes as unpadded base64url so tokens are safe
// in redis keys and JSON without escaping.
func randomToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid token size %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func NewRefreshToken() (string, error) {
	return randomToken(refreshTokenBytes)
}

func NewSessionID() (string, error) {
	return randomToken(sessionIDBytes)
}
