package calendars

import (
	"crypto/rand"
	"math/big"
)

const (
	shareCodeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"
	shareCodeLength   = 10
)

func newShareCode() (string, error) {
	limit := big.NewInt(int64(len(shareCodeAlphabet)))
	out := make([]byte, shareCodeLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = shareCodeAlphabet[n.Int64()]
	}
	return string(out), nil
}

// validShareCode rejects obviously malformed codes before they reach the
// cache or database. Codes from older imports may use other characters, so
// only length and character class are checked.
func validShareCode(code string) bool {
	if len(code) < 4 || len(code) > 64 {
		return false
	}
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
