package assignment

import (
	"crypto/rand"
	"encoding/base64"
)

const tokenBytes = 32

// NewAccessToken returns 256 random bits encoded as unpadded base64url.
func NewAccessToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
