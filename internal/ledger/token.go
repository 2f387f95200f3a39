package ledger

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// TokenSigner produces and verifies enrollment-token credentials. A token is
// the pair (value, signature) where signature = HMAC-SHA256(secret, value);
// only the value is ever stored.
type TokenSigner struct {
	secret []byte
}

func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret)}
}

// NewValue returns a fresh 128-bit random token value, hex-encoded.
func (s *TokenSigner) NewValue() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func (s *TokenSigner) Sign(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the HMAC and compares in constant time.
func (s *TokenSigner) Verify(value, signature string) bool {
	return hmac.Equal([]byte(s.Sign(value)), []byte(signature))
}

const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewKeyCode returns an access-key code like "EDU-7KQ2-M9XR".
func NewKeyCode() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	out := []byte("EDU-XXXX-XXXX")
	pos := []int{4, 5, 6, 7, 9, 10, 11, 12}
	for i, p := range pos {
		out[p] = keyAlphabet[int(b[i])%len(keyAlphabet)]
	}
	return string(out), nil
}
