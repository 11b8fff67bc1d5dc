// Package auth verifies session tokens and gates the HTTP surface. Token
// issuance (login, password handling) lives outside this service; we only
// check the signature.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidToken is returned for missing, malformed or mis-signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Verifier checks tokens of the form "<uid>.<hexsig>" where hexsig is
// HMAC-SHA256 of the uid under one of the configured signing keys. Several
// keys may be configured so tokens survive key rotation.
type Verifier struct {
	keys []string
}

// NewVerifier builds a verifier over the configured signing keys.
func NewVerifier(keys []string) *Verifier {
	return &Verifier{keys: append([]string(nil), keys...)}
}

// Sign mints a token for the uid under the first configured key. Used by
// tests and local tooling; production tokens come from the external auth
// service holding the same keys.
func (v *Verifier) Sign(uid string) (string, error) {
	if len(v.keys) == 0 {
		return "", errors.New("no signing keys configured")
	}
	return uid + "." + signature(uid, v.keys[0]), nil
}

// Verify returns the uid carried by a valid token, or ErrInvalidToken.
func (v *Verifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	i := strings.LastIndexByte(token, '.')
	if i <= 0 || i == len(token)-1 {
		return "", ErrInvalidToken
	}
	uid, sig := token[:i], token[i+1:]
	for _, k := range v.keys {
		expected := signature(uid, k)
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return uid, nil
		}
	}
	return "", ErrInvalidToken
}

func signature(uid, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(uid))
	return hex.EncodeToString(mac.Sum(nil))
}
