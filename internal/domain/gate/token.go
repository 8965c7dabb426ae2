// Package gate holds the request gating rules for the dashboard server:
// the access token, the static root with its traversal guard, the MIME table,
// and the outcome taxonomy. Everything here is immutable after construction
// and safe for concurrent use.
package gate

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the number of random bytes in an access token.
// The hex rendering is twice as long.
const TokenBytes = 16

// Token is the shared secret every request must carry in the "token" query parameter.
type Token string

// NewToken generates a fresh access token from crypto/rand.
func NewToken() (Token, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return Token(hex.EncodeToString(b)), nil
}

// Matches reports whether s is exactly the token. The empty token matches nothing.
func (t Token) Matches(s string) bool {
	return t != "" && string(t) == s
}

// String returns the hex form.
func (t Token) String() string {
	return string(t)
}
