package authz

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NonceBytes is the entropy per issued payload (16 lowercase hex characters).
const NonceBytes = 8

// NewNonce returns a random lowercase hex nonce.
func NewNonce() (string, error) {
	b := make([]byte, NonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
