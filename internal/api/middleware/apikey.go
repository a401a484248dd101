package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const apiKeyPrefix = "hr_"

// GeneratedKey is a freshly minted API key. Raw is shown to the caller once
// and never stored.
type GeneratedKey struct {
	Raw    string
	Prefix string
	Hash   string
}

// GenerateAPIKey returns a random key with its lookup prefix and bcrypt hash.
func GenerateAPIKey() (GeneratedKey, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return GeneratedKey{}, fmt.Errorf("generating api key: %w", err)
	}
	raw := apiKeyPrefix + hex.EncodeToString(b)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("hashing api key: %w", err)
	}
	return GeneratedKey{Raw: raw, Prefix: raw[:KeyPrefixLen], Hash: string(hash)}, nil
}
