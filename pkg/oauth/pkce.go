package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// pkce holds the per-login proof-key material. The verifier never leaves the process; only its
// S256 challenge is sent with the authorization request.
type pkce struct {
	verifier  string
	challenge string
}

func newPKCE() pkce {
	verifier := oauth2.GenerateVerifier()
	return pkce{
		verifier:  verifier,
		challenge: oauth2.S256ChallengeFromVerifier(verifier),
	}
}

// newState returns a fresh anti-CSRF state parameter.
func newState() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
