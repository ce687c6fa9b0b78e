package oauth

import (
	"encoding/json"
	"time"
)

// AuthToken is the credential set returned by the token endpoint, serialized exactly as the
// server sends it so the blob can round-trip through a keyring.
type AuthToken struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// UnmarshalJSON stamps CreatedAt with the current time when the server omits it, so validity can
// always be computed from the token alone.
func (t *AuthToken) UnmarshalJSON(data []byte) error {
	type alias AuthToken
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if decoded.CreatedAt == 0 {
		decoded.CreatedAt = time.Now().Unix()
	}
	*t = AuthToken(decoded)
	return nil
}

// IsValid reports whether the access token is still within its lifetime.
func (t *AuthToken) IsValid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return time.Since(time.Unix(t.CreatedAt, 0)) < time.Duration(t.ExpiresIn)*time.Second
}
