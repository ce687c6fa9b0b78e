package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"github.com/teslamotors/fleet-client/pkg/oauth"
)

const (
	keyringServiceName  = "com.tesla.fleet"
	keyringTokenService = "oauthtoken"
	keyringDirectory    = "~/.tesla_tokens"
)

type backendType struct {
	config *Config
}

func (b backendType) String() string {
	if b.config == nil || len(b.config.Backend.AllowedBackends) == 0 {
		return string(keyring.InvalidBackend)
	}
	return string(b.config.Backend.AllowedBackends[0])
}

func (b backendType) Set(v string) error {
	value := keyring.BackendType(v)
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	for _, name := range keyring.AvailableBackends() {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage")
}

func (c *Config) getPassword(prompt string) (string, error) {
	if c.password != nil && *c.password != "" {
		return *c.password, nil
	}

	var w io.Writer
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fd = int(os.Stderr.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal output available for password prompt")
		} else {
			w = os.Stderr
		}
	} else {
		w = os.Stdout
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	password := string(b)
	c.password = &password
	return password, nil
}

func (c *Config) openKeyring() (keyring.Keyring, error) {
	return keyring.Open(c.Backend)
}

func (c *Config) fullTokenName() string {
	return keyringTokenService + "." + c.KeyringTokenName
}

// loadTokenFromKeyring loads an OAuth token blob from the system keyring.
//
// The token name must match the value provided to saveTokenToKeyring.
func (c *Config) loadTokenFromKeyring() (*oauth.AuthToken, error) {
	kr, err := c.openKeyring()
	if err != nil {
		return nil, err
	}

	item, err := kr.Get(c.fullTokenName())
	if err != nil {
		return nil, err
	}
	var token oauth.AuthToken
	if err := json.Unmarshal(item.Data, &token); err != nil {
		return nil, fmt.Errorf("could not decode saved token: %s", err)
	}
	return &token, nil
}

// saveTokenToKeyring writes the account's OAuth token to the system keyring.
func (c *Config) saveTokenToKeyring(token *oauth.AuthToken) error {
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}

	blob, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := kr.Set(keyring.Item{
		Key:  c.fullTokenName(),
		Data: blob,
	}); err != nil {
		return fmt.Errorf("failed to enroll token in keyring: %s", err)
	}
	return nil
}

func (c *Config) deleteTokenFromKeyring() error {
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}
	return kr.Remove(c.fullTokenName())
}

func loadTokenFromFile(filename string) (*oauth.AuthToken, error) {
	blob, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var token oauth.AuthToken
	if err := json.Unmarshal(blob, &token); err != nil {
		return nil, fmt.Errorf("could not decode token file %s: %s", filename, err)
	}
	return &token, nil
}

func saveTokenToFile(token *oauth.AuthToken, filename string) error {
	blob, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, blob, 0600)
}
