/*
Package cli facilitates building command-line applications on top of the Fleet API client. It
defines a [Config] type that can be used to register common command-line flags (using the Golang
flag package) and environment variable equivalents.

The package uses [keyring]'s platform-agnostic interface for storing OAuth tokens in an
OS-dependent credential store.

# Examples

	import flag

	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds command-line flags for OAuth, keyring, etc.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables

	account, client, err := config.Connect()
	if err != nil {
		panic(err)
	}

The returned account holds credentials; the client issues vehicle requests with tokens borrowed
from the account per call.
*/
package cli

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/99designs/keyring"
	"github.com/joho/godotenv"

	"github.com/teslamotors/fleet-client/internal/log"
	"github.com/teslamotors/fleet-client/pkg/fleet"
	"github.com/teslamotors/fleet-client/pkg/oauth"
)

// Environment variable names used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvTeslaClientID     = "TESLA_CLIENT_ID"
	EnvTeslaClientSecret = "TESLA_CLIENT_SECRET"
	EnvTeslaRedirectURI  = "TESLA_REDIRECT_URI"
	EnvTeslaVIN          = "TESLA_VIN"
	EnvTeslaTokenName    = "TESLA_TOKEN_NAME"
	EnvTeslaTokenFile    = "TESLA_TOKEN_FILE"
	EnvTeslaKeyringType  = "TESLA_KEYRING_TYPE"
	EnvTeslaKeyringPass  = "TESLA_KEYRING_PASSWORD"
	EnvTeslaKeyringPath  = "TESLA_KEYRING_PATH"
	EnvTeslaKeyringDebug = "TESLA_KEYRING_DEBUG"
	EnvTeslaDemo         = "TESLA_DEMO"
)

// Flag controls what options should be scanned from the command line and/or environment variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagVIN   Flag = 1 // Enable VIN option.
	FlagOAuth Flag = 2 // Enable OAuth options.
	FlagDemo  Flag = 4 // Enable the demo-vehicle option.
	FlagAll   Flag = FlagVIN | FlagOAuth | FlagDemo
)

var (
	ErrNoCredentials = errors.New("OAuth client ID not provided")
	ErrKeyNotFound   = keyring.ErrKeyNotFound
)

// Config fields determine how a client authenticates to Tesla's backend.
type Config struct {
	Flags            Flag   // Controls which set of environment variables/CLI flags to use.
	ClientID         string // OAuth application client ID
	ClientSecret     string // OAuth application client secret, if any
	RedirectURI      string
	VIN              string
	KeyringTokenName string // Username for OAuth token in system keyring
	TokenFilename    string
	Demo             bool
	Backend          keyring.Config
	BackendType      backendType
	Debug            bool // Enable keyring debug messages

	password *string
	account  *oauth.Client
}

func NewConfig(flags Flag) (*Config, error) {
	c := Config{
		Flags: flags,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword

	return &c, nil
}

// LoadEnvFile loads a .env file into the process environment before ReadFromEnvironment runs.
// A missing file is not an error.
func LoadEnvFile(filename string) error {
	if filename == "" {
		filename = ".env"
	}
	if err := godotenv.Load(filename); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	log.Debug("Loaded environment from %s", filename)
	return nil
}

func (c *Config) RegisterCommandLineFlags() {
	if c.Flags.isSet(FlagVIN) {
		flag.StringVar(&c.VIN, "vin", "", "Vehicle Identification Number. Defaults to $TESLA_VIN.")
	}
	if c.Flags.isSet(FlagOAuth) {
		flag.StringVar(&c.ClientID, "client-id", "", "OAuth client `id`. Defaults to $TESLA_CLIENT_ID.")
		flag.StringVar(&c.RedirectURI, "redirect-uri", "", "OAuth redirect `uri`. Defaults to $TESLA_REDIRECT_URI.")
		flag.StringVar(&c.KeyringTokenName, "token-name", "", "System keyring `name` for OAuth token. Defaults to $TESLA_TOKEN_NAME.")
		flag.StringVar(&c.TokenFilename, "token-file", "", "`File` containing OAuth token. Defaults to $TESLA_TOKEN_FILE.")

		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		flag.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $TESLA_KEYRING_TYPE.")
		flag.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
		flag.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
	}
	if c.Flags.isSet(FlagDemo) {
		flag.BoolVar(&c.Demo, "demo", false, "Use the simulated demo vehicle instead of the live API.")
	}
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization method) will prevent the
// environment from overriding explicit command-line parameters and avoid potentially misleading
// debug log messages.
func (c *Config) ReadFromEnvironment() {
	if c.Flags.isSet(FlagVIN) {
		if c.VIN == "" {
			c.VIN = os.Getenv(EnvTeslaVIN)
			log.Debug("Set VIN to '%s'", c.VIN)
		}
	}
	if c.Flags.isSet(FlagOAuth) {
		if c.ClientID == "" {
			c.ClientID = os.Getenv(EnvTeslaClientID)
			log.Debug("Set client ID to '%s'", c.ClientID)
		}
		if c.ClientSecret == "" {
			c.ClientSecret = os.Getenv(EnvTeslaClientSecret)
		}
		if c.RedirectURI == "" {
			c.RedirectURI = os.Getenv(EnvTeslaRedirectURI)
			log.Debug("Set redirect URI to '%s'", c.RedirectURI)
		}
		if c.KeyringTokenName == "" && c.TokenFilename == "" {
			c.KeyringTokenName = os.Getenv(EnvTeslaTokenName)
			log.Debug("Set OAuth token name to '%s'", c.KeyringTokenName)

			c.TokenFilename = os.Getenv(EnvTeslaTokenFile)
			log.Debug("Set OAuth token file to '%s'", c.TokenFilename)
		}
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvTeslaKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.password == nil {
			password := os.Getenv(EnvTeslaKeyringPass)
			c.password = &password
			if len(password) > 0 {
				log.Debug("Set keyring File Password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = os.Getenv(EnvTeslaKeyringPath)
			log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
		}
		if !c.Debug {
			_, c.Debug = os.LookupEnv(EnvTeslaKeyringDebug)
			log.Debug("Set keyring Debug Logging to '%v'", c.Debug)
		}
	}
	if c.Flags.isSet(FlagDemo) && !c.Demo {
		_, c.Demo = os.LookupEnv(EnvTeslaDemo)
	}
}

// Account returns the configured OAuth client, loading a saved token from the keyring or token
// file when one is available.
func (c *Config) Account() (*oauth.Client, error) {
	if c.account != nil {
		return c.account, nil
	}
	if !c.Demo && c.ClientID == "" {
		return nil, ErrNoCredentials
	}
	account := oauth.NewClient(oauth.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURI:  c.RedirectURI,
		Demo:         c.Demo,
	})
	if !c.Demo {
		if token, err := c.LoadToken(); err == nil {
			account.ReuseToken(token)
		} else if !errors.Is(err, ErrKeyNotFound) {
			log.Debug("No saved token available: %s", err)
		}
	}
	c.account = account
	return account, nil
}

// Connect builds the OAuth client and a Fleet API client backed by it. In demo mode the client is
// wired to a fresh simulator and never touches the network.
func (c *Config) Connect() (*oauth.Client, *fleet.Client, error) {
	account, err := c.Account()
	if err != nil {
		return nil, nil, err
	}
	config := fleet.Config{Tokens: account, Client: &http.Client{Timeout: fleet.DefaultTimeout}}
	if c.Demo {
		config.Simulator = fleet.NewSimulator()
	}
	return account, fleet.NewClient(config), nil
}

// SaveToken persists a token to the keyring or token file, preferring the keyring when both are
// configured.
func (c *Config) SaveToken(token *oauth.AuthToken) error {
	if c.KeyringTokenName != "" {
		return c.saveTokenToKeyring(token)
	}
	if c.TokenFilename != "" {
		return saveTokenToFile(token, c.TokenFilename)
	}
	return fmt.Errorf("no token storage location configured")
}

// LoadToken retrieves a previously saved token.
func (c *Config) LoadToken() (*oauth.AuthToken, error) {
	if c.TokenFilename != "" {
		token, err := loadTokenFromFile(c.TokenFilename)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		// If the token file doesn't exist, fall through to trying to load from the system keyring.
	}
	if c.KeyringTokenName == "" {
		return nil, ErrKeyNotFound
	}
	return c.loadTokenFromKeyring()
}

// DeleteToken removes the saved token from the keyring and/or token file.
func (c *Config) DeleteToken() error {
	var errs []string
	if c.KeyringTokenName != "" {
		if err := c.deleteTokenFromKeyring(); err != nil && !errors.Is(err, ErrKeyNotFound) {
			errs = append(errs, err.Error())
		}
	}
	if c.TokenFilename != "" {
		if err := os.Remove(c.TokenFilename); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
