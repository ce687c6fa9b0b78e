package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teslamotors/fleet-client/internal/log"
	"github.com/teslamotors/fleet-client/pkg/fleet"
)

const (
	// GlobalAuthHost serves token operations for accounts outside China.
	GlobalAuthHost = "https://auth.tesla.com"
	// ChinaAuthHost serves accounts registered in China. Token operations fall back to it once
	// when the global host answers with a redirect or a 403.
	ChinaAuthHost = "https://auth.tesla.cn"

	authorizePath = "/oauth2/v3/authorize"
	tokenPath     = "/oauth2/v3/token"
	revokePath    = "/oauth2/v3/revoke"
)

// DefaultScopes requests everything this library can use. Trim the list in Config.Scopes for
// applications that only read data.
var DefaultScopes = []string{
	"openid", "email", "offline_access",
	"user_data", "vehicle_device_data", "vehicle_cmds", "vehicle_charging_cmds",
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Scopes defaults to DefaultScopes when empty.
	Scopes []string
	// AuthHost overrides the initial token host. Defaults to GlobalAuthHost.
	AuthHost string
	Client   *http.Client
	// Demo makes CheckAuthentication hand out a synthetic token without contacting the server.
	Demo bool
}

// Client owns the account credentials: it runs the login flow, refreshes and revokes tokens, and
// resolves the account's Fleet API region. It satisfies fleet.TokenProvider.
type Client struct {
	config     Config
	httpClient *http.Client

	mu       sync.Mutex
	authHost string
	token    *AuthToken
	region   *fleet.RegionInfo
}

func NewClient(config Config) *Client {
	if len(config.Scopes) == 0 {
		config.Scopes = DefaultScopes
	}
	httpClient := config.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: fleet.DefaultTimeout}
	}
	// Redirects from the token endpoint must surface as responses so the CN fallback can see
	// them.
	wrapped := *httpClient
	wrapped.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	authHost := config.AuthHost
	if authHost == "" {
		authHost = GlobalAuthHost
	}
	return &Client{config: config, httpClient: &wrapped, authHost: authHost}
}

func (c *Client) oauthConfig(host string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		RedirectURL:  c.config.RedirectURI,
		Scopes:       c.config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  host + authorizePath,
			TokenURL: host + tokenPath,
		},
	}
}

func (c *Client) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// LoginFlow is one in-progress browser login. The application opens AuthURL, captures the
// redirect, and passes the full redirect URL to Complete.
type LoginFlow struct {
	AuthURL string

	client   *Client
	state    string
	verifier string
}

// NewLoginFlow starts a PKCE authorization-code login. Each call generates fresh proof-key
// material and a fresh anti-forgery state.
func (c *Client) NewLoginFlow() (*LoginFlow, error) {
	state, err := newState()
	if err != nil {
		return nil, err
	}
	key := newPKCE()
	authURL := c.oauthConfig(c.currentAuthHost()).AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", key.challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	return &LoginFlow{AuthURL: authURL, client: c, state: state, verifier: key.verifier}, nil
}

// Complete finishes the login from the redirect URL the authorization server sent the browser
// to. It rejects redirects whose state does not match the one issued by NewLoginFlow.
func (f *LoginFlow) Complete(ctx context.Context, redirectURL string) (*AuthToken, error) {
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}
	query := parsed.Query()
	if query.Get("state") != f.state {
		return nil, &fleet.AuthenticationError{Message: "login state mismatch"}
	}
	if errCode := query.Get("error"); errCode != "" {
		return nil, &fleet.AuthenticationError{Message: errCode}
	}
	code := query.Get("code")
	if code == "" {
		return nil, &fleet.AuthenticationError{Message: "redirect URL carries no authorization code"}
	}
	return f.client.ExchangeCode(ctx, code, f.verifier)
}

// ExchangeCode trades an authorization code for tokens and stores the result.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*AuthToken, error) {
	tok, err := c.tokenOperation(ctx, func(cfg *oauth2.Config) (*oauth2.Token, error) {
		return cfg.Exchange(c.context(ctx), code, oauth2.VerifierOption(verifier))
	})
	if err != nil {
		return nil, authError(err)
	}
	token := fromOAuth2(tok)
	c.setToken(token)
	return token, nil
}

// RefreshToken exchanges the stored refresh token for a new access token. On success the cached
// region is cleared; the account's home region can change between sessions, so callers re-resolve
// it before the next Fleet API request.
func (c *Client) RefreshToken(ctx context.Context) (*AuthToken, error) {
	c.mu.Lock()
	current := c.token
	c.mu.Unlock()
	if current == nil || current.RefreshToken == "" {
		return nil, fleet.ErrNoTokenToRefresh
	}
	tok, err := c.tokenOperation(ctx, func(cfg *oauth2.Config) (*oauth2.Token, error) {
		seed := &oauth2.Token{RefreshToken: current.RefreshToken}
		return cfg.TokenSource(c.context(ctx), seed).Token()
	})
	if err != nil {
		return nil, refreshError(err)
	}
	token := fromOAuth2(tok)
	if token.RefreshToken == "" {
		token.RefreshToken = current.RefreshToken
	}
	c.setToken(token)
	return token, nil
}

// tokenOperation runs fn against the current auth host, retrying exactly once against the China
// host when the global host redirects or forbids the request. A successful fallback pins the
// client to the China host for subsequent operations.
func (c *Client) tokenOperation(ctx context.Context, fn func(cfg *oauth2.Config) (*oauth2.Token, error)) (*oauth2.Token, error) {
	host := c.currentAuthHost()
	tok, err := fn(c.oauthConfig(host))
	if err != nil && host == GlobalAuthHost && indicatesChinaAccount(err) {
		log.Info("Auth host %s rejected the request, retrying against %s", GlobalAuthHost, ChinaAuthHost)
		tok, err = fn(c.oauthConfig(ChinaAuthHost))
		if err == nil {
			c.mu.Lock()
			c.authHost = ChinaAuthHost
			c.mu.Unlock()
		}
	}
	return tok, err
}

func indicatesChinaAccount(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) || retrieveErr.Response == nil {
		return false
	}
	code := retrieveErr.Response.StatusCode
	return code == http.StatusFound || code == http.StatusForbidden
}

// credentialRejection reports whether a token endpoint answer means the credentials themselves
// were refused. The endpoint uses 400 for invalid_grant and invalid codes, 401 for bad client
// credentials, and 403 for forbidden accounts. Server errors and other statuses are transport
// failures, not a reason to re-run the login flow.
func credentialRejection(err error) (*oauth2.RetrieveError, bool) {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) || retrieveErr.Response == nil {
		return nil, false
	}
	switch retrieveErr.Response.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return retrieveErr, true
	}
	return nil, false
}

func authError(err error) error {
	if retrieveErr, ok := credentialRejection(err); ok {
		return &fleet.AuthenticationError{
			Code:    retrieveErr.Response.StatusCode,
			Message: strings.TrimSpace(string(retrieveErr.Body)),
		}
	}
	return &fleet.NetworkError{Err: err}
}

func refreshError(err error) error {
	if retrieveErr, ok := credentialRejection(err); ok {
		return &fleet.RefreshError{
			Code:    retrieveErr.Response.StatusCode,
			Message: strings.TrimSpace(string(retrieveErr.Body)),
		}
	}
	return &fleet.NetworkError{Err: err}
}

func fromOAuth2(tok *oauth2.Token) *AuthToken {
	token := &AuthToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		CreatedAt:    time.Now().Unix(),
	}
	if expiresIn, ok := tok.Extra("expires_in").(float64); ok {
		token.ExpiresIn = int64(expiresIn)
	} else if !tok.Expiry.IsZero() {
		token.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	if createdAt, ok := tok.Extra("created_at").(float64); ok {
		token.CreatedAt = int64(createdAt)
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		token.IDToken = idToken
	}
	return token
}

// CheckAuthentication returns a usable token: the stored one when still valid, a refreshed one
// when a refresh token is available, or ErrAuthenticationRequired when the application must run
// the login flow again. In demo mode it returns a synthetic token without any network traffic.
func (c *Client) CheckAuthentication(ctx context.Context) (*AuthToken, error) {
	if c.config.Demo {
		return &AuthToken{
			AccessToken: "demo",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
			CreatedAt:   time.Now().Unix(),
		}, nil
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token.IsValid() {
		return token, nil
	}
	if token != nil && token.RefreshToken != "" {
		return c.RefreshToken(ctx)
	}
	return nil, fleet.ErrAuthenticationRequired
}

// RevokeToken invalidates the stored refresh token on the server. The local token is discarded
// regardless of the server's answer; the returned bool reports whether the server accepted the
// revocation.
func (c *Client) RevokeToken(ctx context.Context) (bool, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	c.Logout()
	if token == nil {
		return false, fleet.ErrNoTokenToRefresh
	}

	form := url.Values{"token": []string{token.RefreshToken}, "client_id": []string{c.config.ClientID}}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.currentAuthHost()+revokePath, strings.NewReader(form.Encode()))
	if err != nil {
		return false, &fleet.NetworkError{Err: err}
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	response, err := c.httpClient.Do(request)
	if err != nil {
		return false, &fleet.NetworkError{Err: err}
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		log.Warning("Token revocation returned HTTP %d", response.StatusCode)
		return false, nil
	}
	return true, nil
}

// Logout discards the stored token and cached region without contacting the server.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = nil
	c.region = nil
}

// ReuseToken adopts a token obtained elsewhere, such as one loaded from a keyring.
func (c *Client) ReuseToken(token *AuthToken) {
	c.setToken(token)
}

// Token returns the stored token, or nil when the client is logged out.
func (c *Client) Token() *AuthToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(token *AuthToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	// The region belongs to the account behind the token. A new token may belong to a different
	// account, so the cache is invalid until re-resolved.
	c.region = nil
}

func (c *Client) currentAuthHost() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authHost
}

// BearerToken implements fleet.TokenProvider.
func (c *Client) BearerToken(ctx context.Context) (string, error) {
	token, err := c.CheckAuthentication(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}
