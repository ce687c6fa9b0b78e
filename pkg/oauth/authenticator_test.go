package oauth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/teslamotors/fleet-client/pkg/fleet"
)

const (
	globalTokenURL = GlobalAuthHost + tokenPath
	chinaTokenURL  = ChinaAuthHost + tokenPath
	euFleetHost    = "https://fleet-api.prd.eu.vn.cloud.tesla.com"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return NewClient(Config{
		ClientID:    "test-client",
		RedirectURI: "https://localhost/callback",
		Client:      httpClient,
	})
}

func tokenJSON(access string) string {
	return fmt.Sprintf(`{
		"access_token": %q,
		"token_type": "Bearer",
		"expires_in": 28800,
		"refresh_token": "refresh-1",
		"id_token": "id-1"
	}`, access)
}

// encodedJWT builds an unsigned JWT whose payload carries the given claims JSON.
func encodedJWT(claims string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(claims))
	signature := base64.RawURLEncoding.EncodeToString([]byte("sig"))
	return header + "." + payload + "." + signature
}

func validToken(access string) *AuthToken {
	return &AuthToken{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		CreatedAt:    time.Now().Unix(),
		RefreshToken: "refresh-1",
	}
}

func TestLoginFlowURL(t *testing.T) {
	client := newTestClient(t)
	flow, err := client.NewLoginFlow()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := url.Parse(flow.AuthURL)
	if err != nil {
		t.Fatalf("AuthURL does not parse: %s", err)
	}
	query := parsed.Query()
	if query.Get("client_id") != "test-client" {
		t.Errorf("client_id = %q", query.Get("client_id"))
	}
	if query.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %q", query.Get("code_challenge_method"))
	}
	if query.Get("code_challenge") == "" || query.Get("state") == "" {
		t.Error("missing code_challenge or state")
	}
	if !strings.HasPrefix(flow.AuthURL, GlobalAuthHost+authorizePath) {
		t.Errorf("AuthURL = %q", flow.AuthURL)
	}
}

func TestLoginFlowStateMismatch(t *testing.T) {
	client := newTestClient(t)
	flow, err := client.NewLoginFlow()
	if err != nil {
		t.Fatal(err)
	}
	_, err = flow.Complete(context.Background(), "https://localhost/callback?code=abc&state=forged")
	var authErr *fleet.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if httpmock.GetTotalCallCount() != 0 {
		t.Error("a forged redirect must not reach the token endpoint")
	}
}

func TestLoginFlowComplete(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, globalTokenURL, func(req *http.Request) (*http.Response, error) {
		if err := req.ParseForm(); err != nil {
			return nil, err
		}
		if req.PostForm.Get("code") != "auth-code" {
			t.Errorf("code = %q", req.PostForm.Get("code"))
		}
		if req.PostForm.Get("code_verifier") == "" {
			t.Error("missing code_verifier")
		}
		resp := httpmock.NewStringResponse(http.StatusOK, tokenJSON("access-1"))
		resp.Header.Set("Content-Type", "application/json")
		return resp, nil
	})

	flow, err := client.NewLoginFlow()
	if err != nil {
		t.Fatal(err)
	}
	redirect := "https://localhost/callback?code=auth-code&state=" + url.QueryEscape(flow.state)
	token, err := flow.Complete(context.Background(), redirect)
	if err != nil {
		t.Fatal(err)
	}
	if token.AccessToken != "access-1" || token.RefreshToken != "refresh-1" {
		t.Errorf("unexpected token %+v", token)
	}
	if !token.IsValid() {
		t.Error("exchanged token should be valid")
	}
	if client.Token() != token {
		t.Error("exchanged token should be stored on the client")
	}
}

func TestExchangeFallsBackToChinaHost(t *testing.T) {
	for _, status := range []int{http.StatusFound, http.StatusForbidden} {
		t.Run(fmt.Sprintf("%d", status), func(t *testing.T) {
			client := newTestClient(t)
			httpmock.RegisterResponder(http.MethodPost, globalTokenURL, func(req *http.Request) (*http.Response, error) {
				resp := httpmock.NewStringResponse(status, "")
				resp.Header.Set("Location", chinaTokenURL)
				return resp, nil
			})
			httpmock.RegisterResponder(http.MethodPost, chinaTokenURL, func(req *http.Request) (*http.Response, error) {
				resp := httpmock.NewStringResponse(http.StatusOK, tokenJSON("cn-access"))
				resp.Header.Set("Content-Type", "application/json")
				return resp, nil
			})

			token, err := client.ExchangeCode(context.Background(), "auth-code", "verifier")
			if err != nil {
				t.Fatal(err)
			}
			if token.AccessToken != "cn-access" {
				t.Errorf("AccessToken = %q", token.AccessToken)
			}
			if client.currentAuthHost() != ChinaAuthHost {
				t.Error("client should pin to the China host after a successful fallback")
			}
			info := httpmock.GetCallCountInfo()
			if info["POST "+globalTokenURL] != 1 || info["POST "+chinaTokenURL] != 1 {
				t.Errorf("unexpected call counts: %v", info)
			}
		})
	}
}

func TestExchangeFallsBackOnlyOnce(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, globalTokenURL,
		httpmock.NewStringResponder(http.StatusForbidden, ""))
	httpmock.RegisterResponder(http.MethodPost, chinaTokenURL,
		httpmock.NewStringResponder(http.StatusForbidden, ""))

	_, err := client.ExchangeCode(context.Background(), "auth-code", "verifier")
	if err == nil {
		t.Fatal("expected an error")
	}
	info := httpmock.GetCallCountInfo()
	if info["POST "+globalTokenURL] != 1 || info["POST "+chinaTokenURL] != 1 {
		t.Errorf("each host should be tried exactly once: %v", info)
	}
}

func TestExchangeRejection(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, globalTokenURL,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error": "invalid_grant"}`))

	_, err := client.ExchangeCode(context.Background(), "stale-code", "verifier")
	var authErr *fleet.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %T: %v", err, err)
	}
	if authErr.Code != http.StatusUnauthorized {
		t.Errorf("Code = %d", authErr.Code)
	}
	if info := httpmock.GetCallCountInfo(); info["POST "+chinaTokenURL] != 0 {
		t.Error("a 401 must not trigger the China fallback")
	}
}

func TestExchangeServerError(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, globalTokenURL,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "upstream overloaded"))

	_, err := client.ExchangeCode(context.Background(), "auth-code", "verifier")
	var netErr *fleet.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("a 503 is not a credential problem, got %T: %v", err, err)
	}
	if !netErr.Temporary() {
		t.Error("a server error should be retryable")
	}
}

func TestRefreshWithoutToken(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.RefreshToken(context.Background()); !errors.Is(err, fleet.ErrNoTokenToRefresh) {
		t.Errorf("expected ErrNoTokenToRefresh, got %v", err)
	}
}

func TestRefreshFallsBackToChinaHost(t *testing.T) {
	client := newTestClient(t)
	client.ReuseToken(validToken("stale"))
	httpmock.RegisterResponder(http.MethodPost, globalTokenURL,
		httpmock.NewStringResponder(http.StatusForbidden, ""))
	httpmock.RegisterResponder(http.MethodPost, chinaTokenURL, func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(http.StatusOK, tokenJSON("cn-fresh"))
		resp.Header.Set("Content-Type", "application/json")
		return resp, nil
	})

	token, err := client.RefreshToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token.AccessToken != "cn-fresh" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
	info := httpmock.GetCallCountInfo()
	if info["POST "+globalTokenURL] != 1 || info["POST "+chinaTokenURL] != 1 {
		t.Errorf("each host should be tried exactly once: %v", info)
	}
}

func TestRefreshRejection(t *testing.T) {
	client := newTestClient(t)
	client.ReuseToken(validToken("stale"))
	httpmock.RegisterResponder(http.MethodPost, globalTokenURL,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error": "login_required"}`))

	_, err := client.RefreshToken(context.Background())
	var refreshErr *fleet.RefreshError
	if !errors.As(err, &refreshErr) {
		t.Fatalf("expected RefreshError, got %T: %v", err, err)
	}
}

func TestRefreshServerError(t *testing.T) {
	client := newTestClient(t)
	client.ReuseToken(validToken("stale"))
	httpmock.RegisterResponder(http.MethodPost, globalTokenURL,
		httpmock.NewStringResponder(http.StatusBadGateway, ""))

	_, err := client.RefreshToken(context.Background())
	var netErr *fleet.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("a 502 is not a credential problem, got %T: %v", err, err)
	}
}

func TestRefreshKeepsRefreshToken(t *testing.T) {
	client := newTestClient(t)
	client.ReuseToken(validToken("stale"))
	httpmock.RegisterResponder(http.MethodPost, globalTokenURL, func(req *http.Request) (*http.Response, error) {
		if err := req.ParseForm(); err != nil {
			return nil, err
		}
		if req.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", req.PostForm.Get("grant_type"))
		}
		// Some responses omit the rotated refresh token.
		resp := httpmock.NewStringResponse(http.StatusOK,
			`{"access_token": "fresh", "token_type": "Bearer", "expires_in": 28800}`)
		resp.Header.Set("Content-Type", "application/json")
		return resp, nil
	})

	token, err := client.RefreshToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token.AccessToken != "fresh" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
	if token.RefreshToken != "refresh-1" {
		t.Errorf("RefreshToken = %q, expected the previous one to be retained", token.RefreshToken)
	}
}

func TestCheckAuthentication(t *testing.T) {
	t.Run("valid token passes through", func(t *testing.T) {
		client := newTestClient(t)
		token := validToken("current")
		client.ReuseToken(token)
		got, err := client.CheckAuthentication(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got != token {
			t.Error("expected the stored token")
		}
		if httpmock.GetTotalCallCount() != 0 {
			t.Error("a valid token requires no network traffic")
		}
	})

	t.Run("expired token triggers refresh", func(t *testing.T) {
		client := newTestClient(t)
		stale := validToken("stale")
		stale.CreatedAt = time.Now().Add(-2 * time.Hour).Unix()
		client.ReuseToken(stale)
		httpmock.RegisterResponder(http.MethodPost, globalTokenURL, func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusOK, tokenJSON("fresh"))
			resp.Header.Set("Content-Type", "application/json")
			return resp, nil
		})
		got, err := client.CheckAuthentication(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got.AccessToken != "fresh" {
			t.Errorf("AccessToken = %q", got.AccessToken)
		}
	})

	t.Run("logged out", func(t *testing.T) {
		client := newTestClient(t)
		if _, err := client.CheckAuthentication(context.Background()); !errors.Is(err, fleet.ErrAuthenticationRequired) {
			t.Errorf("expected ErrAuthenticationRequired, got %v", err)
		}
	})

	t.Run("demo mode", func(t *testing.T) {
		httpClient := &http.Client{}
		httpmock.ActivateNonDefault(httpClient)
		defer httpmock.DeactivateAndReset()
		client := NewClient(Config{Demo: true, Client: httpClient})
		token, err := client.CheckAuthentication(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !token.IsValid() {
			t.Error("demo token should be valid")
		}
		if httpmock.GetTotalCallCount() != 0 {
			t.Error("demo mode must not touch the network")
		}
	})
}

func TestResolveRegion(t *testing.T) {
	client := newTestClient(t)
	access := encodedJWT(`{"aud": ["` + euFleetHost + `"]}`)
	client.ReuseToken(validToken(access))

	httpmock.RegisterResponder(http.MethodGet, euFleetHost+"/api/1/users/region",
		httpmock.NewStringResponder(http.StatusOK,
			`{"response": {"region": "eu", "fleet_api_base_url": "`+euFleetHost+`"}}`))

	region, err := client.ResolveRegion(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if region.Region != "eu" || region.FleetAPIBaseURL != euFleetHost {
		t.Errorf("unexpected region %+v", region)
	}
	if client.APIBaseURL() != euFleetHost {
		t.Errorf("APIBaseURL() = %q", client.APIBaseURL())
	}

	// Second resolution is served from the cache.
	if _, err := client.ResolveRegion(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := httpmock.GetTotalCallCount(); n != 1 {
		t.Errorf("expected one region lookup, got %d calls", n)
	}
}

func TestRegionClearedOnNewToken(t *testing.T) {
	client := newTestClient(t)
	access := encodedJWT(`{"aud": ["` + euFleetHost + `"]}`)
	client.ReuseToken(validToken(access))
	httpmock.RegisterResponder(http.MethodGet, euFleetHost+"/api/1/users/region",
		httpmock.NewStringResponder(http.StatusOK,
			`{"response": {"region": "eu", "fleet_api_base_url": "`+euFleetHost+`"}}`))
	if _, err := client.ResolveRegion(context.Background()); err != nil {
		t.Fatal(err)
	}
	if client.APIBaseURL() == "" {
		t.Fatal("region should be resolved")
	}

	client.ReuseToken(validToken(access))
	if client.APIBaseURL() != "" {
		t.Error("adopting a new token must clear the cached region")
	}
}

func TestBootstrapHost(t *testing.T) {
	tests := []struct {
		name   string
		access string
		want   string
	}{
		{"audience claim", encodedJWT(`{"aud": ["` + euFleetHost + `"]}`), euFleetHost},
		{
			"audience list with other entries",
			encodedJWT(`{"aud": ["https://auth.tesla.com/oauth2/v3", "` + euFleetHost + `"]}`),
			euFleetHost,
		},
		{"ou_code claim", encodedJWT(`{"ou_code": "EU"}`), euFleetHost},
		{"opaque token", "not-a-jwt", defaultFleetHost},
		{"no usable claims", encodedJWT(`{"sub": "abc"}`), defaultFleetHost},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := bootstrapHost(tc.access); got != tc.want {
				t.Errorf("bootstrapHost() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRevokeToken(t *testing.T) {
	client := newTestClient(t)
	client.ReuseToken(validToken("current"))
	httpmock.RegisterResponder(http.MethodPost, GlobalAuthHost+revokePath,
		httpmock.NewStringResponder(http.StatusOK, "{}"))

	accepted, err := client.RevokeToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !accepted {
		t.Error("expected the server to accept the revocation")
	}
	if client.Token() != nil {
		t.Error("revocation must discard the local token")
	}
}

func TestRevokeTokenDiscardsLocallyOnServerError(t *testing.T) {
	client := newTestClient(t)
	client.ReuseToken(validToken("current"))
	httpmock.RegisterResponder(http.MethodPost, GlobalAuthHost+revokePath,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	accepted, err := client.RevokeToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if accepted {
		t.Error("server did not accept the revocation")
	}
	if client.Token() != nil {
		t.Error("the local token is discarded regardless of the server's answer")
	}
}
