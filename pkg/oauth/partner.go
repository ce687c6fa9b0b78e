package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/teslamotors/fleet-client/pkg/fleet"
)

// PartnerConfig identifies a Fleet API business application. Partner tokens authenticate the
// application itself, not a user account.
type PartnerConfig struct {
	ClientID     string
	ClientSecret string
	// Audience is the regional Fleet API base URL the token will be used against.
	Audience string
	// AuthHost defaults to GlobalAuthHost.
	AuthHost string
	Client   *http.Client
}

// PartnerToken obtains an application token through the client-credentials grant.
func PartnerToken(ctx context.Context, config PartnerConfig) (*AuthToken, error) {
	host := config.AuthHost
	if host == "" {
		host = GlobalAuthHost
	}
	cc := clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     host + tokenPath,
		Scopes:       []string{"openid", "vehicle_device_data", "vehicle_cmds", "vehicle_charging_cmds"},
		EndpointParams: map[string][]string{
			"audience": {config.Audience},
		},
	}
	if config.Client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, config.Client)
	}
	tok, err := cc.Token(ctx)
	if err != nil {
		return nil, authError(err)
	}
	return fromOAuth2(tok), nil
}

// RegisterPartnerAccount registers the application's public-key domain with a region. The Fleet
// API refuses vehicle traffic from partner applications that have not registered.
func RegisterPartnerAccount(ctx context.Context, config PartnerConfig, token *AuthToken, domain string) error {
	executor := fleet.NewExecutor(config.Client, "")
	body := map[string]string{"domain": domain}
	return executor.Execute(ctx, config.Audience, fleet.PartnerAccountsEndpoint(), body, token.AccessToken, nil)
}
