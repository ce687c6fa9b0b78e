package oauth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/teslamotors/fleet-client/internal/log"
	"github.com/teslamotors/fleet-client/pkg/fleet"
)

const defaultFleetHost = "https://fleet-api.prd.na.vn.cloud.tesla.com"

// remoteServiceSuffix limits bootstrap hosts read out of a token to Tesla-controlled domains.
const remoteServiceSuffix = ".tesla.com"

// bootstrapHost extracts a Fleet API host from the access token's audience claims. The signature
// is deliberately not verified; the token is the client's own and the host it names is only used
// to ask the server which region actually serves the account.
func bootstrapHost(accessToken string) string {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		log.Debug("Access token is not a parsable JWT, using default Fleet API host: %s", err)
		return defaultFleetHost
	}
	audience, err := claims.GetAudience()
	if err == nil {
		for _, aud := range audience {
			host := strings.TrimPrefix(aud, "https://")
			host = strings.TrimSuffix(host, "/")
			if strings.HasPrefix(host, "fleet-api.") && strings.HasSuffix(host, remoteServiceSuffix) {
				return "https://" + host
			}
		}
	}
	if ouCode, ok := claims["ou_code"].(string); ok && ouCode != "" {
		return fmt.Sprintf("https://fleet-api.prd.%s.vn.cloud.tesla.com", strings.ToLower(ouCode))
	}
	return defaultFleetHost
}

// ResolveRegion asks the server which regional Fleet API host serves the account and caches the
// answer. The lookup itself is bootstrapped from the access token's audience claim. Call it after
// every login or refresh; acquiring a token clears the cache.
func (c *Client) ResolveRegion(ctx context.Context) (*fleet.RegionInfo, error) {
	c.mu.Lock()
	cached := c.region
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	token, err := c.CheckAuthentication(ctx)
	if err != nil {
		return nil, err
	}

	executor := fleet.NewExecutor(c.httpClient, "")
	var out fleet.Response[fleet.RegionInfo]
	ep := fleet.RegionEndpoint()
	if err := executor.Execute(ctx, bootstrapHost(token.AccessToken), ep, nil, token.AccessToken, &out); err != nil {
		return nil, err
	}
	if out.Response.FleetAPIBaseURL == "" {
		return nil, &fleet.ParseError{Err: fmt.Errorf("region lookup returned no base URL")}
	}
	region := out.Response

	c.mu.Lock()
	c.region = &region
	c.mu.Unlock()
	log.Info("Account region resolved to %s (%s)", region.Region, region.FleetAPIBaseURL)
	return &region, nil
}

// APIBaseURL implements fleet.TokenProvider. It returns the cached regional base URL, or "" when
// the region has not been resolved since the last token change.
func (c *Client) APIBaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.region == nil {
		return ""
	}
	return c.region.FleetAPIBaseURL
}
