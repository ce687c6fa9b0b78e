package fleet

import (
	"context"
	"net/http"

	"github.com/teslamotors/fleet-client/internal/log"
)

// TokenProvider supplies a bearer token and the regional Fleet API base URL for each request. The
// oauth package's Client implements it; the fleet client borrows tokens per call and never stores
// them.
type TokenProvider interface {
	// BearerToken returns a currently valid access token, refreshing if necessary.
	BearerToken(ctx context.Context) (string, error)
	// APIBaseURL returns the resolved regional base URL, or "" when the region is unknown.
	APIBaseURL() string
}

// Config collects the client's dependencies.
type Config struct {
	Tokens    TokenProvider
	UserAgent string
	Client    *http.Client
	// Simulator, when non-nil, answers requests for the demo vehicle locally.
	Simulator *Simulator
}

// Client issues vehicle data and command requests against the Fleet API.
type Client struct {
	tokens    TokenProvider
	executor  *Executor
	simulator *Simulator
}

func NewClient(config Config) *Client {
	return &Client{
		tokens:    config.Tokens,
		executor:  NewExecutor(config.Client, config.UserAgent),
		simulator: config.Simulator,
	}
}

// do runs the request template shared by all operations: borrow a token, check the region is
// resolved, then execute.
func (c *Client) do(ctx context.Context, ep Endpoint, body interface{}, out interface{}) error {
	token, err := c.tokens.BearerToken(ctx)
	if err != nil {
		return err
	}
	baseURL := c.tokens.APIBaseURL()
	if baseURL == "" {
		return ErrRegionUnresolved
	}
	return c.executor.Execute(ctx, baseURL, ep, body, token, out)
}

func (c *Client) isDemo(v *Vehicle) bool {
	return c.simulator != nil && v != nil && v.VIN == DemoVIN
}

// Vehicles lists the vehicles on the account. With a simulator configured the demo vehicle is
// appended to the live list; without credentials the demo vehicle alone is returned.
func (c *Client) Vehicles(ctx context.Context) ([]Vehicle, error) {
	var live ListResponse[Vehicle]
	err := c.do(ctx, vehiclesEndpoint(), nil, &live)
	if c.simulator == nil {
		return live.Response, err
	}
	if err != nil {
		log.Debug("Vehicle listing failed, serving demo vehicle only: %s", err)
		return c.simulator.Vehicles(), nil
	}
	return append(live.Response, c.simulator.Vehicles()...), nil
}

// Products lists everything on the account, vehicles and energy sites alike.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out ListResponse[Product]
	if err := c.do(ctx, productsEndpoint(), nil, &out); err != nil {
		return nil, err
	}
	return out.Response, nil
}

// Vehicle fetches the summary record for one vehicle without waking it.
func (c *Client) Vehicle(ctx context.Context, v *Vehicle) (*Vehicle, error) {
	if c.isDemo(v) {
		vehicles := c.simulator.Vehicles()
		return &vehicles[0], nil
	}
	var out Response[Vehicle]
	if err := c.do(ctx, vehicleSummaryEndpoint(v.Tag()), nil, &out); err != nil {
		return nil, err
	}
	return &out.Response, nil
}

// VehicleData fetches the vehicle's full state. The states argument narrows the response to the
// named state objects; nil requests everything. The vehicle must be awake.
func (c *Client) VehicleData(ctx context.Context, v *Vehicle, states ...string) (*Vehicle, error) {
	if c.isDemo(v) {
		data := c.simulator.VehicleData()
		return &data, nil
	}
	var out Response[Vehicle]
	if err := c.do(ctx, vehicleDataEndpoint(v.Tag(), states), nil, &out); err != nil {
		return nil, err
	}
	return &out.Response, nil
}

// MobileEnabled reports whether the vehicle allows mobile access.
func (c *Client) MobileEnabled(ctx context.Context, v *Vehicle) (bool, error) {
	if c.isDemo(v) {
		return true, nil
	}
	var out Response[bool]
	if err := c.do(ctx, mobileEnabledEndpoint(v.Tag()), nil, &out); err != nil {
		return false, err
	}
	return out.Response, nil
}

// WakeUp asks the vehicle to come online and returns the state the server reports. The returned
// state is usually still "asleep" or "offline" on the first call; poll until it reads "online"
// before requesting vehicle data.
func (c *Client) WakeUp(ctx context.Context, v *Vehicle) (string, error) {
	if c.isDemo(v) {
		return c.simulator.WakeUp(), nil
	}
	var out Response[Vehicle]
	if err := c.do(ctx, wakeUpEndpoint(v.Tag()), nil, &out); err != nil {
		return "", err
	}
	return out.Response.State, nil
}

// SendCommand posts a command to the vehicle. A non-nil error means the request did not go
// through; a response with Result false means the vehicle refused, with the reason attached.
func (c *Client) SendCommand(ctx context.Context, v *Vehicle, cmd Command) (CommandResponse, error) {
	if c.isDemo(v) {
		return c.simulator.Apply(cmd), nil
	}
	var out Response[CommandResponse]
	if err := c.do(ctx, commandEndpoint(v.Tag(), cmd), cmd.Body(), &out); err != nil {
		return CommandResponse{}, err
	}
	return out.Response, nil
}

// NearbyChargingSites lists charging locations near the vehicle.
func (c *Client) NearbyChargingSites(ctx context.Context, v *Vehicle) (*ChargingSites, error) {
	if c.isDemo(v) {
		return &ChargingSites{}, nil
	}
	var out Response[ChargingSites]
	if err := c.do(ctx, nearbyChargingSitesEndpoint(v.Tag()), nil, &out); err != nil {
		return nil, err
	}
	return &out.Response, nil
}

// RecentAlerts returns the vehicle's recent alert log.
func (c *Client) RecentAlerts(ctx context.Context, v *Vehicle) ([]VehicleAlert, error) {
	if c.isDemo(v) {
		return nil, nil
	}
	var out Response[recentAlertsResponse]
	if err := c.do(ctx, recentAlertsEndpoint(v.Tag()), nil, &out); err != nil {
		return nil, err
	}
	return out.Response.RecentAlerts, nil
}

// ChargingHistory returns the account's charging sessions, optionally filtered to one VIN.
func (c *Client) ChargingHistory(ctx context.Context, vin string) ([]ChargingSession, error) {
	if c.simulator != nil && vin == DemoVIN {
		return nil, nil
	}
	var out chargingHistoryResponse
	if err := c.do(ctx, chargingHistoryEndpoint(vin), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// OptionCodes decodes a vehicle's factory option codes.
func (c *Client) OptionCodes(ctx context.Context, vin string) ([]OptionCode, error) {
	if c.simulator != nil && vin == DemoVIN {
		return nil, nil
	}
	var out optionCodesResponse
	if err := c.do(ctx, optionCodesEndpoint(vin), nil, &out); err != nil {
		return nil, err
	}
	return out.Codes, nil
}

// User fetches the authenticated account's profile.
func (c *Client) User(ctx context.Context) (*User, error) {
	var out Response[User]
	if err := c.do(ctx, userEndpoint(), nil, &out); err != nil {
		return nil, err
	}
	return &out.Response, nil
}

// TripPlan asks the trip planner for a charging-aware route.
func (c *Client) TripPlan(ctx context.Context, req TripPlanRequest) (*TripPlan, error) {
	var out TripPlan
	if err := c.do(ctx, tripPlanEndpoint(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
