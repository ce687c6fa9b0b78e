package fleet

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestType tags an endpoint for caller-side metering. Tesla bills charging commands and
// general commands under separate Fleet API quotas.
type RequestType int

const (
	RequestGeneral RequestType = iota
	RequestData
	RequestCharging
	RequestWake
)

// Endpoint describes a single REST call: method, concrete path, and query parameters. The set of
// endpoints is closed; construct them with the functions below rather than by hand.
type Endpoint struct {
	Method string
	Path   string
	Query  url.Values
	Type   RequestType
}

func vehiclesEndpoint() Endpoint {
	return Endpoint{Method: http.MethodGet, Path: "/api/1/vehicles", Type: RequestData}
}

func productsEndpoint() Endpoint {
	return Endpoint{Method: http.MethodGet, Path: "/api/1/products", Type: RequestData}
}

func vehicleSummaryEndpoint(id string) Endpoint {
	return Endpoint{Method: http.MethodGet, Path: "/api/1/vehicles/" + id, Type: RequestData}
}

func vehicleDataEndpoint(id string, states []string) Endpoint {
	ep := Endpoint{Method: http.MethodGet, Path: fmt.Sprintf("/api/1/vehicles/%s/vehicle_data", id), Type: RequestData}
	if len(states) > 0 {
		ep.Query = url.Values{"endpoints": []string{strings.Join(states, ";")}}
	}
	return ep
}

func mobileEnabledEndpoint(id string) Endpoint {
	return Endpoint{Method: http.MethodGet, Path: fmt.Sprintf("/api/1/vehicles/%s/mobile_enabled", id), Type: RequestData}
}

func wakeUpEndpoint(id string) Endpoint {
	return Endpoint{Method: http.MethodPost, Path: fmt.Sprintf("/api/1/vehicles/%s/wake_up", id), Type: RequestWake}
}

func commandEndpoint(id string, cmd Command) Endpoint {
	return Endpoint{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/api/1/vehicles/%s/command/%s", id, cmd.Name()),
		Type:   cmd.RequestType(),
	}
}

func nearbyChargingSitesEndpoint(id string) Endpoint {
	return Endpoint{Method: http.MethodGet, Path: fmt.Sprintf("/api/1/vehicles/%s/nearby_charging_sites", id), Type: RequestData}
}

func recentAlertsEndpoint(id string) Endpoint {
	return Endpoint{Method: http.MethodGet, Path: fmt.Sprintf("/api/1/vehicles/%s/recent_alerts", id), Type: RequestData}
}

// RegionEndpoint names the region lookup. Exported because the lookup runs against a bootstrap
// host before the client has a resolved base URL.
func RegionEndpoint() Endpoint {
	return Endpoint{Method: http.MethodGet, Path: "/api/1/users/region", Type: RequestData}
}

func userEndpoint() Endpoint {
	return Endpoint{Method: http.MethodGet, Path: "/api/1/users/me", Type: RequestData}
}

func chargingHistoryEndpoint(vin string) Endpoint {
	ep := Endpoint{Method: http.MethodGet, Path: "/api/1/dx/charging/history", Type: RequestData}
	if vin != "" {
		ep.Query = url.Values{"vin": []string{vin}}
	}
	return ep
}

func optionCodesEndpoint(vin string) Endpoint {
	return Endpoint{
		Method: http.MethodGet,
		Path:   "/api/1/dx/vehicles/options",
		Query:  url.Values{"vin": []string{vin}},
		Type:   RequestData,
	}
}

func tripPlanEndpoint() Endpoint {
	return Endpoint{Method: http.MethodPost, Path: "/trip-planner/api/v1/tripplan", Type: RequestData}
}

// PartnerAccountsEndpoint names partner account registration. Exported because registration is
// performed with a partner token rather than a user session.
func PartnerAccountsEndpoint() Endpoint {
	return Endpoint{Method: http.MethodPost, Path: "/api/1/partner_accounts", Type: RequestGeneral}
}
