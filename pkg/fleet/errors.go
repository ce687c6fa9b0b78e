package fleet

import (
	"errors"
	"fmt"
	"net/http"
)

// Error exposes methods useful for categorizing REST API failures.
type Error interface {
	error

	// Temporary returns true if the failure might be the result of a transient condition, such as
	// the vehicle waking from sleep or server-side rate limiting.
	Temporary() bool
}

var (
	// ErrAuthenticationRequired indicates no usable credentials are available. The client must run
	// (or re-run) the login flow.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrNoTokenToRefresh indicates a refresh was requested without a stored refresh token.
	ErrNoTokenToRefresh = errors.New("no token to refresh")
	// ErrRegionUnresolved indicates a Fleet API request was attempted before the account's
	// regional base URL was resolved.
	ErrRegionUnresolved = errors.New("fleet API base URL not resolved; call ResolveRegion first")
	// ErrVehicleUnavailable indicates the vehicle is offline or asleep and must be woken before it
	// can answer data requests.
	ErrVehicleUnavailable = &APIError{Code: http.StatusRequestTimeout, Message: "vehicle unavailable: vehicle is offline or asleep"}
)

// AuthenticationError indicates the server rejected the client's credentials, either during a
// token operation or because a request carried an invalid bearer token.
type AuthenticationError struct {
	Code    int
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return "authentication failed: " + e.Message
}

func (e *AuthenticationError) Temporary() bool { return false }

// RefreshError indicates a refresh-token exchange was rejected. The stored refresh token is no
// longer usable and the client must re-authenticate.
type RefreshError struct {
	Code    int
	Message string
}

func (e *RefreshError) Error() string {
	if e.Message == "" {
		return "token refresh failed"
	}
	return "token refresh failed: " + e.Message
}

func (e *RefreshError) Temporary() bool { return false }

// ParseError indicates the server returned a success status but the body could not be decoded
// into the expected response shape.
type ParseError struct {
	Code int
	Body []byte
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse server response (HTTP %d): %s", e.Code, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Temporary() bool { return false }

// APIError carries a structured error returned by the REST API.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return e.Message
}

func (e *APIError) Temporary() bool {
	return e.Code == http.StatusServiceUnavailable ||
		e.Code == http.StatusGatewayTimeout ||
		e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests ||
		e.Code == http.StatusMisdirectedRequest
}

// NetworkError indicates a transport failure or a response the client could not classify.
type NetworkError struct {
	Code int
	Body string
	Err  error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return "network error: " + e.Err.Error()
	}
	if e.Body != "" {
		return fmt.Sprintf("network error (HTTP %d): %s", e.Code, e.Body)
	}
	return fmt.Sprintf("network error (HTTP %d)", e.Code)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Temporary() bool { return true }

// Temporary returns true if err indicates a failure that may resolve on its own, such as a
// sleeping vehicle or an overloaded server.
func Temporary(err error) bool {
	var fleetErr Error
	if errors.As(err, &fleetErr) {
		return fleetErr.Temporary()
	}
	return false
}
