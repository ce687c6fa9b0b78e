package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teslamotors/fleet-client/internal/log"
)

// MaxResponseLength caps how many bytes the executor reads from a response body.
const MaxResponseLength = 512 * 1024

// DefaultTimeout is applied to the executor's HTTP client when the caller does not supply one.
const DefaultTimeout = 30 * time.Second

// ErrorMessage is the structured error payload returned by the REST API on failure statuses.
type ErrorMessage struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// Statuses for which the API returns a structured error payload. Anything outside this set (and
// outside 200/201) is classified from headers alone.
var errorStatuses = map[int]bool{
	400: true, 401: true, 402: true, 403: true, 404: true, 405: true, 406: true,
	408: true, 412: true, 418: true, 421: true, 422: true, 423: true, 429: true,
	451: true, 499: true, 500: true, 503: true, 504: true, 540: true,
}

// invalidBearerMessage is the error string the Fleet API returns when the access token was
// rejected. It gets its own error type so callers can trigger a re-login instead of retrying.
const invalidBearerMessage = "invalid bearer token"

// Executor builds and sends a single HTTP request and decodes a typed response or classifies the
// failure. It performs no retries; retry policy belongs to callers (the one exception, the CN
// auth-host fallback, lives in the oauth package).
type Executor struct {
	Client    *http.Client
	UserAgent string
}

func NewExecutor(client *http.Client, userAgent string) *Executor {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Executor{Client: client, UserAgent: userAgent}
}

func readWithContext(ctx context.Context, r io.Reader, p []byte) ([]byte, error) {
	bytesRead := 0
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n, err := r.Read(p[bytesRead:])
		bytesRead += n
		if err == io.EOF {
			return p[:bytesRead], nil
		}
		if err != nil {
			return p[:bytesRead], err
		}
		if bytesRead == len(p) {
			return p[:bytesRead], nil
		}
	}
}

// Execute sends the request described by ep against baseURL, setting a bearer header when token
// is non-empty and serializing body as JSON when non-nil. On 200/201 the response body is decoded
// into out (which may be nil when the caller discards the body).
func (e *Executor) Execute(ctx context.Context, baseURL string, ep Endpoint, body interface{}, token string, out interface{}) error {
	requestURL := strings.TrimSuffix(baseURL, "/") + ep.Path
	if len(ep.Query) > 0 {
		requestURL += "?" + ep.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &NetworkError{Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, ep.Method, requestURL, reader)
	if err != nil {
		return &NetworkError{Err: err}
	}
	request.Header.Set("User-Agent", e.UserAgent)
	request.Header.Set("Accept", "*/*")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug("Sending %s %s", ep.Method, requestURL)
	response, err := e.Client.Do(request)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer response.Body.Close()

	payload := make([]byte, MaxResponseLength+1)
	payload, err = readWithContext(ctx, response.Body, payload)
	if err != nil {
		return &NetworkError{Code: response.StatusCode, Err: err}
	}
	if len(payload) == MaxResponseLength+1 {
		return &NetworkError{Code: response.StatusCode, Body: "response exceeds maximum length"}
	}
	log.Debug("Server returned %d: %s: %s", response.StatusCode, http.StatusText(response.StatusCode), payload)

	switch response.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return &ParseError{Code: response.StatusCode, Body: payload, Err: err}
		}
		return nil
	}
	return classifyError(response, payload)
}

func classifyError(response *http.Response, payload []byte) error {
	// A WWW-Authenticate challenge naming invalid_token means the session is dead no matter what
	// status or body came with it.
	if challenge := response.Header.Get("Www-Authenticate"); strings.Contains(challenge, "invalid_token") {
		return ErrAuthenticationRequired
	}

	var message ErrorMessage
	decoded := json.Unmarshal(payload, &message) == nil && message.Error != ""

	if errorStatuses[response.StatusCode] {
		if decoded {
			if message.Error == invalidBearerMessage {
				return &AuthenticationError{Code: response.StatusCode, Message: message.Error}
			}
			return &APIError{Code: response.StatusCode, Message: message.Error}
		}
		return &APIError{Code: response.StatusCode, Message: strings.TrimSpace(string(payload))}
	}

	if decoded {
		return &NetworkError{Code: response.StatusCode, Body: message.Error}
	}
	return &NetworkError{Code: response.StatusCode, Body: strings.TrimSpace(string(payload))}
}
