package fleet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeResponse struct {
	status  int
	headers map[string]string
	body    string
}

func serve(t *testing.T, resp fakeResponse) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range resp.headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.status)
		w.Write([]byte(resp.body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExecuteSuccess(t *testing.T) {
	server := serve(t, fakeResponse{status: http.StatusOK, body: `{"response": {"result": true, "reason": ""}}`})
	executor := NewExecutor(nil, "")
	var out Response[CommandResponse]
	err := executor.Execute(context.Background(), server.URL, commandEndpoint("123", FlashLights), nil, "token", &out)
	if err != nil {
		t.Fatalf("Execute returned error: %s", err)
	}
	if !out.Response.Result {
		t.Error("Expected result true")
	}
}

func TestExecuteSendsHeaders(t *testing.T) {
	var gotAuth, gotAgent, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"response": null}`))
	}))
	defer server.Close()

	executor := NewExecutor(nil, "unit-test-agent")
	err := executor.Execute(context.Background(), server.URL, commandEndpoint("123", SetChargeLimit{Percent: 80}), SetChargeLimit{Percent: 80}.Body(), "secret", nil)
	if err != nil {
		t.Fatalf("Execute returned error: %s", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAgent != "unit-test-agent" {
		t.Errorf("User-Agent = %q", gotAgent)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestExecuteErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		response fakeResponse
		check    func(t *testing.T, err error)
	}{
		{
			name: "invalid_token challenge",
			response: fakeResponse{
				status:  http.StatusUnauthorized,
				headers: map[string]string{"Www-Authenticate": `Bearer realm="auth", error="invalid_token"`},
				body:    `{"error": "something else entirely"}`,
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrAuthenticationRequired) {
					t.Errorf("expected ErrAuthenticationRequired, got %v", err)
				}
			},
		},
		{
			name: "invalid_token challenge overrides status outside the enumerated set",
			response: fakeResponse{
				status:  http.StatusTeapot + 100, // 518, unmapped
				headers: map[string]string{"Www-Authenticate": `error="invalid_token"`},
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrAuthenticationRequired) {
					t.Errorf("expected ErrAuthenticationRequired, got %v", err)
				}
			},
		},
		{
			name:     "invalid bearer token body",
			response: fakeResponse{status: http.StatusUnauthorized, body: `{"error": "invalid bearer token"}`},
			check: func(t *testing.T, err error) {
				var authErr *AuthenticationError
				if !errors.As(err, &authErr) {
					t.Fatalf("expected AuthenticationError, got %T: %v", err, err)
				}
				if authErr.Code != http.StatusUnauthorized {
					t.Errorf("Code = %d", authErr.Code)
				}
			},
		},
		{
			name:     "structured API error",
			response: fakeResponse{status: http.StatusRequestTimeout, body: `{"error": "vehicle unavailable: vehicle is offline or asleep"}`},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected APIError, got %T: %v", err, err)
				}
				if !apiErr.Temporary() {
					t.Error("408 should be temporary")
				}
			},
		},
		{
			name:     "rate limited",
			response: fakeResponse{status: http.StatusTooManyRequests, body: `{"error": "rate limited"}`},
			check: func(t *testing.T, err error) {
				if !Temporary(err) {
					t.Error("429 should be temporary")
				}
			},
		},
		{
			name:     "mapped status with unstructured body",
			response: fakeResponse{status: http.StatusNotFound, body: "not found"},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected APIError, got %T: %v", err, err)
				}
				if apiErr.Temporary() {
					t.Error("404 should not be temporary")
				}
			},
		},
		{
			name:     "unmapped status",
			response: fakeResponse{status: 502, body: "bad gateway"},
			check: func(t *testing.T, err error) {
				var netErr *NetworkError
				if !errors.As(err, &netErr) {
					t.Fatalf("expected NetworkError, got %T: %v", err, err)
				}
				if !netErr.Temporary() {
					t.Error("network errors are temporary")
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := serve(t, tc.response)
			executor := NewExecutor(nil, "")
			err := executor.Execute(context.Background(), server.URL, vehiclesEndpoint(), nil, "token", nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			tc.check(t, err)
		})
	}
}

func TestExecuteParseError(t *testing.T) {
	server := serve(t, fakeResponse{status: http.StatusOK, body: "<html>login</html>"})
	executor := NewExecutor(nil, "")
	var out Response[Vehicle]
	err := executor.Execute(context.Background(), server.URL, vehiclesEndpoint(), nil, "token", &out)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if parseErr.Temporary() {
		t.Error("parse errors are not temporary")
	}
}

func TestExecuteNetworkFailure(t *testing.T) {
	executor := NewExecutor(nil, "")
	err := executor.Execute(context.Background(), "http://127.0.0.1:1", vehiclesEndpoint(), nil, "token", nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
}

func TestExecuteContextCancellation(t *testing.T) {
	server := serve(t, fakeResponse{status: http.StatusOK, body: `{}`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	executor := NewExecutor(nil, "")
	if err := executor.Execute(ctx, server.URL, vehiclesEndpoint(), nil, "token", nil); err == nil {
		t.Fatal("expected an error from a canceled context")
	}
}
