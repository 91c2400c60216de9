package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientConfig_NoToken(t *testing.T) {
	cfg := HTTPClientConfig("jupyter", "http://localhost:4040/mcp", "")

	if cfg.Name != "jupyter" {
		t.Errorf("Name = %q, want jupyter", cfg.Name)
	}
	if cfg.ClientOptions.StreamableHTTP == nil {
		t.Fatal("StreamableHTTP config not set")
	}
	if got := cfg.ClientOptions.StreamableHTTP.BaseURL; got != "http://localhost:4040/mcp" {
		t.Errorf("BaseURL = %q", got)
	}
	if cfg.ClientOptions.StreamableHTTP.HTTPClient != http.DefaultClient {
		t.Error("expected default HTTP client when no token is set")
	}
}

func TestTokenTransport_SetsAuthorizationHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := HTTPClientConfig("jupyter", srv.URL, "secret-token")
	client := cfg.ClientOptions.StreamableHTTP.HTTPClient

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_ = resp.Body.Close()

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want Bearer secret-token", gotAuth)
	}
}

func TestTokenTransport_DoesNotMutateOriginalRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	tr := &tokenTransport{token: "tok", base: http.DefaultTransport}
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	_ = resp.Body.Close()

	if req.Header.Get("Authorization") != "" {
		t.Error("original request was mutated")
	}
}
