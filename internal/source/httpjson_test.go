package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestHTTPClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/items" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "pump" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-API-KEY") != "secret" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"ok","count":3}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL+"/", WithHeader("X-API-KEY", "secret"))
	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := c.GetJSON(context.Background(), "/v1/items", url.Values{"q": {"pump"}}, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "ok" || out.Count != 3 {
		t.Errorf("unexpected body %+v", out)
	}
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited},
		{"not found", http.StatusNotFound, `{}`, ErrNotFound},
		{"server error", http.StatusBadGateway, `oops`, ErrSourceUnavailable},
		{"forbidden", http.StatusForbidden, `{}`, ErrSourceUnavailable},
		{"bad json", http.StatusOK, `{"name":`, ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var out map[string]interface{}
			err := NewHTTPClient(server.URL).GetJSON(context.Background(), "/x", nil, &out)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHTTPClient_TransportErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	var out map[string]interface{}
	err := NewHTTPClient(addr).GetJSON(context.Background(), "/x", nil, &out)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestHTTPClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]interface{}
	err := NewHTTPClient(server.URL).GetJSON(ctx, "/x", nil, &out)
	if Classify(err) != OutcomeCancelled {
		t.Errorf("expected cancelled outcome, got %v", err)
	}
}
