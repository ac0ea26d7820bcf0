package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/source"
)

func newTestClient(url string) *Client {
	return New(Options{APIKey: "demo", BaseURL: url, Guard: source.NewGuard(Name, source.GuardConfig{}, nil)})
}

func TestClient_Enrich(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/binance-smart-chain/contract/0xabc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-cg-demo-api-key") != "demo" {
			t.Error("missing api key header")
		}
		w.Write([]byte(`{"id":"dog","symbol":"dog","name":"Dog",
			"links":{"twitter_screen_name":"dogcoin"},
			"community_data":{"twitter_followers":2500,"telegram_channel_user_count":null}}`))
	}))
	defer server.Close()

	attrs, err := newTestClient(server.URL).Enrich(context.Background(), &domain.Candidate{Chain: domain.ChainBSC, Address: "0xabc"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if attrs.TwitterHandle != "dogcoin" {
		t.Errorf("unexpected handle %q", attrs.TwitterHandle)
	}
	if attrs.TwitterFollowers == nil || *attrs.TwitterFollowers != 2500 {
		t.Errorf("unexpected followers %v", attrs.TwitterFollowers)
	}
	if attrs.TelegramMembers != nil {
		t.Errorf("null telegram count must stay absent, got %v", *attrs.TelegramMembers)
	}
}

func TestClient_Enrich_NotListed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"coin not found"}`))
	}))
	defer server.Close()

	attrs, err := newTestClient(server.URL).Enrich(context.Background(), &domain.Candidate{Chain: domain.ChainSolana, Address: "Mint"})
	if err != nil {
		t.Fatalf("unlisted coin must not error: %v", err)
	}
	if attrs.TwitterFollowers != nil {
		t.Error("expected absent followers")
	}
}

func TestClient_Enrich_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Enrich(context.Background(), &domain.Candidate{Chain: domain.ChainSolana, Address: "Mint"})
	if !errors.Is(err, source.ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}
