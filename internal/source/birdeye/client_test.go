package birdeye

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/source"
)

func newTestClient(url string) *Client {
	return New(Options{
		APIKey:  "key",
		BaseURL: url,
		Guard:   source.NewGuard(Name, source.GuardConfig{}, nil),
	})
}

func TestClient_Enrich(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "key" || r.Header.Get("x-chain") != "solana" {
			t.Errorf("missing headers: %v", r.Header)
		}
		if r.URL.Query().Get("address") != "MintA" {
			t.Errorf("unexpected address %s", r.URL.Query().Get("address"))
		}
		switch r.URL.Path {
		case "/defi/token_overview":
			w.Write([]byte(`{"success":true,"data":{"holder":420,"supply":1000000}}`))
		case "/defi/v3/token/holder":
			w.Write([]byte(`{"success":true,"data":{"items":[
				{"owner":"a","ui_amount":100000},
				{"owner":"b","ui_amount":50000},
				{"owner":"c","ui_amount":30000},
				{"owner":"d","ui_amount":15000},
				{"owner":"e","ui_amount":5000}
			]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	attrs, err := newTestClient(server.URL).Enrich(context.Background(), &domain.Candidate{Chain: domain.ChainSolana, Address: "MintA"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if attrs.HolderCount == nil || *attrs.HolderCount != 420 {
		t.Errorf("unexpected holder count %v", attrs.HolderCount)
	}
	if attrs.Top1HolderPct == nil || math.Abs(*attrs.Top1HolderPct-10) > 1e-9 {
		t.Errorf("unexpected top1 %v", attrs.Top1HolderPct)
	}
	if attrs.Top5HolderPct == nil || math.Abs(*attrs.Top5HolderPct-20) > 1e-9 {
		t.Errorf("unexpected top5 %v", attrs.Top5HolderPct)
	}
}

func TestClient_Enrich_HolderListFailureKeepsCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/defi/token_overview" {
			w.Write([]byte(`{"success":true,"data":{"holder":12,"supply":500}}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	attrs, err := newTestClient(server.URL).Enrich(context.Background(), &domain.Candidate{Address: "MintA"})
	if !errors.Is(err, source.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if attrs == nil || attrs.HolderCount == nil || *attrs.HolderCount != 12 {
		t.Errorf("holder count must survive a holder list failure: %+v", attrs)
	}
	if attrs.Top1HolderPct != nil {
		t.Error("top holder pct must stay absent")
	}
}

func TestClient_Enrich_Unsuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"Unauthorized"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Enrich(context.Background(), &domain.Candidate{Address: "MintA"})
	if !errors.Is(err, source.ErrInvalidData) {
		t.Errorf("expected ErrInvalidData, got %v", err)
	}
}

func TestClient_Enrich_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	attrs, err := newTestClient(server.URL).Enrich(context.Background(), &domain.Candidate{Address: "MintA"})
	if err != nil {
		t.Fatalf("not found must not error: %v", err)
	}
	if attrs.HolderCount != nil {
		t.Error("expected absent holder count")
	}
}

func TestConcentration(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name       string
		items      []holderItem
		supply     float64
		top1, top5 float64
		ok         bool
	}{
		{"empty", nil, 100, 0, 0, false},
		{"fewer than five", []holderItem{{UIAmount: f(30)}, {UIAmount: f(20)}}, 100, 30, 50, true},
		{"more than five", []holderItem{{UIAmount: f(10)}, {UIAmount: f(10)}, {UIAmount: f(10)}, {UIAmount: f(10)}, {UIAmount: f(10)}, {UIAmount: f(10)}}, 100, 10, 50, true},
		{"missing amount", []holderItem{{UIAmount: nil}}, 100, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			top1, top5, ok := concentration(tt.items, tt.supply)
			if ok != tt.ok || math.Abs(top1-tt.top1) > 1e-9 || math.Abs(top5-tt.top5) > 1e-9 {
				t.Errorf("got (%v, %v, %v), want (%v, %v, %v)", top1, top5, ok, tt.top1, tt.top5, tt.ok)
			}
		})
	}
}
