package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/source"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func createdAgo(d time.Duration) int64 {
	return testNow.Add(-d).UnixMilli()
}

func newTestClient(url string, queries map[domain.Chain][]string) *Client {
	c := New(Options{
		BaseURL: url,
		Queries: queries,
		Guard:   source.NewGuard(Name, source.GuardConfig{}, nil),
	})
	c.now = func() time.Time { return testNow }
	return c
}

func TestClient_Discover(t *testing.T) {
	body := fmt.Sprintf(`{"schemaVersion":"1.0.0","pairs":[
		{"chainId":"solana","dexId":"raydium","pairAddress":"pairA1","baseToken":{"address":"MintA","name":"Alpha","symbol":"ALP"},
		 "priceUsd":"0.0012","liquidity":{"usd":50000},"fdv":120000,"pairCreatedAt":%d,
		 "volume":{"h1":10000},"txns":{"m5":{"buys":12,"sells":3}},
		 "info":{"socials":[{"type":"twitter","url":"https://x.com/alpha_coin"}]}},
		{"chainId":"solana","dexId":"orca","pairAddress":"pairA2","baseToken":{"address":"MintA","symbol":"ALP"},
		 "priceUsd":"0.0011","liquidity":{"usd":9000},"pairCreatedAt":%d},
		{"chainId":"solana","pairAddress":"pairOld","baseToken":{"address":"MintOld"},
		 "priceUsd":"1","liquidity":{"usd":90000},"pairCreatedAt":%d},
		{"chainId":"solana","pairAddress":"pairNoLiq","baseToken":{"address":"MintNoLiq"},
		 "priceUsd":"1","pairCreatedAt":%d},
		{"chainId":"solana","pairAddress":"pairNoPrice","baseToken":{"address":"MintNoPrice"},
		 "liquidity":{"usd":9000},"pairCreatedAt":%d},
		{"chainId":"ethereum","pairAddress":"pairEth","baseToken":{"address":"0xabc"},
		 "priceUsd":"1","liquidity":{"usd":9000},"pairCreatedAt":%d}
	]}`,
		createdAgo(5*time.Minute), createdAgo(7*time.Minute), createdAgo(3*time.Hour),
		createdAgo(time.Minute), createdAgo(time.Minute), createdAgo(time.Minute))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/dex/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	defer server.Close()

	client := newTestClient(server.URL, map[domain.Chain][]string{domain.ChainSolana: {"raydium solana"}})
	got, err := client.Discover(context.Background(), domain.ChainSolana, 60)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(got), got)
	}
	c := got[0]
	if c.Address != "MintA" || c.PairAddress != "pairA1" {
		t.Errorf("expected most liquid MintA pair, got %s/%s", c.Address, c.PairAddress)
	}
	if c.PriceUSD != 0.0012 || c.LiquidityUSD != 50000 {
		t.Errorf("unexpected market data %v/%v", c.PriceUSD, c.LiquidityUSD)
	}
	if c.FDVUSD == nil || *c.FDVUSD != 120000 {
		t.Errorf("unexpected fdv %v", c.FDVUSD)
	}
	if c.AgeMinutes != 5 {
		t.Errorf("expected age 5, got %d", c.AgeMinutes)
	}
	if c.VolumeUSD1h != 10000 || c.Trades5m != 15 || c.Buyers5m != 12 || c.Sellers5m != 3 {
		t.Errorf("unexpected volume attributes %+v", c)
	}
	if c.TwitterHandle != "alpha_coin" {
		t.Errorf("unexpected twitter handle %q", c.TwitterHandle)
	}
	if c.HolderCount != nil || c.MintAuthorityRevoked.Known() {
		t.Error("enrichment attributes must be absent after discovery")
	}
	if len(c.Sources) != 1 || c.Sources[0] != Name {
		t.Errorf("unexpected sources %v", c.Sources)
	}
}

func TestClient_Discover_MultipleQueriesDedup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		liq := 1000
		if r.URL.Query().Get("q") == "second" {
			liq = 5000
		}
		fmt.Fprintf(w, `{"pairs":[{"chainId":"bsc","pairAddress":"p-%d","baseToken":{"address":"0xABC"},"priceUsd":"1","liquidity":{"usd":%d},"pairCreatedAt":%d}]}`,
			liq, liq, createdAgo(2*time.Minute))
	}))
	defer server.Close()

	client := newTestClient(server.URL, map[domain.Chain][]string{domain.ChainBSC: {"first", "second"}})
	got, err := client.Discover(context.Background(), domain.ChainBSC, 60)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Address != "0xabc" {
		t.Errorf("EVM address must be lower-cased, got %s", got[0].Address)
	}
	if got[0].LiquidityUSD != 5000 {
		t.Errorf("expected most liquid pair, got %v", got[0].LiquidityUSD)
	}
}

func TestClient_Discover_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"pairs":[{"chainId":"solana","baseToken":{"address":"MintB"},"priceUsd":"1","liquidity":{"usd":4000},"pairCreatedAt":%d}]}`,
			createdAgo(time.Minute))
	}))
	defer server.Close()

	client := newTestClient(server.URL, map[domain.Chain][]string{domain.ChainSolana: {"broken", "ok"}})
	got, err := client.Discover(context.Background(), domain.ChainSolana, 60)
	if err != nil {
		t.Fatalf("partial failure must not error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 candidate, got %d", len(got))
	}
}

func TestClient_Discover_AllFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL, map[domain.Chain][]string{domain.ChainSolana: {"q"}})
	_, err := client.Discover(context.Background(), domain.ChainSolana, 60)
	if !errors.Is(err, source.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestClient_Discover_UnconfiguredChain(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1", map[domain.Chain][]string{domain.ChainSolana: {"q"}})
	got, err := client.Discover(context.Background(), domain.ChainBase, 60)
	if err != nil || got != nil {
		t.Errorf("expected nothing for unconfigured chain, got %v, %v", got, err)
	}
	if chains := client.Chains(); len(chains) != 1 || chains[0] != domain.ChainSolana {
		t.Errorf("unexpected chains %v", chains)
	}
}

func TestClient_Resolve(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/tokens/v1/solana/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		addrs := strings.Split(strings.TrimPrefix(r.URL.Path, "/tokens/v1/solana/"), ",")
		var pairs []string
		for _, a := range addrs {
			if a == "Unlisted" {
				continue
			}
			pairs = append(pairs, fmt.Sprintf(`{"chainId":"solana","baseToken":{"address":"%s"},"priceUsd":"0.5","liquidity":{"usd":7000},"pairCreatedAt":%d}`,
				a, createdAgo(10*time.Minute)))
		}
		w.Write([]byte("[" + strings.Join(pairs, ",") + "]"))
	}))
	defer server.Close()

	addresses := []string{"Unlisted"}
	for i := 0; i < 40; i++ {
		addresses = append(addresses, fmt.Sprintf("Mint%02d", i))
	}

	client := newTestClient(server.URL, nil)
	got, err := client.Resolve(context.Background(), domain.ChainSolana, addresses)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 40 {
		t.Errorf("expected 40 resolved candidates, got %d", len(got))
	}
	if requests.Load() != 2 {
		t.Errorf("expected 2 batched requests, got %d", requests.Load())
	}
	if got[0].AgeMinutes != 10 {
		t.Errorf("expected age 10, got %d", got[0].AgeMinutes)
	}
}

func TestClient_Resolve_PartialFailure(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		addrs := strings.Split(strings.TrimPrefix(r.URL.Path, "/tokens/v1/solana/"), ",")
		if addrs[0] == "Mint30" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var pairs []string
		for _, a := range addrs {
			pairs = append(pairs, fmt.Sprintf(`{"chainId":"solana","baseToken":{"address":"%s"},"priceUsd":"0.5","liquidity":{"usd":7000},"pairCreatedAt":%d}`,
				a, createdAgo(10*time.Minute)))
		}
		w.Write([]byte("[" + strings.Join(pairs, ",") + "]"))
	}))
	defer server.Close()

	var addresses []string
	for i := 0; i < 70; i++ {
		addresses = append(addresses, fmt.Sprintf("Mint%02d", i))
	}

	got, err := newTestClient(server.URL, nil).Resolve(context.Background(), domain.ChainSolana, addresses)
	if !errors.Is(err, source.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if requests.Load() != 3 {
		t.Errorf("a failed batch must not stop the rest, got %d requests", requests.Load())
	}
	if len(got) != 40 {
		t.Fatalf("expected the 40 addresses of the healthy batches, got %d", len(got))
	}
	for _, c := range got {
		if c.Address >= "Mint30" && c.Address < "Mint60" {
			t.Errorf("unexpected candidate %s from the failed batch", c.Address)
		}
	}
}

func TestClient_Resolve_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	got, err := newTestClient(server.URL, nil).Resolve(context.Background(), domain.ChainSolana, []string{"Mint"})
	if err != nil {
		t.Fatalf("not found must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %d", len(got))
	}
}
