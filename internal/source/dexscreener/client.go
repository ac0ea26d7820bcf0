// Package dexscreener discovers newly listed pairs and resolves market data through the
// public DexScreener API.
package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/source"
)

// Name is the adapter name used in provenance and metrics.
const Name = "dexscreener"

const (
	DefaultBaseURL = "https://api.dexscreener.com"

	// resolveBatchSize is the maximum number of addresses per /tokens/v1 request.
	resolveBatchSize = 30
)

// DefaultQueries returns the search queries used when none are configured.
func DefaultQueries() map[domain.Chain][]string {
	return map[domain.Chain][]string{
		domain.ChainSolana:   {"raydium solana", "pumpswap"},
		domain.ChainEthereum: {"uniswap ethereum"},
		domain.ChainBSC:      {"pancakeswap bsc"},
		domain.ChainBase:     {"aerodrome base"},
	}
}

// Options configures Client.
type Options struct {
	// BaseURL of the API. Default: DefaultBaseURL.
	BaseURL string
	// Queries are the search queries run per chain. Default: DefaultQueries().
	Queries map[domain.Chain][]string
	// Timeout per HTTP request. Default: source.DefaultHTTPTimeout.
	Timeout time.Duration
	// Guard limits calls. Default: 300 requests per minute.
	Guard  *source.Guard
	Logger *zerolog.Logger
}

// Client is the DexScreener discoverer and market resolver.
type Client struct {
	http    *source.HTTPClient
	queries map[domain.Chain][]string
	chains  []domain.Chain
	guard   *source.Guard
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a DexScreener client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if len(opts.Queries) == 0 {
		opts.Queries = DefaultQueries()
	}
	if opts.Guard == nil {
		opts.Guard = source.NewGuard(Name, source.GuardConfig{RequestsPerMinute: 300, Burst: 5}, opts.Logger)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	chains := make([]domain.Chain, 0, len(opts.Queries))
	for chain := range opts.Queries {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })

	return &Client{
		http:    source.NewHTTPClient(opts.BaseURL, source.WithHTTPTimeout(opts.Timeout)),
		queries: opts.Queries,
		chains:  chains,
		guard:   opts.Guard,
		logger:  logger.With().Str("source", Name).Logger(),
		now:     time.Now,
	}
}

// Name implements source.Discoverer.
func (c *Client) Name() string {
	return Name
}

// Chains implements source.Discoverer.
func (c *Client) Chains() []domain.Chain {
	return c.chains
}

// Discover runs every configured query for chain and returns pairs younger than
// maxAgeMinutes, one per base token (the most liquid). If some queries fail the results of
// the others are returned; an error is returned only when all of them failed.
func (c *Client) Discover(ctx context.Context, chain domain.Chain, maxAgeMinutes int64) ([]*domain.Candidate, error) {
	queries := c.queries[chain]
	if len(queries) == 0 {
		return nil, nil
	}

	now := c.now()
	best := make(map[domain.Key]*domain.Candidate)
	var lastErr error
	failed, dropped := 0, 0

	for _, q := range queries {
		var resp searchResponse
		err := c.guard.Do(ctx, func(ctx context.Context) error {
			return c.http.GetJSON(ctx, "/latest/dex/search", url.Values{"q": {q}}, &resp)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			lastErr = err
			c.logger.Warn().Err(err).Str("query", q).Str("chain", chain.String()).Msg("search failed")
			continue
		}

		for i := range resp.Pairs {
			p := &resp.Pairs[i]
			if domain.ParseChain(p.ChainID) != chain {
				continue
			}
			cand, ok := toCandidate(p, chain, now)
			if !ok {
				dropped++
				continue
			}
			if cand.AgeMinutes > maxAgeMinutes {
				continue
			}
			keep(best, cand)
		}
	}

	if failed == len(queries) {
		return nil, fmt.Errorf("%s: all %d queries failed: %w", Name, failed, lastErr)
	}
	if dropped > 0 {
		c.logger.Debug().Int("dropped", dropped).Str("chain", chain.String()).Msg("pairs without price, liquidity or creation time")
	}

	return sortedCandidates(best), nil
}

// Resolve looks up the most liquid pair of each address. Addresses without an indexed pair
// are absent from the result. Age is not filtered. A failed batch does not stop the others:
// the pairs already resolved are returned together with the error.
func (c *Client) Resolve(ctx context.Context, chain domain.Chain, addresses []string) ([]*domain.Candidate, error) {
	now := c.now()
	best := make(map[domain.Key]*domain.Candidate)
	var errs []error

	for start := 0; start < len(addresses); start += resolveBatchSize {
		end := start + resolveBatchSize
		if end > len(addresses) {
			end = len(addresses)
		}
		batch := addresses[start:end]
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		var pairs []Pair
		path := "/tokens/v1/" + url.PathEscape(chain.String()) + "/" + strings.Join(batch, ",")
		err := c.guard.Do(ctx, func(ctx context.Context) error {
			return c.http.GetJSON(ctx, path, nil, &pairs)
		})
		if errors.Is(err, source.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %d addresses: %w", len(batch), err))
			continue
		}

		wanted := make(map[domain.Key]bool, len(batch))
		for _, a := range batch {
			wanted[domain.NewKey(chain, a)] = true
		}
		for i := range pairs {
			p := &pairs[i]
			if domain.ParseChain(p.ChainID) != chain {
				continue
			}
			cand, ok := toCandidate(p, chain, now)
			if !ok || !wanted[cand.Key()] {
				continue
			}
			keep(best, cand)
		}
	}

	if len(errs) > 0 {
		return sortedCandidates(best), fmt.Errorf("%s: %w", Name, errors.Join(errs...))
	}
	return sortedCandidates(best), nil
}

// toCandidate maps a pair onto a candidate. Pairs missing price, liquidity or creation
// time are invalid.
func toCandidate(p *Pair, chain domain.Chain, now time.Time) (*domain.Candidate, bool) {
	if p.BaseToken.Address == "" || p.PairCreatedAt <= 0 {
		return nil, false
	}
	price, ok := p.priceUSD()
	if !ok {
		return nil, false
	}
	liq, ok := p.liquidityUSD()
	if !ok {
		return nil, false
	}

	key := domain.NewKey(chain, p.BaseToken.Address)
	c := &domain.Candidate{
		Chain:         key.Chain,
		Address:       key.Address,
		Symbol:        p.BaseToken.Symbol,
		Name:          p.BaseToken.Name,
		PairAddress:   p.PairAddress,
		DexID:         p.DexID,
		URL:           p.URL,
		PriceUSD:      price,
		LiquidityUSD:  liq,
		ListedAt:      time.UnixMilli(p.PairCreatedAt).UTC(),
		VolumeUSD1h:   nonNegative(p.Volume.H1),
		Buyers5m:      nonNegativeInt(p.Txns.M5.Buys),
		Sellers5m:     nonNegativeInt(p.Txns.M5.Sells),
		TwitterHandle: p.twitterHandle(),
	}
	c.Trades5m = c.Buyers5m + c.Sellers5m
	if p.Fdv != nil && *p.Fdv >= 0 {
		c.FDVUSD = domain.Float(*p.Fdv)
	}
	c.SetAge(now)
	c.AddSource(Name)
	return c, true
}

func keep(best map[domain.Key]*domain.Candidate, c *domain.Candidate) {
	if prev, ok := best[c.Key()]; ok && prev.LiquidityUSD >= c.LiquidityUSD {
		return
	}
	best[c.Key()] = c
}

func sortedCandidates(m map[domain.Key]*domain.Candidate) []*domain.Candidate {
	out := make([]*domain.Candidate, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func nonNegativeInt(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
