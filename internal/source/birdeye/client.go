// Package birdeye enriches Solana candidates with holder statistics from the Birdeye API.
package birdeye

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/source"
)

// Name is the adapter name.
const Name = "birdeye"

// DefaultBaseURL is the public Birdeye API.
const DefaultBaseURL = "https://public-api.birdeye.so"

// Options configures Client.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Guard defaults to 60 requests per minute, the free tier quota.
	Guard  *source.Guard
	Logger *zerolog.Logger
}

// Client is the Birdeye enricher.
type Client struct {
	http   *source.HTTPClient
	guard  *source.Guard
	logger zerolog.Logger
}

// New creates a Birdeye client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Guard == nil {
		opts.Guard = source.NewGuard(Name, source.GuardConfig{RequestsPerMinute: 60}, opts.Logger)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		http: source.NewHTTPClient(opts.BaseURL,
			source.WithHTTPTimeout(opts.Timeout),
			source.WithHeader("X-API-KEY", opts.APIKey),
			source.WithHeader("x-chain", "solana"),
		),
		guard:  opts.Guard,
		logger: logger.With().Str("source", Name).Logger(),
	}
}

// Name implements source.Enricher.
func (c *Client) Name() string { return Name }

// Chains implements source.Enricher.
func (c *Client) Chains() []domain.Chain { return []domain.Chain{domain.ChainSolana} }

// Fields implements source.Enricher.
func (c *Client) Fields() domain.FieldSet {
	return domain.Fields(domain.FieldHolderCount, domain.FieldTop1HolderPct, domain.FieldTop5HolderPct)
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

type overview struct {
	Holder *int64   `json:"holder"`
	Supply *float64 `json:"supply"`
}

type holderList struct {
	Items []holderItem `json:"items"`
}

type holderItem struct {
	Owner     string   `json:"owner"`
	UIAmount  *float64 `json:"ui_amount"`
	Decimals  int      `json:"decimals"`
	AmountRaw string   `json:"amount"`
}

// Enrich fetches the holder count and the top holder concentration. When the overview
// succeeds but the holder list fails, the holder count is returned with the error.
func (c *Client) Enrich(ctx context.Context, cand *domain.Candidate) (*source.Attributes, error) {
	var ov envelope[overview]
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.http.GetJSON(ctx, "/defi/token_overview", url.Values{"address": {cand.Address}}, &ov)
	})
	if errors.Is(err, source.ErrNotFound) {
		return &source.Attributes{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: overview: %w", Name, err)
	}
	if !ov.Success || ov.Data == nil {
		return nil, fmt.Errorf("%s: overview %s: %q: %w", Name, cand.Address, ov.Message, source.ErrInvalidData)
	}

	attrs := &source.Attributes{HolderCount: ov.Data.Holder}

	supply := ov.Data.Supply
	if supply == nil || *supply <= 0 {
		return attrs, nil
	}

	var hl envelope[holderList]
	err = c.guard.Do(ctx, func(ctx context.Context) error {
		q := url.Values{"address": {cand.Address}, "offset": {"0"}, "limit": {"5"}}
		return c.http.GetJSON(ctx, "/defi/v3/token/holder", q, &hl)
	})
	if errors.Is(err, source.ErrNotFound) {
		return attrs, nil
	}
	if err != nil {
		return attrs, fmt.Errorf("%s: holders: %w", Name, err)
	}
	if !hl.Success || hl.Data == nil {
		return attrs, fmt.Errorf("%s: holders %s: %q: %w", Name, cand.Address, hl.Message, source.ErrInvalidData)
	}

	top1, top5, ok := concentration(hl.Data.Items, *supply)
	if ok {
		attrs.Top1HolderPct = domain.Float(top1)
		attrs.Top5HolderPct = domain.Float(top5)
	}
	return attrs, nil
}

// concentration returns the share of supply held by the largest and the five largest holders,
// in percent. Items are expected in descending balance order.
func concentration(items []holderItem, supply float64) (top1, top5 float64, ok bool) {
	if len(items) == 0 {
		return 0, 0, false
	}
	var sum float64
	for i, it := range items {
		if i == 5 {
			break
		}
		if it.UIAmount == nil || *it.UIAmount < 0 {
			return 0, 0, false
		}
		if i == 0 {
			top1 = *it.UIAmount / supply * 100
		}
		sum += *it.UIAmount
	}
	return top1, sum / supply * 100, true
}
