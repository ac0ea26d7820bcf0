// Package coingecko enriches candidates with community data from CoinGecko.
package coingecko

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
const Name = "coingecko"

// DefaultBaseURL is the public CoinGecko API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// CoinGecko asset platform ids.
var platforms = map[domain.Chain]string{
	domain.ChainSolana:   "solana",
	domain.ChainEthereum: "ethereum",
	domain.ChainBSC:      "binance-smart-chain",
	domain.ChainBase:     "base",
}

// Options configures Client.
type Options struct {
	// APIKey is sent as the demo API key header when set.
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Guard defaults to 30 requests per minute.
	Guard  *source.Guard
	Logger *zerolog.Logger
}

// Client is the CoinGecko social enricher.
type Client struct {
	http   *source.HTTPClient
	guard  *source.Guard
	logger zerolog.Logger
}

// New creates a CoinGecko client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Guard == nil {
		opts.Guard = source.NewGuard(Name, source.GuardConfig{RequestsPerMinute: 30}, opts.Logger)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		http:   source.NewHTTPClient(opts.BaseURL, source.WithHTTPTimeout(opts.Timeout), source.WithHeader("x-cg-demo-api-key", opts.APIKey)),
		guard:  opts.Guard,
		logger: logger.With().Str("source", Name).Logger(),
	}
}

// Name implements source.Enricher.
func (c *Client) Name() string { return Name }

// Chains implements source.Enricher.
func (c *Client) Chains() []domain.Chain {
	return []domain.Chain{domain.ChainSolana, domain.ChainEthereum, domain.ChainBSC, domain.ChainBase}
}

// Fields implements source.Enricher.
func (c *Client) Fields() domain.FieldSet {
	return domain.Fields(domain.FieldSocial)
}

type coin struct {
	ID            string         `json:"id"`
	Symbol        string         `json:"symbol"`
	Name          string         `json:"name"`
	Links         *links         `json:"links"`
	CommunityData *communityData `json:"community_data"`
}

type links struct {
	TwitterScreenName         string `json:"twitter_screen_name"`
	TelegramChannelIdentifier string `json:"telegram_channel_identifier"`
}

type communityData struct {
	TwitterFollowers         *int64 `json:"twitter_followers"`
	TelegramChannelUserCount *int64 `json:"telegram_channel_user_count"`
}

// Enrich fetches the twitter handle and community sizes. Most fresh tokens are not listed
// yet; that is not an error.
func (c *Client) Enrich(ctx context.Context, cand *domain.Candidate) (*source.Attributes, error) {
	platform, ok := platforms[cand.Chain]
	if !ok {
		return &source.Attributes{}, nil
	}

	var resp coin
	path := "/coins/" + platform + "/contract/" + url.PathEscape(cand.Address)
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.http.GetJSON(ctx, path, nil, &resp)
	})
	if errors.Is(err, source.ErrNotFound) {
		return &source.Attributes{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}

	attrs := &source.Attributes{}
	if resp.Links != nil {
		attrs.TwitterHandle = resp.Links.TwitterScreenName
	}
	if resp.CommunityData != nil {
		attrs.TwitterFollowers = resp.CommunityData.TwitterFollowers
		attrs.TelegramMembers = resp.CommunityData.TelegramChannelUserCount
	}
	return attrs, nil
}
