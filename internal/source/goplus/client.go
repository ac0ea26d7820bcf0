// Package goplus enriches EVM candidates with contract security data from the GoPlus
// token security API.
package goplus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/source"
)

// Name is the adapter name.
const Name = "goplus"

// DefaultBaseURL is the public GoPlus API.
const DefaultBaseURL = "https://api.gopluslabs.io"

var chainIDs = map[domain.Chain]string{
	domain.ChainEthereum: "1",
	domain.ChainBSC:      "56",
	domain.ChainBase:     "8453",
}

// Owners that mean ownership was given up.
var renouncedOwners = map[string]bool{
	"0x0000000000000000000000000000000000000000": true,
	"0x000000000000000000000000000000000000dead": true,
}

// Options configures Client.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Guard defaults to 30 requests per minute.
	Guard  *source.Guard
	Logger *zerolog.Logger
}

// Client is the GoPlus enricher.
type Client struct {
	http   *source.HTTPClient
	guard  *source.Guard
	logger zerolog.Logger
}

// New creates a GoPlus client.
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
		http:   source.NewHTTPClient(opts.BaseURL, source.WithHTTPTimeout(opts.Timeout), source.WithHeader("Authorization", opts.APIKey)),
		guard:  opts.Guard,
		logger: logger.With().Str("source", Name).Logger(),
	}
}

// Name implements source.Enricher.
func (c *Client) Name() string { return Name }

// Chains implements source.Enricher.
func (c *Client) Chains() []domain.Chain {
	return []domain.Chain{domain.ChainEthereum, domain.ChainBSC, domain.ChainBase}
}

// Fields implements source.Enricher.
func (c *Client) Fields() domain.FieldSet {
	return domain.Fields(
		domain.FieldBuyTaxBps, domain.FieldSellTaxBps,
		domain.FieldOwnerRenounced, domain.FieldBlacklist,
		domain.FieldMintAuthorityRevoked, domain.FieldHoneypot,
		domain.FieldLPLockRatio,
		domain.FieldHolderCount, domain.FieldTop1HolderPct, domain.FieldTop5HolderPct,
	)
}

type response struct {
	Code    int                      `json:"code"`
	Message string                   `json:"message"`
	Result  map[string]tokenSecurity `json:"result"`
}

// tokenSecurity mirrors the GoPlus payload, where numbers and booleans are strings.
type tokenSecurity struct {
	BuyTax               string   `json:"buy_tax"`
	SellTax              string   `json:"sell_tax"`
	OwnerAddress         *string  `json:"owner_address"`
	CanTakeBackOwnership string   `json:"can_take_back_ownership"`
	HiddenOwner          string   `json:"hidden_owner"`
	IsMintable           string   `json:"is_mintable"`
	IsHoneypot           string   `json:"is_honeypot"`
	IsBlacklisted        string   `json:"is_blacklisted"`
	IsWhitelisted        string   `json:"is_whitelisted"`
	HolderCount          string   `json:"holder_count"`
	Holders              []holder `json:"holders"`
	LPHolders            []holder `json:"lp_holders"`
}

type holder struct {
	Address  string `json:"address"`
	Percent  string `json:"percent"`
	IsLocked int    `json:"is_locked"`
}

// Enrich fetches contract security attributes.
func (c *Client) Enrich(ctx context.Context, cand *domain.Candidate) (*source.Attributes, error) {
	chainID, ok := chainIDs[cand.Chain]
	if !ok {
		return &source.Attributes{}, nil
	}
	addr := strings.ToLower(cand.Address)

	var resp response
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.http.GetJSON(ctx, "/api/v1/token_security/"+chainID, url.Values{"contract_addresses": {addr}}, &resp)
	})
	if errors.Is(err, source.ErrNotFound) {
		return &source.Attributes{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}
	if resp.Code != 1 {
		return nil, fmt.Errorf("%s: code %d: %s: %w", Name, resp.Code, resp.Message, source.ErrInvalidData)
	}

	sec, ok := resp.Result[addr]
	if !ok {
		return &source.Attributes{}, nil
	}
	return sec.attributes(), nil
}

func (s *tokenSecurity) attributes() *source.Attributes {
	a := &source.Attributes{
		BuyTaxBps:                  bps(s.BuyTax),
		SellTaxBps:                 bps(s.SellTax),
		OwnerRenouncedOrTimelocked: s.ownerRenounced(),
		HasBlacklistOrWhitelist:    anyFlag(s.IsBlacklisted, s.IsWhitelisted),
		MintAuthorityRevoked:       anyFlag(s.IsMintable).Not(),
		IsHoneypot:                 anyFlag(s.IsHoneypot),
		HiddenOwner:                anyFlag(s.HiddenOwner),
		OwnershipReclaimable:       anyFlag(s.CanTakeBackOwnership),
		HolderCount:                parseInt(s.HolderCount),
	}

	if len(s.Holders) > 0 {
		var sum float64
		valid := true
		for i, h := range s.Holders {
			if i == 5 {
				break
			}
			p, err := strconv.ParseFloat(h.Percent, 64)
			if err != nil {
				valid = false
				break
			}
			if i == 0 {
				a.Top1HolderPct = domain.Float(p * 100)
			}
			sum += p
		}
		if valid {
			a.Top5HolderPct = domain.Float(sum * 100)
		} else {
			a.Top1HolderPct = nil
		}
	}

	if len(s.LPHolders) > 0 {
		var locked float64
		for _, h := range s.LPHolders {
			if h.IsLocked != 1 {
				continue
			}
			if p, err := strconv.ParseFloat(h.Percent, 64); err == nil {
				locked += p
			}
		}
		a.LPLockRatio = domain.Float(math.Min(locked, 1))
	}

	return a
}

func (s *tokenSecurity) ownerRenounced() domain.Flag {
	if s.OwnerAddress == nil {
		return domain.FlagUnknown
	}
	if s.CanTakeBackOwnership == "1" || s.HiddenOwner == "1" {
		return domain.FlagFalse
	}
	owner := strings.ToLower(*s.OwnerAddress)
	return domain.FlagOf(owner == "" || renouncedOwners[owner])
}

// bps converts a tax fraction ("0.05") to basis points.
func bps(v string) *int64 {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return nil
	}
	return domain.Int(int64(math.Round(f * 10000)))
}

func parseInt(v string) *int64 {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return domain.Int(n)
}

// anyFlag is true when any value is "1", false when all are "0", unknown otherwise.
func anyFlag(vals ...string) domain.Flag {
	known := 0
	for _, v := range vals {
		switch v {
		case "1":
			return domain.FlagTrue
		case "0":
			known++
		}
	}
	if known == len(vals) {
		return domain.FlagFalse
	}
	return domain.FlagUnknown
}
