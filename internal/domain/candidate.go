package domain

import (
	"fmt"
	"strings"
	"time"
)

// Chain identifies the blockchain a token lives on.
type Chain string

const (
	ChainSolana   Chain = "solana"
	ChainEthereum Chain = "ethereum"
	ChainBSC      Chain = "bsc"
	ChainBase     Chain = "base"
)

// String returns the string representation of Chain.
func (c Chain) String() string {
	return string(c)
}

// IsEVM reports whether the chain uses EVM contract addresses.
func (c Chain) IsEVM() bool {
	return c == ChainEthereum || c == ChainBSC || c == ChainBase
}

// ParseChain normalizes a chain name. Unknown names are accepted verbatim (lower-cased).
func ParseChain(s string) Chain {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "sol":
		return ChainSolana
	case "eth":
		return ChainEthereum
	case "bnb", "binance":
		return ChainBSC
	}
	return Chain(s)
}

// Key is the identity of a candidate: unique within a scan and the unit of deduplication.
type Key struct {
	Chain   Chain
	Address string
}

// NewKey builds a normalized key. EVM addresses are case-insensitive and are lower-cased;
// base58 addresses are case-sensitive and kept as is.
func NewKey(chain Chain, address string) Key {
	address = strings.TrimSpace(address)
	if chain.IsEVM() {
		address = strings.ToLower(address)
	}
	return Key{Chain: chain, Address: address}
}

// String returns "chain:address".
func (k Key) String() string {
	return string(k.Chain) + ":" + k.Address
}

// Flag is a tri-state code-risk attribute. The zero value is FlagUnknown.
type Flag int8

const (
	FlagUnknown Flag = iota
	FlagTrue
	FlagFalse
)

// FlagOf converts a known boolean into a Flag.
func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// Known reports whether the flag carries a value.
func (f Flag) Known() bool {
	return f == FlagTrue || f == FlagFalse
}

// IsTrue reports whether the flag is known and true.
func (f Flag) IsTrue() bool {
	return f == FlagTrue
}

// Not inverts a known flag. Unknown stays unknown.
func (f Flag) Not() Flag {
	switch f {
	case FlagTrue:
		return FlagFalse
	case FlagFalse:
		return FlagTrue
	default:
		return FlagUnknown
	}
}

// String returns "true", "false" or "unknown".
func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Candidate is one discovered token under evaluation in the current scan.
// Optional attributes are pointers (or FlagUnknown); nil means the attribute is absent,
// which is distinct from zero. Volume attributes are the exception and default to zero.
type Candidate struct {
	Chain   Chain
	Address string

	// Descriptive, informational only
	Symbol      string
	Name        string
	PairAddress string
	DexID       string
	URL         string

	// Market
	PriceUSD     float64
	LiquidityUSD float64
	FDVUSD       *float64
	ListedAt     time.Time
	AgeMinutes   int64

	// Volume
	VolumeUSD1h float64
	Trades5m    int64
	Buyers5m    int64
	Sellers5m   int64

	// Holders
	HolderCount   *int64
	Top1HolderPct *float64
	Top5HolderPct *float64

	// Liquidity safety
	LPLockRatio *float64
	BuyTaxBps   *int64
	SellTaxBps  *int64

	// Code risk
	MintAuthorityRevoked       Flag
	FreezeAuthorityRevoked     Flag
	OwnerRenouncedOrTimelocked Flag
	HasBlacklistOrWhitelist    Flag
	IsHoneypot                 Flag
	HiddenOwner                Flag
	OwnershipReclaimable       Flag

	// Social, never filtered
	TwitterHandle    string
	TwitterFollowers *int64
	TelegramMembers  *int64

	// Derived
	ScoreTotal    *float64
	Scores        *SubScores
	MomentumSpike bool

	// Sources lists the adapters that contributed attributes.
	Sources []string
}

// Key returns the candidate identity.
func (c *Candidate) Key() Key {
	return NewKey(c.Chain, c.Address)
}

// Scored reports whether the scoring engine has assigned a score.
func (c *Candidate) Scored() bool {
	return c.ScoreTotal != nil
}

// Score returns the composite score, or 0 when not yet scored.
func (c *Candidate) Score() float64 {
	if c.ScoreTotal == nil {
		return 0
	}
	return *c.ScoreTotal
}

// SetAge derives AgeMinutes from ListedAt relative to now. Ages are never negative.
func (c *Candidate) SetAge(now time.Time) {
	if c.ListedAt.IsZero() {
		c.AgeMinutes = 0
		return
	}
	age := int64(now.Sub(c.ListedAt) / time.Minute)
	if age < 0 {
		age = 0
	}
	c.AgeMinutes = age
}

// AddSource records a contributing adapter once.
func (c *Candidate) AddSource(name string) {
	for _, s := range c.Sources {
		if s == name {
			return
		}
	}
	c.Sources = append(c.Sources, name)
}

// Clone returns a deep copy so concurrent enrichment never shares pointers.
func (c *Candidate) Clone() *Candidate {
	if c == nil {
		return nil
	}
	out := *c
	out.FDVUSD = cloneFloat(c.FDVUSD)
	out.HolderCount = cloneInt(c.HolderCount)
	out.Top1HolderPct = cloneFloat(c.Top1HolderPct)
	out.Top5HolderPct = cloneFloat(c.Top5HolderPct)
	out.LPLockRatio = cloneFloat(c.LPLockRatio)
	out.BuyTaxBps = cloneInt(c.BuyTaxBps)
	out.SellTaxBps = cloneInt(c.SellTaxBps)
	out.TwitterFollowers = cloneInt(c.TwitterFollowers)
	out.TelegramMembers = cloneInt(c.TelegramMembers)
	out.ScoreTotal = cloneFloat(c.ScoreTotal)
	if c.Scores != nil {
		s := *c.Scores
		out.Scores = &s
	}
	if c.Sources != nil {
		out.Sources = append([]string(nil), c.Sources...)
	}
	return &out
}

// Validate checks the candidate model boundary.
func (c *Candidate) Validate() error {
	if c.Chain == "" {
		return fmt.Errorf("candidate: empty chain")
	}
	if c.Address == "" {
		return fmt.Errorf("candidate: empty address")
	}
	if c.PriceUSD < 0 || c.LiquidityUSD < 0 {
		return fmt.Errorf("candidate %s: negative market value", c.Key())
	}
	if c.FDVUSD != nil && *c.FDVUSD < 0 {
		return fmt.Errorf("candidate %s: negative fdv", c.Key())
	}
	if c.AgeMinutes < 0 {
		return fmt.Errorf("candidate %s: negative age", c.Key())
	}
	if c.VolumeUSD1h < 0 || c.Trades5m < 0 || c.Buyers5m < 0 || c.Sellers5m < 0 {
		return fmt.Errorf("candidate %s: negative volume attribute", c.Key())
	}
	if c.HolderCount != nil && *c.HolderCount < 0 {
		return fmt.Errorf("candidate %s: negative holder count", c.Key())
	}
	if !ValidPct(c.Top1HolderPct) || !ValidPct(c.Top5HolderPct) {
		return fmt.Errorf("candidate %s: holder pct out of [0,100]", c.Key())
	}
	if !ValidRatio(c.LPLockRatio) {
		return fmt.Errorf("candidate %s: lp lock ratio out of [0,1]", c.Key())
	}
	if (c.BuyTaxBps != nil && *c.BuyTaxBps < 0) || (c.SellTaxBps != nil && *c.SellTaxBps < 0) {
		return fmt.Errorf("candidate %s: negative tax", c.Key())
	}
	if c.ScoreTotal != nil && (*c.ScoreTotal < 0 || *c.ScoreTotal > 100) {
		return fmt.Errorf("candidate %s: score out of [0,100]", c.Key())
	}
	return nil
}

// ValidPct reports whether an optional percentage is absent or within [0,100].
func ValidPct(v *float64) bool {
	return v == nil || (*v >= 0 && *v <= 100)
}

// ValidRatio reports whether an optional ratio is absent or within [0,1].
func ValidRatio(v *float64) bool {
	return v == nil || (*v >= 0 && *v <= 1)
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int64) *int64 {
	return &v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
