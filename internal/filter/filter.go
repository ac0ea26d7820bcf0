// Package filter evaluates candidates against a FilterConfig.
//
// Checks run in a fixed order and stop at the first failure. An optional check runs only
// when both its threshold is configured and the candidate carries the attribute; otherwise
// it is recorded as skipped. Rejection is a normal return value, never an error.
package filter

import (
	"memecoin-scout/internal/domain"
)

// Reason is a structured rejection code.
type Reason string

const (
	ReasonNone                      Reason = ""
	ReasonChainNotAllowed           Reason = "chain_not_allowed"
	ReasonLiquidityBelowMin         Reason = "liquidity_below_min"
	ReasonLiquidityAboveMax         Reason = "liquidity_above_max"
	ReasonPriceBelowMin             Reason = "price_below_min"
	ReasonPriceAboveMax             Reason = "price_above_max"
	ReasonFDVAboveMax               Reason = "fdv_above_max"
	ReasonAgeBelowMin               Reason = "age_below_min"
	ReasonAgeAboveMax               Reason = "age_above_max"
	ReasonHoldersBelowMin           Reason = "holders_below_min"
	ReasonBuyTaxAboveMax            Reason = "buy_tax_above_max"
	ReasonSellTaxAboveMax           Reason = "sell_tax_above_max"
	ReasonTop1HolderAboveMax        Reason = "top1_holder_above_max"
	ReasonTop5HolderAboveMax        Reason = "top5_holder_above_max"
	ReasonMintAuthorityNotRevoked   Reason = "mint_authority_not_revoked"
	ReasonFreezeAuthorityNotRevoked Reason = "freeze_authority_not_revoked"
	ReasonOwnerNotRenounced         Reason = "owner_not_renounced"
	ReasonBlacklistPresent          Reason = "blacklist_present"
	ReasonHoneypot                  Reason = "honeypot"
	ReasonLPLockBelowMin            Reason = "lp_lock_below_min"
	ReasonTrades5mBelowMin          Reason = "trades_5m_below_min"
	ReasonVolume1hBelowMin          Reason = "volume_1h_below_min"
)

// String returns the reason code.
func (r Reason) String() string {
	return string(r)
}

// Decision is the outcome of evaluating one candidate.
type Decision struct {
	Accepted bool
	Reason   Reason  // set when rejected
	Actual   float64 // observed value of the failing check
	Limit    float64 // configured bound of the failing check
	Skipped  []Reason
}

// Accept reports whether the candidate passed every applicable check.
func (d Decision) Accept() bool {
	return d.Accepted
}

type evaluator struct {
	d Decision
}

func (e *evaluator) reject(r Reason, actual, limit float64) bool {
	e.d.Reason = r
	e.d.Actual = actual
	e.d.Limit = limit
	return false
}

func (e *evaluator) skip(r Reason) {
	e.d.Skipped = append(e.d.Skipped, r)
}

// Evaluate runs the ordered checks. It has no side effects and is deterministic.
func Evaluate(c *domain.Candidate, cfg domain.FilterConfig) Decision {
	e := &evaluator{}
	e.d.Accepted = e.run(c, cfg)
	return e.d
}

func (e *evaluator) run(c *domain.Candidate, cfg domain.FilterConfig) bool {
	if !cfg.AllowsChain(c.Chain) {
		return e.reject(ReasonChainNotAllowed, 0, 0)
	}

	if c.LiquidityUSD < cfg.MinLiquidityUSD {
		return e.reject(ReasonLiquidityBelowMin, c.LiquidityUSD, cfg.MinLiquidityUSD)
	}
	if cfg.MaxLiquidityUSD > 0 && c.LiquidityUSD > cfg.MaxLiquidityUSD {
		return e.reject(ReasonLiquidityAboveMax, c.LiquidityUSD, cfg.MaxLiquidityUSD)
	}

	if cfg.MinPriceUSD > 0 && c.PriceUSD < cfg.MinPriceUSD {
		return e.reject(ReasonPriceBelowMin, c.PriceUSD, cfg.MinPriceUSD)
	}
	if cfg.MaxPriceUSD > 0 && c.PriceUSD > cfg.MaxPriceUSD {
		return e.reject(ReasonPriceAboveMax, c.PriceUSD, cfg.MaxPriceUSD)
	}

	if cfg.MaxFDVUSD != nil {
		if c.FDVUSD == nil {
			e.skip(ReasonFDVAboveMax)
		} else if *c.FDVUSD > *cfg.MaxFDVUSD {
			return e.reject(ReasonFDVAboveMax, *c.FDVUSD, *cfg.MaxFDVUSD)
		}
	}

	if cfg.MinAgeMinutes > 0 && c.AgeMinutes < cfg.MinAgeMinutes {
		return e.reject(ReasonAgeBelowMin, float64(c.AgeMinutes), float64(cfg.MinAgeMinutes))
	}
	if cfg.MaxAgeMinutes > 0 && c.AgeMinutes > cfg.MaxAgeMinutes {
		return e.reject(ReasonAgeAboveMax, float64(c.AgeMinutes), float64(cfg.MaxAgeMinutes))
	}

	if !e.minInt(ReasonHoldersBelowMin, c.HolderCount, cfg.MinHolders) {
		return false
	}
	if !e.maxInt(ReasonBuyTaxAboveMax, c.BuyTaxBps, cfg.MaxBuyTaxBps) {
		return false
	}
	if !e.maxInt(ReasonSellTaxAboveMax, c.SellTaxBps, cfg.MaxSellTaxBps) {
		return false
	}
	if !e.maxFloat(ReasonTop1HolderAboveMax, c.Top1HolderPct, cfg.MaxTop1HolderPct) {
		return false
	}
	if !e.maxFloat(ReasonTop5HolderAboveMax, c.Top5HolderPct, cfg.MaxTop5HolderPct) {
		return false
	}

	if !e.require(ReasonMintAuthorityNotRevoked, cfg.RequireMintAuthorityRevoked, c.MintAuthorityRevoked, true) {
		return false
	}
	if !e.require(ReasonFreezeAuthorityNotRevoked, cfg.RequireFreezeAuthorityRevoked, c.FreezeAuthorityRevoked, true) {
		return false
	}
	if !e.require(ReasonOwnerNotRenounced, cfg.RequireOwnerRenouncedOrTimelock, c.OwnerRenouncedOrTimelocked, true) {
		return false
	}
	if !e.require(ReasonBlacklistPresent, cfg.RejectBlacklistOrWhitelist, c.HasBlacklistOrWhitelist, false) {
		return false
	}
	if !e.require(ReasonHoneypot, cfg.RejectHoneypot, c.IsHoneypot, false) {
		return false
	}

	if cfg.MinLPLockRatio != nil {
		if c.LPLockRatio == nil {
			e.skip(ReasonLPLockBelowMin)
		} else if *c.LPLockRatio < *cfg.MinLPLockRatio {
			return e.reject(ReasonLPLockBelowMin, *c.LPLockRatio, *cfg.MinLPLockRatio)
		}
	}

	// Volume attributes are always present (zero when the source had none).
	if cfg.MinTrades5m != nil && c.Trades5m < *cfg.MinTrades5m {
		return e.reject(ReasonTrades5mBelowMin, float64(c.Trades5m), float64(*cfg.MinTrades5m))
	}
	if cfg.MinVolumeUSD1h != nil && c.VolumeUSD1h < *cfg.MinVolumeUSD1h {
		return e.reject(ReasonVolume1hBelowMin, c.VolumeUSD1h, *cfg.MinVolumeUSD1h)
	}

	return true
}

func (e *evaluator) minInt(r Reason, v, limit *int64) bool {
	if limit == nil {
		return true
	}
	if v == nil {
		e.skip(r)
		return true
	}
	if *v < *limit {
		return e.reject(r, float64(*v), float64(*limit))
	}
	return true
}

func (e *evaluator) maxInt(r Reason, v, limit *int64) bool {
	if limit == nil {
		return true
	}
	if v == nil {
		e.skip(r)
		return true
	}
	if *v > *limit {
		return e.reject(r, float64(*v), float64(*limit))
	}
	return true
}

func (e *evaluator) maxFloat(r Reason, v, limit *float64) bool {
	if limit == nil {
		return true
	}
	if v == nil {
		e.skip(r)
		return true
	}
	if *v > *limit {
		return e.reject(r, *v, *limit)
	}
	return true
}

// require checks a tri-state flag against the wanted value when the rule is enabled.
func (e *evaluator) require(r Reason, enabled bool, f domain.Flag, want bool) bool {
	if !enabled {
		return true
	}
	if !f.Known() {
		e.skip(r)
		return true
	}
	if f.IsTrue() != want {
		return e.reject(r, 0, 0)
	}
	return true
}
