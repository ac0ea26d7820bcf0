package domain

// FilterConfig is the rule set applied by the filter engine.
// Optional bounds are pointers: nil means the check is not configured.
type FilterConfig struct {
	Chains []Chain

	MinLiquidityUSD float64
	MaxLiquidityUSD float64

	// 0 disables that side of the price range.
	MinPriceUSD float64
	MaxPriceUSD float64

	// MinAgeMinutes of 0 disables the "too new" check.
	MinAgeMinutes int64
	MaxAgeMinutes int64

	MaxFDVUSD        *float64
	MinHolders       *int64
	MaxBuyTaxBps     *int64
	MaxSellTaxBps    *int64
	MaxTop1HolderPct *float64
	MaxTop5HolderPct *float64
	MinLPLockRatio   *float64
	MinTrades5m      *int64
	MinVolumeUSD1h   *float64

	RequireMintAuthorityRevoked     bool
	RequireFreezeAuthorityRevoked   bool
	RequireOwnerRenouncedOrTimelock bool
	RejectBlacklistOrWhitelist      bool
	RejectHoneypot                  bool
}

// AllowsChain reports whether chain is on the allowlist.
func (f FilterConfig) AllowsChain(chain Chain) bool {
	for _, c := range f.Chains {
		if c == chain {
			return true
		}
	}
	return false
}

// ScoreWeights are the non-negative weights of the composite score.
// They need not sum to 1; the scoring engine normalizes by Total.
type ScoreWeights struct {
	Liquidity          float64
	VolumeMomentum     float64
	TradeActivity      float64
	HolderDistribution float64
	SocialTrend        float64
	CodeRisk           float64
}

// DefaultScoreWeights returns the stock weighting.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Liquidity:          0.25,
		VolumeMomentum:     0.25,
		TradeActivity:      0.15,
		HolderDistribution: 0.15,
		SocialTrend:        0.15,
		CodeRisk:           0.05,
	}
}

// Total returns the normalization basis.
func (w ScoreWeights) Total() float64 {
	return w.Liquidity + w.VolumeMomentum + w.TradeActivity + w.HolderDistribution + w.SocialTrend + w.CodeRisk
}

// Valid reports whether every weight is non-negative and the total is positive.
func (w ScoreWeights) Valid() bool {
	for _, v := range []float64{w.Liquidity, w.VolumeMomentum, w.TradeActivity, w.HolderDistribution, w.SocialTrend, w.CodeRisk} {
		if v < 0 {
			return false
		}
	}
	return w.Total() > 0
}

// SubScores is the per-dimension breakdown of a composite score, each in [0,1].
type SubScores struct {
	Liquidity          float64
	VolumeMomentum     float64
	TradeActivity      float64
	HolderDistribution float64
	SocialTrend        float64
	CodeRisk           float64
}
