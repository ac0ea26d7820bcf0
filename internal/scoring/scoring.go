// Package scoring computes the bounded composite score of a candidate.
//
// Every sub-score is min(1, observed/max(reference, 1)) where the reference is the
// corresponding filter threshold, so a candidate earns full marks by clearing the minimum
// bar rather than by absolute size. The composite is the weight-normalized sum scaled to
// [0,100].
//
// Missing optional attributes (holders, social data, unknown code-risk flags) contribute a
// sub-score of 0 and stay in the weighted sum. This penalizes missing data, unlike the
// filter engine, which skips checks on absent attributes. A known honeypot zeroes the
// code-risk sub-score.
package scoring

import (
	"math"

	"memecoin-scout/internal/domain"
)

// codeRiskChecks is the number of code-risk flags counted by the code-risk sub-score.
// EVM tokens have no freeze authority; a passed honeypot check counts in its place.
const codeRiskChecks = 4

// References are the denominators of the sub-scores.
type References struct {
	MinLiquidityUSD float64
	MinVolumeUSD1h  float64
	MinTrades5m     float64
	MinHolders      float64
	SocialFollowers float64
}

// ReferencesFromFilter derives sub-score references from the filter thresholds.
// Unconfigured thresholds leave a reference of 0, which is floored to 1 when scoring.
func ReferencesFromFilter(cfg domain.FilterConfig, socialFollowers float64) References {
	refs := References{
		MinLiquidityUSD: cfg.MinLiquidityUSD,
		SocialFollowers: socialFollowers,
	}
	if cfg.MinVolumeUSD1h != nil {
		refs.MinVolumeUSD1h = *cfg.MinVolumeUSD1h
	}
	if cfg.MinTrades5m != nil {
		refs.MinTrades5m = float64(*cfg.MinTrades5m)
	}
	if cfg.MinHolders != nil {
		refs.MinHolders = float64(*cfg.MinHolders)
	}
	return refs
}

// Momentum holds the thresholds of the momentum spike flag.
type Momentum struct {
	MinVolumeUSD1h  float64
	MinLiquidityUSD float64
	MinScore        float64
}

// DefaultMomentum returns the stock spike thresholds.
func DefaultMomentum() Momentum {
	return Momentum{
		MinVolumeUSD1h:  50_000,
		MinLiquidityUSD: 20_000,
		MinScore:        50,
	}
}

// Ratio returns min(1, observed/max(reference, 1)), never negative.
func Ratio(observed, reference float64) float64 {
	if observed <= 0 || math.IsNaN(observed) {
		return 0
	}
	r := observed / math.Max(reference, 1)
	if r > 1 {
		return 1
	}
	return r
}

// SubScores computes the per-dimension scores of c.
func SubScores(c *domain.Candidate, refs References) domain.SubScores {
	s := domain.SubScores{
		Liquidity:      Ratio(c.LiquidityUSD, refs.MinLiquidityUSD),
		VolumeMomentum: Ratio(c.VolumeUSD1h, refs.MinVolumeUSD1h),
		TradeActivity:  Ratio(float64(c.Trades5m), refs.MinTrades5m),
	}
	if c.HolderCount != nil {
		s.HolderDistribution = Ratio(float64(*c.HolderCount), refs.MinHolders)
	}
	if c.TwitterFollowers != nil {
		s.SocialTrend = Ratio(float64(*c.TwitterFollowers), refs.SocialFollowers)
	}
	if c.IsHoneypot != domain.FlagTrue {
		s.CodeRisk = Ratio(float64(safeFlags(c)), codeRiskChecks)
	}
	return s
}

// safeFlags counts the code-risk flags known to be in their safe state.
func safeFlags(c *domain.Candidate) int {
	n := 0
	if c.MintAuthorityRevoked == domain.FlagTrue {
		n++
	}
	if c.Chain.IsEVM() {
		if c.IsHoneypot == domain.FlagFalse {
			n++
		}
	} else if c.FreezeAuthorityRevoked == domain.FlagTrue {
		n++
	}
	if c.OwnerRenouncedOrTimelocked == domain.FlagTrue {
		n++
	}
	if c.HasBlacklistOrWhitelist == domain.FlagFalse {
		n++
	}
	return n
}

// Composite combines sub-scores into a score in [0,100].
func Composite(s domain.SubScores, w domain.ScoreWeights) float64 {
	total := w.Total()
	if total <= 0 {
		return 0
	}
	sum := w.Liquidity*s.Liquidity +
		w.VolumeMomentum*s.VolumeMomentum +
		w.TradeActivity*s.TradeActivity +
		w.HolderDistribution*s.HolderDistribution +
		w.SocialTrend*s.SocialTrend +
		w.CodeRisk*s.CodeRisk

	score := sum / total * 100
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*100) / 100
}

// Score returns the composite score of c without mutating it.
func Score(c *domain.Candidate, w domain.ScoreWeights, refs References) float64 {
	return Composite(SubScores(c, refs), w)
}

// Engine applies scores with a fixed configuration.
type Engine struct {
	weights  domain.ScoreWeights
	refs     References
	momentum Momentum
}

// NewEngine creates a scoring engine.
func NewEngine(w domain.ScoreWeights, refs References, m Momentum) *Engine {
	return &Engine{weights: w, refs: refs, momentum: m}
}

// Weights returns the configured weights.
func (e *Engine) Weights() domain.ScoreWeights {
	return e.weights
}

// Apply sets ScoreTotal, Scores and MomentumSpike on c. This is the only mutation made to a
// candidate after filtering.
func (e *Engine) Apply(c *domain.Candidate) float64 {
	subs := SubScores(c, e.refs)
	total := Composite(subs, e.weights)
	c.Scores = &subs
	c.ScoreTotal = &total
	c.MomentumSpike = e.isSpike(c, total)
	return total
}

func (e *Engine) isSpike(c *domain.Candidate, score float64) bool {
	return c.VolumeUSD1h > e.momentum.MinVolumeUSD1h &&
		c.LiquidityUSD > e.momentum.MinLiquidityUSD &&
		score >= e.momentum.MinScore
}
