package scanner

import (
	"fmt"
	"sort"

	"memecoin-scout/internal/domain"
)

// Severity ranks a risk flag.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	default:
		return 2
	}
}

// Verdict summarises a risk score for humans.
type Verdict string

const (
	VerdictExtreme Verdict = "extreme danger, do not buy"
	VerdictHigh    Verdict = "high risk, likely scam"
	VerdictCaution Verdict = "caution, verify manually"
	VerdictSafe    Verdict = "appears safe"
)

// VerdictFor maps a 0-100 risk score to a verdict.
func VerdictFor(score int) Verdict {
	switch {
	case score >= 80:
		return VerdictExtreme
	case score >= 60:
		return VerdictHigh
	case score >= 30:
		return VerdictCaution
	default:
		return VerdictSafe
	}
}

// RiskFlag is one warning raised by AssessRisk.
type RiskFlag struct {
	Severity Severity
	Code     string
	Message  string
}

// Risk is the contract and distribution risk of a single token.
// Only known attributes raise flags; a token with no enrichment scores 0.
type Risk struct {
	Score   int
	Verdict Verdict
	Flags   []RiskFlag
}

// AssessRisk scores how dangerous c looks to a buyer, 0 (no red flags) to 100.
// A known honeypot is always 100.
func AssessRisk(c *domain.Candidate) Risk {
	var (
		score int
		flags []RiskFlag
	)
	raise := func(sev Severity, points int, code, format string, args ...any) {
		score += points
		flags = append(flags, RiskFlag{Severity: sev, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if c.IsHoneypot.IsTrue() {
		raise(SeverityCritical, 100, "honeypot", "honeypot detected, tokens cannot be sold")
	}
	if c.HiddenOwner.IsTrue() {
		raise(SeverityCritical, 60, "hidden_owner", "hidden owner detected")
	}
	if c.OwnershipReclaimable.IsTrue() {
		raise(SeverityHigh, 40, "reclaimable_ownership", "ownership can be reclaimed")
	}
	if c.MintAuthorityRevoked == domain.FlagFalse {
		raise(SeverityHigh, 30, "mintable", "supply can still be minted")
	}
	if c.FreezeAuthorityRevoked == domain.FlagFalse {
		raise(SeverityHigh, 30, "freezable", "holder accounts can be frozen")
	}
	if c.OwnerRenouncedOrTimelocked == domain.FlagFalse && !c.HiddenOwner.IsTrue() && !c.OwnershipReclaimable.IsTrue() {
		raise(SeverityMedium, 10, "owner_active", "owner not renounced or timelocked")
	}
	if c.HasBlacklistOrWhitelist.IsTrue() {
		raise(SeverityMedium, 15, "blacklist", "contract can blacklist or whitelist holders")
	}

	if c.SellTaxBps != nil {
		pct := float64(*c.SellTaxBps) / 100
		switch {
		case *c.SellTaxBps > 5000:
			raise(SeverityCritical, 50, "sell_tax", "extreme sell tax: %.1f%%", pct)
		case *c.SellTaxBps > 2000:
			raise(SeverityHigh, 30, "sell_tax", "high sell tax: %.1f%%", pct)
		case *c.SellTaxBps > 1000:
			raise(SeverityMedium, 15, "sell_tax", "moderate sell tax: %.1f%%", pct)
		case *c.SellTaxBps > 500:
			raise(SeverityMedium, 0, "sell_tax", "moderate sell tax: %.1f%%", pct)
		}
	}
	if c.BuyTaxBps != nil && *c.BuyTaxBps > 1000 {
		raise(SeverityHigh, 20, "buy_tax", "high buy tax: %.1f%%", float64(*c.BuyTaxBps)/100)
	}

	if c.HolderCount != nil {
		switch n := *c.HolderCount; {
		case n < 10:
			raise(SeverityHigh, 25, "holders", "very few holders: %d", n)
		case n < 50:
			raise(SeverityMedium, 15, "holders", "low holder count: %d", n)
		}
	}
	if c.LPLockRatio != nil && *c.LPLockRatio < 0.5 {
		raise(SeverityMedium, 15, "lp_unlocked", "only %.0f%% of liquidity is locked", *c.LPLockRatio*100)
	}

	if score > 100 {
		score = 100
	}
	sort.SliceStable(flags, func(i, j int) bool {
		return flags[i].Severity.rank() < flags[j].Severity.rank()
	})
	return Risk{Score: score, Verdict: VerdictFor(score), Flags: flags}
}
