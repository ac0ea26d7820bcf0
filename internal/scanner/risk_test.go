package scanner

import (
	"testing"

	"memecoin-scout/internal/domain"
)

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name    string
		cand    func(c *domain.Candidate)
		score   int
		verdict Verdict
		codes   []string
	}{
		{"no data", nil, 0, VerdictSafe, nil},
		{"clean", func(c *domain.Candidate) {
			c.MintAuthorityRevoked = domain.FlagTrue
			c.OwnerRenouncedOrTimelocked = domain.FlagTrue
			c.IsHoneypot = domain.FlagFalse
			c.HolderCount = domain.Int(500)
			c.SellTaxBps = domain.Int(300)
		}, 0, VerdictSafe, nil},
		{"honeypot", func(c *domain.Candidate) {
			c.IsHoneypot = domain.FlagTrue
			c.HolderCount = domain.Int(5)
		}, 100, VerdictExtreme, []string{"honeypot", "holders"}},
		{"hidden owner and mintable", func(c *domain.Candidate) {
			c.OwnerRenouncedOrTimelocked = domain.FlagFalse
			c.HiddenOwner = domain.FlagTrue
			c.MintAuthorityRevoked = domain.FlagFalse
		}, 90, VerdictExtreme, []string{"hidden_owner", "mintable"}},
		{"reclaimable", func(c *domain.Candidate) {
			c.OwnerRenouncedOrTimelocked = domain.FlagFalse
			c.OwnershipReclaimable = domain.FlagTrue
			c.BuyTaxBps = domain.Int(1500)
		}, 60, VerdictHigh, []string{"reclaimable_ownership", "buy_tax"}},
		{"extreme sell tax", func(c *domain.Candidate) {
			c.SellTaxBps = domain.Int(6000)
		}, 50, VerdictCaution, []string{"sell_tax"}},
		{"moderate sell tax is a warning only", func(c *domain.Candidate) {
			c.SellTaxBps = domain.Int(800)
		}, 0, VerdictSafe, []string{"sell_tax"}},
		{"active owner and unlocked lp", func(c *domain.Candidate) {
			c.OwnerRenouncedOrTimelocked = domain.FlagFalse
			c.LPLockRatio = domain.Float(0.2)
			c.HasBlacklistOrWhitelist = domain.FlagTrue
		}, 40, VerdictCaution, []string{"owner_active", "blacklist", "lp_unlocked"}},
		{"capped", func(c *domain.Candidate) {
			c.HiddenOwner = domain.FlagTrue
			c.OwnershipReclaimable = domain.FlagTrue
			c.FreezeAuthorityRevoked = domain.FlagFalse
		}, 100, VerdictExtreme, []string{"hidden_owner", "reclaimable_ownership", "freezable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &domain.Candidate{Chain: domain.ChainEthereum, Address: "0xabc"}
			if tt.cand != nil {
				tt.cand(c)
			}
			risk := AssessRisk(c)
			if risk.Score != tt.score {
				t.Errorf("score = %d, want %d", risk.Score, tt.score)
			}
			if risk.Verdict != tt.verdict {
				t.Errorf("verdict = %q, want %q", risk.Verdict, tt.verdict)
			}
			if len(risk.Flags) != len(tt.codes) {
				t.Fatalf("flags = %+v, want codes %v", risk.Flags, tt.codes)
			}
			for i, code := range tt.codes {
				if risk.Flags[i].Code != code {
					t.Errorf("flag %d = %s, want %s", i, risk.Flags[i].Code, code)
				}
			}
		})
	}
}

func TestAssessRisk_SeverityOrder(t *testing.T) {
	c := &domain.Candidate{
		HolderCount: domain.Int(20),
		BuyTaxBps:   domain.Int(2000),
		IsHoneypot:  domain.FlagTrue,
	}
	flags := AssessRisk(c).Flags
	if len(flags) != 3 {
		t.Fatalf("expected 3 flags, got %+v", flags)
	}
	want := []Severity{SeverityCritical, SeverityHigh, SeverityMedium}
	for i, sev := range want {
		if flags[i].Severity != sev {
			t.Errorf("flag %d severity = %s, want %s", i, flags[i].Severity, sev)
		}
	}
	if flags[1].Message != "high buy tax: 20.0%" {
		t.Errorf("unexpected message %q", flags[1].Message)
	}
}

func TestVerdictFor(t *testing.T) {
	tests := []struct {
		score int
		want  Verdict
	}{
		{0, VerdictSafe},
		{29, VerdictSafe},
		{30, VerdictCaution},
		{59, VerdictCaution},
		{60, VerdictHigh},
		{80, VerdictExtreme},
		{100, VerdictExtreme},
	}
	for _, tt := range tests {
		if got := VerdictFor(tt.score); got != tt.want {
			t.Errorf("VerdictFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
