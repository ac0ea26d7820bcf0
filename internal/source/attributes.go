package source

import (
	"memecoin-scout/internal/domain"
)

// Attributes is the partial attribute set returned by an enricher.
// Nil pointers and FlagUnknown mean "not provided".
type Attributes struct {
	HolderCount   *int64
	Top1HolderPct *float64
	Top5HolderPct *float64

	LPLockRatio *float64
	BuyTaxBps   *int64
	SellTaxBps  *int64

	MintAuthorityRevoked       domain.Flag
	FreezeAuthorityRevoked     domain.Flag
	OwnerRenouncedOrTimelocked domain.Flag
	HasBlacklistOrWhitelist    domain.Flag
	IsHoneypot                 domain.Flag
	HiddenOwner                domain.Flag
	OwnershipReclaimable       domain.Flag

	TwitterHandle    string
	TwitterFollowers *int64
	TelegramMembers  *int64

	Name   string
	Symbol string
}

// ApplyTo copies the attributes inside owned onto c. Fields outside owned, fields already
// present on c, and values outside the model bounds are ignored. It returns the number of
// fields set.
func (a *Attributes) ApplyTo(c *domain.Candidate, owned domain.FieldSet) int {
	if a == nil {
		return 0
	}
	n := 0

	setInt := func(f domain.Field, dst **int64, v *int64) {
		if owned.Has(f) && *dst == nil && v != nil && *v >= 0 {
			val := *v
			*dst = &val
			n++
		}
	}
	setPct := func(f domain.Field, dst **float64, v *float64) {
		if owned.Has(f) && *dst == nil && v != nil && domain.ValidPct(v) {
			val := *v
			*dst = &val
			n++
		}
	}
	setFlag := func(f domain.Field, dst *domain.Flag, v domain.Flag) {
		if owned.Has(f) && !dst.Known() && v.Known() {
			*dst = v
			n++
		}
	}

	setInt(domain.FieldHolderCount, &c.HolderCount, a.HolderCount)
	setPct(domain.FieldTop1HolderPct, &c.Top1HolderPct, a.Top1HolderPct)
	setPct(domain.FieldTop5HolderPct, &c.Top5HolderPct, a.Top5HolderPct)

	if owned.Has(domain.FieldLPLockRatio) && c.LPLockRatio == nil && a.LPLockRatio != nil && domain.ValidRatio(a.LPLockRatio) {
		v := *a.LPLockRatio
		c.LPLockRatio = &v
		n++
	}
	setInt(domain.FieldBuyTaxBps, &c.BuyTaxBps, a.BuyTaxBps)
	setInt(domain.FieldSellTaxBps, &c.SellTaxBps, a.SellTaxBps)

	setFlag(domain.FieldMintAuthorityRevoked, &c.MintAuthorityRevoked, a.MintAuthorityRevoked)
	setFlag(domain.FieldFreezeAuthorityRevoked, &c.FreezeAuthorityRevoked, a.FreezeAuthorityRevoked)
	setFlag(domain.FieldOwnerRenounced, &c.OwnerRenouncedOrTimelocked, a.OwnerRenouncedOrTimelocked)
	setFlag(domain.FieldOwnerRenounced, &c.HiddenOwner, a.HiddenOwner)
	setFlag(domain.FieldOwnerRenounced, &c.OwnershipReclaimable, a.OwnershipReclaimable)
	setFlag(domain.FieldBlacklist, &c.HasBlacklistOrWhitelist, a.HasBlacklistOrWhitelist)
	setFlag(domain.FieldHoneypot, &c.IsHoneypot, a.IsHoneypot)

	if owned.Has(domain.FieldSocial) {
		if c.TwitterHandle == "" && a.TwitterHandle != "" {
			c.TwitterHandle = a.TwitterHandle
			n++
		}
		setInt(domain.FieldSocial, &c.TwitterFollowers, a.TwitterFollowers)
		setInt(domain.FieldSocial, &c.TelegramMembers, a.TelegramMembers)
	}

	// Discovery usually names the token; metadata only fills gaps.
	if owned.Has(domain.FieldMetadata) {
		if c.Name == "" && a.Name != "" {
			c.Name = a.Name
			n++
		}
		if c.Symbol == "" && a.Symbol != "" {
			c.Symbol = a.Symbol
			n++
		}
	}

	return n
}
