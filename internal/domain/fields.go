package domain

import "strings"

// Field names one enrichable candidate attribute.
type Field uint32

// Enrichable fields. Market and volume attributes belong to discovery and are not listed.
const (
	FieldHolderCount Field = 1 << iota
	FieldTop1HolderPct
	FieldTop5HolderPct
	FieldLPLockRatio
	FieldBuyTaxBps
	FieldSellTaxBps
	FieldMintAuthorityRevoked
	FieldFreezeAuthorityRevoked
	FieldOwnerRenounced
	FieldBlacklist
	FieldSocial
	FieldMetadata
	FieldHoneypot
)

var fieldNames = []struct {
	f    Field
	name string
}{
	{FieldHolderCount, "holder_count"},
	{FieldTop1HolderPct, "top1_holder_pct"},
	{FieldTop5HolderPct, "top5_holder_pct"},
	{FieldLPLockRatio, "lp_lock_ratio"},
	{FieldBuyTaxBps, "buy_tax_bps"},
	{FieldSellTaxBps, "sell_tax_bps"},
	{FieldMintAuthorityRevoked, "mint_authority_revoked"},
	{FieldFreezeAuthorityRevoked, "freeze_authority_revoked"},
	{FieldOwnerRenounced, "owner_renounced_or_timelocked"},
	{FieldBlacklist, "has_blacklist_or_whitelist"},
	{FieldSocial, "social"},
	{FieldMetadata, "metadata"},
	{FieldHoneypot, "is_honeypot"},
}

// FieldSet is a set of fields an enricher owns.
type FieldSet uint32

// Fields builds a FieldSet.
func Fields(fs ...Field) FieldSet {
	var s FieldSet
	for _, f := range fs {
		s |= FieldSet(f)
	}
	return s
}

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool {
	return s&FieldSet(f) != 0
}

// Overlap returns the fields present in both sets.
func (s FieldSet) Overlap(other FieldSet) FieldSet {
	return s & other
}

// String lists field names joined by commas.
func (s FieldSet) String() string {
	var names []string
	for _, fn := range fieldNames {
		if s.Has(fn.f) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}
