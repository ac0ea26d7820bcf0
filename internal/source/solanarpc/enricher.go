// Package solanarpc reads SPL mint authorities and Metaplex names straight from a Solana RPC
// node.
package solanarpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/solana"
	"memecoin-scout/internal/source"
)

// Name is the adapter name.
const Name = "solana_rpc"

// Options configures Enricher.
type Options struct {
	// Client is the RPC client. Required.
	Client solana.RPCClient
	// Guard defaults to 120 requests per minute.
	Guard  *source.Guard
	Logger *zerolog.Logger
}

// Enricher owns the mint and freeze authority flags and fills missing names on Solana.
type Enricher struct {
	rpc    solana.RPCClient
	guard  *source.Guard
	logger zerolog.Logger
}

// New creates the enricher.
func New(opts Options) *Enricher {
	if opts.Guard == nil {
		opts.Guard = source.NewGuard(Name, source.GuardConfig{RequestsPerMinute: 120, Burst: 4}, opts.Logger)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Enricher{
		rpc:    opts.Client,
		guard:  opts.Guard,
		logger: logger.With().Str("source", Name).Logger(),
	}
}

// Name implements source.Enricher.
func (e *Enricher) Name() string { return Name }

// Chains implements source.Enricher.
func (e *Enricher) Chains() []domain.Chain { return []domain.Chain{domain.ChainSolana} }

// Fields implements source.Enricher.
func (e *Enricher) Fields() domain.FieldSet {
	return domain.Fields(domain.FieldMintAuthorityRevoked, domain.FieldFreezeAuthorityRevoked, domain.FieldMetadata)
}

// Enrich reads the mint account and, when the candidate has no name, the metadata account.
func (e *Enricher) Enrich(ctx context.Context, c *domain.Candidate) (*source.Attributes, error) {
	if !solana.IsValidPubkey(c.Address) {
		return nil, fmt.Errorf("%s: %q is not a pubkey: %w", Name, c.Address, source.ErrInvalidData)
	}

	info, err := e.account(ctx, c.Address)
	if err != nil {
		return nil, fmt.Errorf("%s: mint account: %w", Name, err)
	}
	if info == nil {
		return &source.Attributes{}, nil
	}
	if info.Owner != solana.TokenProgramID && info.Owner != solana.Token2022ProgramID {
		return nil, fmt.Errorf("%s: %s owned by %s: %w", Name, c.Address, info.Owner, source.ErrInvalidData)
	}

	mint, err := solana.ParseMint(info.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", Name, err, source.ErrInvalidData)
	}
	attrs := &source.Attributes{
		MintAuthorityRevoked:   domain.FlagOf(mint.MintAuthorityRevoked()),
		FreezeAuthorityRevoked: domain.FlagOf(mint.FreezeAuthorityRevoked()),
	}

	if c.Name != "" && c.Symbol != "" {
		return attrs, nil
	}

	pda, err := solana.MetadataPDA(c.Address)
	if err != nil {
		e.logger.Debug().Err(err).Str("address", c.Address).Msg("metadata pda")
		return attrs, nil
	}
	metaInfo, err := e.account(ctx, pda)
	if err != nil {
		return attrs, fmt.Errorf("%s: metadata account: %w", Name, err)
	}
	if metaInfo == nil {
		return attrs, nil
	}
	meta, err := solana.ParseMetadata(metaInfo.Data)
	if err != nil {
		e.logger.Debug().Err(err).Str("address", c.Address).Msg("unparseable metadata")
		return attrs, nil
	}
	attrs.Name = meta.Name
	attrs.Symbol = meta.Symbol
	return attrs, nil
}

func (e *Enricher) account(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	var info *solana.AccountInfo
	err := e.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		info, err = e.rpc.GetAccountInfo(ctx, pubkey)
		return classify(err)
	})
	return info, err
}

// classify maps RPC client errors onto the adapter taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, solana.ErrRateLimited):
		return fmt.Errorf("%v: %w", err, source.ErrRateLimited)
	case errors.Is(err, solana.ErrInvalidResponse):
		return fmt.Errorf("%v: %w", err, source.ErrInvalidData)
	default:
		return fmt.Errorf("%v: %w", err, source.ErrSourceUnavailable)
	}
}
