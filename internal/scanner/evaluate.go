package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/filter"
	"memecoin-scout/internal/source"
)

// ErrNoResolver is returned by Evaluate when no market resolver is configured.
var ErrNoResolver = errors.New("scanner: no market resolver configured")

// Evaluation is the one-shot verdict on a single token.
type Evaluation struct {
	Candidate *domain.Candidate
	Decision  filter.Decision
	// Listed is false when no DEX pair was found; market attributes are then zero.
	Listed bool
	// Seen reports whether the token was already published by a scan.
	Seen bool
	// Sources lists enricher outcomes by adapter name.
	Sources map[string]source.Outcome
	// Risk is assessed on the enriched attributes, independently of the filter.
	Risk Risk
}

// Evaluate runs resolve, enrich, filter and score for one address outside the scan loop.
// The candidate is scored even when the filter rejects it. The Seen-Set is not modified.
func (s *Scanner) Evaluate(ctx context.Context, chain domain.Chain, address string) (*Evaluation, error) {
	address = strings.TrimSpace(address)
	if chain == "" || address == "" {
		return nil, errors.New("scanner: chain and address are required")
	}
	resolver := s.sources.Resolver()
	if resolver == nil {
		return nil, ErrNoResolver
	}

	key := domain.NewKey(chain, address)
	found, err := resolver.Resolve(ctx, chain, []string{address})
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", key, err)
	}

	ev := &Evaluation{
		Seen:    !s.seen.ShouldProcess(chain, address),
		Sources: make(map[string]source.Outcome),
	}
	for _, c := range found {
		if c.Key() == key {
			ev.Candidate = c
			ev.Listed = true
			break
		}
	}
	if ev.Candidate == nil {
		ev.Candidate = &domain.Candidate{Chain: chain, Address: address}
	}

	ectx, cancel := context.WithTimeout(ctx, s.enrichDeadline)
	defer cancel()
	res := s.enrichOne(ectx, 0, ev.Candidate, s.logger)
	for _, call := range res.calls {
		ev.Sources[call.name] = call.outcome
	}
	ev.Candidate = res.candidate

	ev.Decision = filter.Evaluate(ev.Candidate, s.filter)
	s.scorer.Apply(ev.Candidate)
	ev.Risk = AssessRisk(ev.Candidate)

	s.logger.Info().
		Str("chain", chain.String()).
		Str("address", address).
		Bool("listed", ev.Listed).
		Bool("accepted", ev.Decision.Accepted).
		Str("reason", ev.Decision.Reason.String()).
		Float64("score", ev.Candidate.Score()).
		Int("risk", ev.Risk.Score).
		Msg("evaluated")
	return ev, nil
}
