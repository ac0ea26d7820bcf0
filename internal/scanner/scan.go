package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/filter"
	"memecoin-scout/internal/observability"
	"memecoin-scout/internal/publish"
	"memecoin-scout/internal/source"
)

func newScanID() string {
	return uuid.NewString()
}

// Scan runs one scan. It returns the report together with a *ScanFailure when the sources
// were mostly down, or with ctx.Err() when ctx was cancelled at a phase boundary.
// Only one scan runs at a time.
func (s *Scanner) Scan(ctx context.Context) (*Report, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	defer s.setState(StateIdle)

	r := publish.NewReport(s.newID(), s.now())
	logger := s.logger.With().Str("scan_id", r.ScanID).Logger()

	if n := s.seen.Prune(); n > 0 {
		logger.Debug().Int("expired", n).Msg("pruned seen set")
	}

	// Discovering
	s.setState(StateDiscovering)
	discovered := s.discover(ctx, r, logger)
	r.Discovered = len(discovered)
	if err := ctx.Err(); err != nil {
		return r, err
	}

	fresh := make([]*domain.Candidate, 0, len(discovered))
	for _, c := range discovered {
		if !s.seen.ShouldProcess(c.Chain, c.Address) {
			r.SkippedSeen++
			continue
		}
		// Enrichment only adds attributes, so a rejection on discovery data is final.
		if d := filter.Evaluate(c, s.filter); !d.Accepted {
			r.Prefiltered++
			r.FilteredOut[d.Reason.String()]++
			continue
		}
		fresh = append(fresh, c)
	}

	// Enriching
	s.setState(StateEnriching)
	enriched := s.enrich(ctx, fresh, r, logger)
	r.Enriched = len(enriched)
	r.EnrichTimeouts = len(fresh) - len(enriched)
	if err := ctx.Err(); err != nil {
		return r, err
	}

	// Filtering
	s.setState(StateFiltering)
	accepted := make([]*domain.Candidate, 0, len(enriched))
	for _, c := range enriched {
		d := filter.Evaluate(c, s.filter)
		if !d.Accepted {
			r.FilteredOut[d.Reason.String()]++
			logger.Debug().
				Str("address", c.Address).
				Str("reason", d.Reason.String()).
				Float64("actual", d.Actual).
				Float64("limit", d.Limit).
				Msg("rejected")
			continue
		}
		accepted = append(accepted, c)
	}

	// Scoring
	s.setState(StateScoring)
	for _, c := range accepted {
		s.scorer.Apply(c)
		if c.MomentumSpike {
			r.MomentumSpikes++
		}
	}
	ranked := Rank(accepted)
	r.Scored = len(ranked)
	if err := ctx.Err(); err != nil {
		return r, err
	}

	// Publishing
	s.setState(StatePublishing)
	for _, c := range ranked {
		if err := s.seen.MarkProcessed(ctx, c.Chain, c.Address); err != nil {
			logger.Warn().Err(err).Str("address", c.Address).Msg("persist seen mark")
		}
	}
	r.Published = len(ranked)
	r.FinishedAt = s.now()

	failure := s.failure(r)
	if failure != nil {
		r.Failure = failure.Reason
	}

	if s.publisher != nil {
		batch := &publish.Batch{
			ScanID:     r.ScanID,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Ranked:     ranked,
			Report:     r,
		}
		if err := s.publisher.Publish(ctx, batch); err != nil {
			logger.Warn().Err(err).Msg("publish")
		}
	}

	s.record(r)
	if failure != nil {
		logger.Warn().EmbedObject(r).Interface("source_errors", failure.SourceErrors).Msg("scan failed")
		return r, failure
	}
	logger.Info().EmbedObject(r).Msg("scan complete")
	return r, nil
}

type discoveryCall struct {
	name       string
	candidates []*domain.Candidate
	err        error
}

// discover queries every discoverer on every allowed chain concurrently and merges the
// results by key. The first discoverer to report a key wins; later ones add provenance.
func (s *Scanner) discover(ctx context.Context, r *Report, logger zerolog.Logger) []*domain.Candidate {
	var calls []*discoveryCall
	var wg sync.WaitGroup
	for _, chain := range s.filter.Chains {
		for _, d := range s.sources.Discoverers(chain) {
			call := &discoveryCall{name: d.Name()}
			calls = append(calls, call)

			wg.Add(1)
			go func(d source.Discoverer, chain domain.Chain) {
				defer wg.Done()
				call.candidates, call.err = d.Discover(ctx, chain, s.filter.MaxAgeMinutes)
			}(d, chain)
		}
	}
	wg.Wait()

	var out []*domain.Candidate
	byKey := make(map[domain.Key]*domain.Candidate)
	for _, call := range calls {
		outcome := source.Classify(call.err)
		r.RecordSource(call.name, outcome)
		r.DiscoveryCalls++
		if outcome.Failed() {
			r.DiscoveryFailures++
		}
		if call.err != nil {
			logger.Warn().Err(call.err).Str("source", call.name).Str("outcome", string(outcome)).Msg("discovery")
		}

		for _, c := range call.candidates {
			if err := c.Validate(); err != nil {
				r.InvalidDropped++
				logger.Debug().Err(err).Str("source", call.name).Msg("dropped invalid candidate")
				continue
			}
			key := c.Key()
			if prev, ok := byKey[key]; ok {
				for _, src := range c.Sources {
					prev.AddSource(src)
				}
				continue
			}
			byKey[key] = c
			out = append(out, c)
		}
	}
	return out
}

// failure decides whether the scan counts as failed.
func (s *Scanner) failure(r *Report) *ScanFailure {
	failed, total, bySource := r.SourceFailures()

	var reason string
	switch {
	case r.DiscoveryCalls > 0 && r.DiscoveryFailures == r.DiscoveryCalls:
		reason = fmt.Sprintf("all %d discovery calls failed", r.DiscoveryCalls)
	case total >= minCallsForRatio && float64(failed)/float64(total) > s.maxFailureRatio:
		reason = fmt.Sprintf("%d of %d source calls failed", failed, total)
	default:
		return nil
	}

	return &ScanFailure{
		ScanID:       r.ScanID,
		Reason:       reason,
		SourceErrors: bySource,
	}
}

func (s *Scanner) record(r *Report) {
	observability.RecordScan(r.Failed(), r.Duration(), r.FinishedAt)
	observability.RecordCandidates("discovered", r.Discovered)
	observability.RecordCandidates("invalid", r.InvalidDropped)
	observability.RecordCandidates("skipped_seen", r.SkippedSeen)
	observability.RecordCandidates("enriched", r.Enriched)
	observability.RecordCandidates("scored", r.Scored)
	observability.RecordCandidates("published", r.Published)
	observability.RecordRejections(r.FilteredOut)
	observability.RecordEnrichTimeouts(r.EnrichTimeouts)
	observability.RecordMomentumSpikes(r.MomentumSpikes)
	observability.SetSeenSetSize(s.seen.Len())
}

// Rank sorts candidates by score desc, liquidity desc, then address and chain asc.
// It sorts in place and returns the slice.
func Rank(cands []*domain.Candidate) []*domain.Candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		if a.LiquidityUSD != b.LiquidityUSD {
			return a.LiquidityUSD > b.LiquidityUSD
		}
		if a.Address != b.Address {
			return a.Address < b.Address
		}
		return a.Chain < b.Chain
	})
	return cands
}
