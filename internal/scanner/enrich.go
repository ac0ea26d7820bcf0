package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/source"
)

type sourceCall struct {
	name    string
	outcome source.Outcome
}

type enrichResult struct {
	index     int
	candidate *domain.Candidate
	calls     []sourceCall
	// complete is false when an enricher call was cut off by the deadline.
	complete bool
}

// enrich runs the enrichers for each candidate with bounded concurrency. Each task works on
// its own clone. Candidates whose enrichment did not finish before the enrich deadline are
// left out of the result, which keeps discovery order.
func (s *Scanner) enrich(ctx context.Context, cands []*domain.Candidate, r *Report, logger zerolog.Logger) []*domain.Candidate {
	if len(cands) == 0 {
		return nil
	}

	ectx, cancel := context.WithTimeout(ctx, s.enrichDeadline)
	defer cancel()

	results := make(chan enrichResult, len(cands))
	finished := make(chan struct{})

	g, gctx := errgroup.WithContext(ectx)
	g.SetLimit(s.enrichConcurrency)
	go func() {
		defer close(finished)
		for i, c := range cands {
			if gctx.Err() != nil {
				break
			}
			i, c := i, c
			g.Go(func() error {
				results <- s.enrichOne(gctx, i, c, logger)
				return nil
			})
		}
		_ = g.Wait()
	}()

	done := make([]*domain.Candidate, len(cands))
	received := 0
collect:
	for received < len(cands) {
		select {
		case res := <-results:
			received++
			for _, call := range res.calls {
				r.RecordSource(call.name, call.outcome)
			}
			if res.complete {
				done[res.index] = res.candidate
			}
		case <-ectx.Done():
			break collect
		}
	}

	if received < len(cands) {
		logger.Warn().
			Int("pending", len(cands)-received).
			Dur("deadline", s.enrichDeadline).
			Msg("enrichment deadline reached")

		// In-flight calls see the cancelled context; wait at most hardTimeout for them.
		timer := time.NewTimer(s.hardTimeout)
		select {
		case <-finished:
		case <-timer.C:
			logger.Warn().Dur("hard_timeout", s.hardTimeout).Msg("abandoned enrichment tasks")
		}
		timer.Stop()
	}

	out := make([]*domain.Candidate, 0, len(cands))
	for _, c := range done {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// enrichOne applies every enricher for the candidate's chain to a clone of it. Attributes
// returned alongside an error are still applied.
func (s *Scanner) enrichOne(ctx context.Context, index int, c *domain.Candidate, logger zerolog.Logger) enrichResult {
	work := c.Clone()
	res := enrichResult{index: index, candidate: work, complete: true}

	for _, e := range s.sources.Enrichers(work.Chain) {
		if ctx.Err() != nil {
			res.complete = false
			break
		}

		attrs, err := e.Enrich(ctx, work)
		outcome := source.Classify(err)
		res.calls = append(res.calls, sourceCall{name: e.Name(), outcome: outcome})

		if n := attrs.ApplyTo(work, e.Fields()); n > 0 {
			work.AddSource(e.Name())
		}
		// Only the enrichment deadline makes a result incomplete. A throttled or failed call
		// leaves its attributes absent and the candidate moves on to filtering.
		if ctx.Err() != nil {
			res.complete = false
			break
		}
		if err != nil {
			logger.Debug().
				Err(err).
				Str("source", e.Name()).
				Str("address", work.Address).
				Str("outcome", string(outcome)).
				Msg("enrich")
		}
	}
	return res
}
