// Package scanner runs the scan loop: discovery, seen exclusion, enrichment, filtering,
// scoring, ranking and publishing.
//
// A scan degrades instead of aborting. Adapter failures leave attributes absent, candidates
// whose enrichment misses the deadline are dropped for this scan, and only an outage across
// the sources turns the scan into a ScanFailure, which still publishes what it has.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/observability"
	"memecoin-scout/internal/publish"
	"memecoin-scout/internal/scoring"
	"memecoin-scout/internal/seen"
	"memecoin-scout/internal/source"
)

// Defaults.
const (
	DefaultInterval          = 60 * time.Second
	DefaultFailureBackoff    = 30 * time.Second
	DefaultEnrichConcurrency = 8
	DefaultEnrichDeadline    = 20 * time.Second
	DefaultHardTimeout       = 5 * time.Second
	DefaultMaxFailureRatio   = 0.5

	// minCallsForRatio is the fewest adapter calls for the failure ratio to apply.
	minCallsForRatio = 5
)

// State is the scanner phase.
type State int32

const (
	StateIdle State = iota
	StateDiscovering
	StateEnriching
	StateFiltering
	StateScoring
	StatePublishing
)

var stateNames = []string{"idle", "discovering", "enriching", "filtering", "scoring", "publishing"}

// String returns the state name.
func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Report is the per-scan count summary.
type Report = publish.Report

// ScanFailure is returned by Scan when too many adapter calls failed. The partial result
// was still published.
type ScanFailure struct {
	ScanID       string
	Reason       string
	SourceErrors map[string]int
}

func (f *ScanFailure) Error() string {
	return fmt.Sprintf("scan %s failed: %s", f.ScanID, f.Reason)
}

// Options configures New.
type Options struct {
	// Sources holds the adapters. Required, with at least one discoverer.
	Sources *source.Registry
	// Filter is applied before and after enrichment. Chains also selects where to discover.
	Filter domain.FilterConfig
	// Scorer is required.
	Scorer *scoring.Engine
	// Seen defaults to an in-memory set without TTL.
	Seen *seen.Set
	// Publisher may be nil.
	Publisher publish.Publisher

	Interval          time.Duration // default 60s
	FailureBackoff    time.Duration // default 30s
	EnrichConcurrency int           // default 8
	EnrichDeadline    time.Duration // default 20s
	HardTimeout       time.Duration // default 5s
	MaxFailureRatio   float64       // default 0.5

	Logger *zerolog.Logger
}

// Scanner drives scans. Scan and Evaluate may be called concurrently with State.
type Scanner struct {
	sources   *source.Registry
	filter    domain.FilterConfig
	scorer    *scoring.Engine
	seen      *seen.Set
	publisher publish.Publisher

	interval          time.Duration
	failureBackoff    time.Duration
	enrichConcurrency int
	enrichDeadline    time.Duration
	hardTimeout       time.Duration
	maxFailureRatio   float64

	logger zerolog.Logger
	now    func() time.Time
	newID  func() string

	state  atomic.Int32
	scanMu sync.Mutex
}

// New validates opts and creates a Scanner.
func New(opts Options) (*Scanner, error) {
	if opts.Sources == nil || opts.Sources.Empty() {
		return nil, errors.New("scanner: no discovery source configured")
	}
	if opts.Scorer == nil {
		return nil, errors.New("scanner: scorer is required")
	}
	if len(opts.Filter.Chains) == 0 {
		return nil, errors.New("scanner: filter has no chains")
	}
	if opts.Interval < 0 || opts.FailureBackoff < 0 || opts.EnrichDeadline < 0 || opts.HardTimeout < 0 {
		return nil, errors.New("scanner: negative duration")
	}
	if opts.MaxFailureRatio < 0 || opts.MaxFailureRatio > 1 {
		return nil, fmt.Errorf("scanner: max failure ratio %v out of [0,1]", opts.MaxFailureRatio)
	}

	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FailureBackoff == 0 {
		opts.FailureBackoff = DefaultFailureBackoff
	}
	if opts.EnrichConcurrency <= 0 {
		opts.EnrichConcurrency = DefaultEnrichConcurrency
	}
	if opts.EnrichDeadline == 0 {
		opts.EnrichDeadline = DefaultEnrichDeadline
	}
	if opts.HardTimeout == 0 {
		opts.HardTimeout = DefaultHardTimeout
	}
	if opts.MaxFailureRatio == 0 {
		opts.MaxFailureRatio = DefaultMaxFailureRatio
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	set := opts.Seen
	if set == nil {
		set = seen.New(seen.Options{Logger: opts.Logger})
	}

	return &Scanner{
		sources:           opts.Sources,
		filter:            opts.Filter,
		scorer:            opts.Scorer,
		seen:              set,
		publisher:         opts.Publisher,
		interval:          opts.Interval,
		failureBackoff:    opts.FailureBackoff,
		enrichConcurrency: opts.EnrichConcurrency,
		enrichDeadline:    opts.EnrichDeadline,
		hardTimeout:       opts.HardTimeout,
		maxFailureRatio:   opts.MaxFailureRatio,
		logger:            logger.With().Str("component", "scanner").Logger(),
		now:               time.Now,
		newID:             newScanID,
	}, nil
}

// State returns the current phase.
func (s *Scanner) State() State {
	return State(s.state.Load())
}

func (s *Scanner) setState(st State) {
	s.state.Store(int32(st))
	observability.SetScannerState(st.String(), stateNames)
}

// Seen returns the scanner's Seen-Set.
func (s *Scanner) Seen() *seen.Set {
	return s.seen
}

// Run scans until ctx is cancelled. A completed scan waits the interval; a failed one waits
// the failure backoff. Run returns nil on cancellation.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("failure_backoff", s.failureBackoff).
		Int("enrich_concurrency", s.enrichConcurrency).
		Msg("scanner started")

	for {
		_, err := s.Scan(ctx)
		if ctx.Err() != nil {
			s.logger.Info().Msg("scanner stopped")
			return nil
		}

		wait := s.interval
		if err != nil {
			wait = s.failureBackoff
			var sf *ScanFailure
			if !errors.As(err, &sf) {
				s.logger.Error().Err(err).Msg("scan error")
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("scanner stopped")
			return nil
		case <-timer.C:
		}
	}
}
