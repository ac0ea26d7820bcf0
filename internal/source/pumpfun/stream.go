package pumpfun

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/solana"
	"memecoin-scout/internal/source"
)

// Name is the adapter name.
const Name = "pumpfun"

// DefaultMaxPending bounds the number of buffered launches.
const DefaultMaxPending = 5000

// LogSubscriber delivers program log notifications until ctx is done.
// *solana.LogStream implements it.
type LogSubscriber interface {
	Run(ctx context.Context, filter solana.LogsFilter, handle func(solana.LogNotification)) error
}

// Options configures Stream.
type Options struct {
	// Logs is the WebSocket log subscription. Required.
	Logs LogSubscriber
	// Resolver turns buffered mints into candidates with market data. Required.
	Resolver source.Resolver
	// MaxPending defaults to DefaultMaxPending.
	MaxPending int
	Logger     *zerolog.Logger
}

type pending struct {
	launch    Launch
	firstSeen time.Time
}

// Stream discovers pump.fun launches as they happen. Mints are buffered until a DEX pair
// is indexed for them or they age out.
type Stream struct {
	logs       LogSubscriber
	resolver   source.Resolver
	maxPending int
	logger     zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	pending map[string]pending
}

// NewStream creates the discoverer. Call Start to begin listening.
func NewStream(opts Options) *Stream {
	if opts.MaxPending <= 0 {
		opts.MaxPending = DefaultMaxPending
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Stream{
		logs:       opts.Logs,
		resolver:   opts.Resolver,
		maxPending: opts.MaxPending,
		logger:     logger.With().Str("source", Name).Logger(),
		now:        time.Now,
		pending:    make(map[string]pending),
	}
}

// Name implements source.Discoverer.
func (s *Stream) Name() string { return Name }

// Chains implements source.Discoverer.
func (s *Stream) Chains() []domain.Chain { return []domain.Chain{domain.ChainSolana} }

// Start listens for launches in the background until ctx is done.
func (s *Stream) Start(ctx context.Context) {
	go func() {
		err := s.logs.Run(ctx, solana.LogsFilter{Mentions: []string{ProgramID}}, s.handle)
		if err != nil {
			s.logger.Error().Err(err).Msg("log stream stopped")
		}
	}()
}

func (s *Stream) handle(n solana.LogNotification) {
	if n.Failed() {
		return
	}
	launches := ParseCreates(n.Logs)
	if len(launches) == 0 {
		return
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range launches {
		if _, ok := s.pending[l.Mint]; ok {
			continue
		}
		if len(s.pending) >= s.maxPending {
			s.evictOldest()
		}
		s.pending[l.Mint] = pending{launch: l, firstSeen: now}
		s.logger.Debug().Str("mint", l.Mint).Str("symbol", l.Symbol).Str("signature", n.Signature).Msg("launch")
	}
}

// evictOldest drops the earliest buffered launch. Caller holds mu.
func (s *Stream) evictOldest() {
	var oldest string
	var at time.Time
	for mint, p := range s.pending {
		if oldest == "" || p.firstSeen.Before(at) {
			oldest, at = mint, p.firstSeen
		}
	}
	delete(s.pending, oldest)
}

// Pending returns the number of buffered launches.
func (s *Stream) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Discover resolves buffered launches. Resolved mints leave the buffer; unresolved ones
// stay until they are older than maxAgeMinutes. When the resolver fails part way, the
// launches it did resolve are returned with the error.
func (s *Stream) Discover(ctx context.Context, chain domain.Chain, maxAgeMinutes int64) ([]*domain.Candidate, error) {
	if chain != domain.ChainSolana {
		return nil, nil
	}

	now := s.now()
	cutoff := now.Add(-time.Duration(maxAgeMinutes) * time.Minute)

	s.mu.Lock()
	mints := make([]string, 0, len(s.pending))
	launches := make(map[string]pending, len(s.pending))
	for mint, p := range s.pending {
		if p.firstSeen.Before(cutoff) {
			delete(s.pending, mint)
			continue
		}
		mints = append(mints, mint)
		launches[mint] = p
	}
	s.mu.Unlock()

	if len(mints) == 0 {
		return nil, nil
	}
	sort.Strings(mints)

	resolved, err := s.resolver.Resolve(ctx, chain, mints)
	if err != nil {
		err = fmt.Errorf("%s: resolve %d launches: %w", Name, len(mints), err)
		if len(resolved) == 0 {
			return nil, err
		}
	}

	out := make([]*domain.Candidate, 0, len(resolved))
	s.mu.Lock()
	for _, c := range resolved {
		p, ok := launches[c.Address]
		if !ok {
			continue
		}
		delete(s.pending, c.Address)

		if c.ListedAt.IsZero() || p.firstSeen.Before(c.ListedAt) {
			c.ListedAt = p.firstSeen
		}
		c.SetAge(now)
		if c.AgeMinutes > maxAgeMinutes {
			continue
		}
		if c.Name == "" {
			c.Name = p.launch.Name
		}
		if c.Symbol == "" {
			c.Symbol = p.launch.Symbol
		}
		c.AddSource(Name)
		out = append(out, c)
	}
	s.mu.Unlock()

	s.logger.Debug().Int("buffered", len(mints)).Int("resolved", len(out)).Msg("discover")
	return out, err
}
