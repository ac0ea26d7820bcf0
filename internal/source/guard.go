package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"memecoin-scout/internal/observability"
)

// GuardConfig configures the per-adapter call guard.
type GuardConfig struct {
	// RequestsPerMinute is the self-imposed quota. 0 disables the limiter.
	RequestsPerMinute int
	// Burst is the token bucket size. Default: 1.
	Burst int
	// FailureThreshold is the number of consecutive unavailable errors that opens the circuit.
	// Default: 3.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before a trial call. Default: 1m.
	OpenTimeout time.Duration
	// BackoffInitial is the first backoff after a rate-limit response. Default: 5s.
	BackoffInitial time.Duration
	// BackoffMax caps the rate-limit backoff. Default: 5m.
	BackoffMax time.Duration
}

// Guard applies self rate limiting, a circuit breaker and rate-limit backoff to the calls
// of one adapter. It is safe for concurrent use.
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
	now     func() time.Time

	mu           sync.Mutex
	backoff      *backoff.ExponentialBackOff
	blockedUntil time.Time
}

// NewGuard creates a guard for the named adapter.
func NewGuard(name string, cfg GuardConfig, logger *zerolog.Logger) *Guard {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 5 * time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 5 * time.Minute
	}

	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	l = l.With().Str("source", name).Logger()

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BackoffInitial
	b.MaxInterval = cfg.BackoffMax
	b.MaxElapsedTime = 0
	b.Reset()

	g := &Guard{
		name:    name,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  l,
		now:     time.Now,
		backoff: b,
	}

	threshold := cfg.FailureThreshold
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Only provider outages count against the circuit.
		IsSuccessful: func(err error) bool {
			return err == nil || Classify(err) != OutcomeUnavailable
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	return g
}

// Name returns the adapter name.
func (g *Guard) Name() string {
	return g.name
}

// Do runs fn under the guard. While backing off after a rate-limit response, or while the
// circuit is open, it fails fast without calling fn. Every call is counted in the source metrics.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := g.do(ctx, fn)
	observability.RecordSourceCall(g.name, string(Classify(err)), time.Since(start))
	return err
}

func (g *Guard) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if until, blocked := g.backingOff(); blocked {
		return fmt.Errorf("%s: backing off until %s: %w", g.name, until.Format(time.RFC3339), ErrRateLimited)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The limiter refuses up front when the wait would outlast ctx's deadline.
		return fmt.Errorf("%s: %w", g.name, ErrQuotaExhausted)
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%s: circuit open: %w", g.name, ErrSourceUnavailable)
	case errors.Is(err, ErrRateLimited):
		g.enterBackoff()
	case err == nil:
		g.resetBackoff()
	}
	return err
}

// State returns the circuit breaker state.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

func (g *Guard) backingOff() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blockedUntil, g.now().Before(g.blockedUntil)
}

func (g *Guard) enterBackoff() {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := g.backoff.NextBackOff()
	if d == backoff.Stop {
		d = g.backoff.MaxInterval
	}
	g.blockedUntil = g.now().Add(d)
	g.logger.Warn().Dur("backoff", d).Msg("provider rate limit hit, backing off")
}

func (g *Guard) resetBackoff() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.blockedUntil.IsZero() {
		g.backoff.Reset()
		g.blockedUntil = time.Time{}
	}
}
