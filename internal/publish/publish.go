// Package publish hands the ranked result of a scan to downstream consumers.
//
// The scanner works without any publisher attached; a Batch is produced either way.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"memecoin-scout/internal/domain"
)

// Batch is the output of one scan: the published candidates in rank order and the scan report.
type Batch struct {
	ScanID     string
	StartedAt  time.Time
	FinishedAt time.Time
	Ranked     []*domain.Candidate
	Report     *Report
}

// Publisher consumes batches. Implementations must not modify the candidates.
type Publisher interface {
	Publish(ctx context.Context, b *Batch) error
}

// Func adapts a function to Publisher.
type Func func(ctx context.Context, b *Batch) error

// Publish implements Publisher.
func (f Func) Publish(ctx context.Context, b *Batch) error {
	return f(ctx, b)
}

// Fanout publishes each batch to every publisher in order. A failing publisher does not stop
// the others; all errors are joined.
type Fanout struct {
	publishers []Publisher
	logger     zerolog.Logger
}

// NewFanout creates a Fanout. Nil publishers are ignored.
func NewFanout(logger *zerolog.Logger, publishers ...Publisher) *Fanout {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	f := &Fanout{logger: l}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Len returns the number of attached publishers.
func (f *Fanout) Len() int {
	return len(f.publishers)
}

// Publish implements Publisher.
func (f *Fanout) Publish(ctx context.Context, b *Batch) error {
	var errs []error
	for i, p := range f.publishers {
		if err := p.Publish(ctx, b); err != nil {
			f.logger.Warn().Err(err).Str("scan_id", b.ScanID).Int("publisher", i).Msg("publish failed")
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
