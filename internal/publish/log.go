package publish

import (
	"context"

	"github.com/rs/zerolog"
)

// DefaultTopN is the number of candidates LogPublisher prints per batch.
const DefaultTopN = 5

// LogPublisher writes a summary of each batch and its top candidates to the log.
type LogPublisher struct {
	topN   int
	logger zerolog.Logger
}

// NewLogPublisher creates a LogPublisher. topN <= 0 uses DefaultTopN.
func NewLogPublisher(topN int, logger *zerolog.Logger) *LogPublisher {
	if topN <= 0 {
		topN = DefaultTopN
	}
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &LogPublisher{topN: topN, logger: l}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, b *Batch) error {
	if len(b.Ranked) == 0 {
		p.logger.Info().Str("scan_id", b.ScanID).Msg("no new candidates")
		return nil
	}

	p.logger.Info().Str("scan_id", b.ScanID).Int("published", len(b.Ranked)).Msg("top candidates")
	for i, c := range b.Ranked {
		if i >= p.topN {
			break
		}
		ev := p.logger.Info().
			Str("scan_id", b.ScanID).
			Int("rank", i+1).
			Str("chain", c.Chain.String()).
			Str("address", c.Address).
			Str("symbol", c.Symbol).
			Float64("score", c.Score()).
			Float64("liquidity_usd", c.LiquidityUSD).
			Float64("volume_usd_1h", c.VolumeUSD1h).
			Int64("age_minutes", c.AgeMinutes)
		if c.URL != "" {
			ev = ev.Str("url", c.URL)
		}
		ev.Msg("candidate")

		if c.MomentumSpike {
			p.logger.Warn().
				Str("scan_id", b.ScanID).
				Str("address", c.Address).
				Str("symbol", c.Symbol).
				Float64("volume_usd_1h", c.VolumeUSD1h).
				Msg("momentum spike")
		}
	}
	return nil
}
