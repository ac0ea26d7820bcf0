package publish

import (
	"context"
	"fmt"
	"time"

	"memecoin-scout/internal/observability"
	"memecoin-scout/internal/storage"
)

// StorePublisher appends every batch to a ScanResultStore.
type StorePublisher struct {
	store    storage.ScanResultStore
	database string
}

// NewStorePublisher creates a StorePublisher. database labels the query metrics.
func NewStorePublisher(store storage.ScanResultStore, database string) *StorePublisher {
	return &StorePublisher{store: store, database: database}
}

// Publish implements Publisher.
func (p *StorePublisher) Publish(ctx context.Context, b *Batch) error {
	scan := &storage.ScanRecord{
		ScanID:     b.ScanID,
		StartedAt:  b.StartedAt,
		FinishedAt: b.FinishedAt,
		Published:  len(b.Ranked),
	}
	if b.Report != nil {
		scan.Failed = b.Report.Failed()
		scan.Reason = b.Report.Failure
		scan.Discovered = b.Report.Discovered
	}

	results := make([]*storage.RankedResult, len(b.Ranked))
	for i, c := range b.Ranked {
		results[i] = &storage.RankedResult{
			ScanID:    b.ScanID,
			Rank:      i + 1,
			Candidate: c,
		}
	}

	start := time.Now()
	err := p.store.SaveScan(ctx, scan, results)
	observability.RecordDBQuery(p.database, "save_scan", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("save scan %s: %w", b.ScanID, err)
	}
	return nil
}
