package storage

import (
	"context"
	"time"

	"memecoin-scout/internal/domain"
)

// SeenEntry is one persisted Seen-Set key.
type SeenEntry struct {
	Key    domain.Key
	SeenAt time.Time
}

// SeenStore persists the Seen-Set so it survives restarts.
type SeenStore interface {
	// MarkSeen records key. Marking an existing key refreshes its timestamp.
	MarkSeen(ctx context.Context, key domain.Key, at time.Time) error

	// LoadSeen returns every persisted key.
	LoadSeen(ctx context.Context) ([]SeenEntry, error)

	// ClearSeen removes every key.
	ClearSeen(ctx context.Context) error
}

// ScanRecord summarizes one published scan.
type ScanRecord struct {
	ScanID     string
	StartedAt  time.Time
	FinishedAt time.Time
	Failed     bool
	Reason     string
	Discovered int
	Published  int
}

// RankedResult is one published candidate and its position in the batch (1-based).
type RankedResult struct {
	ScanID    string
	Rank      int
	Candidate *domain.Candidate
}

// ScanResultStore keeps the history of published scans.
type ScanResultStore interface {
	// SaveScan stores the scan and its ranked results atomically where the backend allows.
	// Returns ErrDuplicateKey if the scan ID was already saved.
	SaveScan(ctx context.Context, scan *ScanRecord, results []*RankedResult) error

	// GetScan returns a scan by ID. Returns ErrNotFound if not exists.
	GetScan(ctx context.Context, scanID string) (*ScanRecord, error)

	// GetResults returns the results of a scan ordered by rank ASC.
	GetResults(ctx context.Context, scanID string) ([]*RankedResult, error)
}

// ValidateScan checks the input of SaveScan.
func ValidateScan(scan *ScanRecord, results []*RankedResult) error {
	if scan == nil || scan.ScanID == "" {
		return ErrInvalidInput
	}
	for _, r := range results {
		if r == nil || r.Candidate == nil || r.Rank < 1 {
			return ErrInvalidInput
		}
	}
	return nil
}
