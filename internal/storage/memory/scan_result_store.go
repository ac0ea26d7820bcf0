package memory

import (
	"context"
	"sort"
	"sync"

	"memecoin-scout/internal/storage"
)

// ScanResultStore is an in-memory implementation of storage.ScanResultStore.
type ScanResultStore struct {
	mu      sync.RWMutex
	scans   map[string]*storage.ScanRecord
	results map[string][]*storage.RankedResult
}

// NewScanResultStore creates a new in-memory scan result store.
func NewScanResultStore() *ScanResultStore {
	return &ScanResultStore{
		scans:   make(map[string]*storage.ScanRecord),
		results: make(map[string][]*storage.RankedResult),
	}
}

// Compile-time interface check.
var _ storage.ScanResultStore = (*ScanResultStore)(nil)

// SaveScan stores the scan and its results. Returns ErrDuplicateKey if the scan exists.
func (s *ScanResultStore) SaveScan(_ context.Context, scan *storage.ScanRecord, results []*storage.RankedResult) error {
	if err := storage.ValidateScan(scan, results); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.scans[scan.ScanID]; exists {
		return storage.ErrDuplicateKey
	}

	scanCopy := *scan
	s.scans[scan.ScanID] = &scanCopy

	stored := make([]*storage.RankedResult, len(results))
	for i, r := range results {
		stored[i] = &storage.RankedResult{
			ScanID:    scan.ScanID,
			Rank:      r.Rank,
			Candidate: r.Candidate.Clone(),
		}
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Rank < stored[j].Rank })
	s.results[scan.ScanID] = stored
	return nil
}

// GetScan returns a scan by ID.
func (s *ScanResultStore) GetScan(_ context.Context, scanID string) (*storage.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scan, ok := s.scans[scanID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	scanCopy := *scan
	return &scanCopy, nil
}

// GetResults returns the results of a scan in rank order.
func (s *ScanResultStore) GetResults(_ context.Context, scanID string) ([]*storage.RankedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.results[scanID]
	out := make([]*storage.RankedResult, len(stored))
	for i, r := range stored {
		out[i] = &storage.RankedResult{
			ScanID:    r.ScanID,
			Rank:      r.Rank,
			Candidate: r.Candidate.Clone(),
		}
	}
	return out, nil
}
