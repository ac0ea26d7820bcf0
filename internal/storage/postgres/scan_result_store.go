package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/storage"
)

// ScanResultStore implements storage.ScanResultStore using PostgreSQL. Each result keeps the
// full candidate as JSONB next to the columns used for lookups.
type ScanResultStore struct {
	pool *Pool
}

// NewScanResultStore creates a new ScanResultStore.
func NewScanResultStore(pool *Pool) *ScanResultStore {
	return &ScanResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScanResultStore = (*ScanResultStore)(nil)

// SaveScan inserts the scan and its results in one transaction.
func (s *ScanResultStore) SaveScan(ctx context.Context, scan *storage.ScanRecord, results []*storage.RankedResult) error {
	if err := storage.ValidateScan(scan, results); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO scans (scan_id, started_at, finished_at, failed, reason, discovered, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		scan.ScanID,
		scan.StartedAt.UTC(),
		scan.FinishedAt.UTC(),
		scan.Failed,
		scan.Reason,
		scan.Discovered,
		scan.Published,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert scan: %w", err)
	}

	query := `
		INSERT INTO scan_results (
			scan_id, rank, chain, address, symbol, score, liquidity_usd, momentum_spike, candidate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, r := range results {
		c := r.Candidate
		body, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode candidate %s: %w", c.Key(), err)
		}
		_, err = tx.Exec(ctx, query,
			scan.ScanID,
			r.Rank,
			string(c.Chain),
			c.Address,
			c.Symbol,
			c.ScoreTotal,
			c.LiquidityUSD,
			c.MomentumSpike,
			body,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert scan result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetScan returns a scan by ID.
func (s *ScanResultStore) GetScan(ctx context.Context, scanID string) (*storage.ScanRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT scan_id, started_at, finished_at, failed, reason, discovered, published
		FROM scans
		WHERE scan_id = $1
	`, scanID)

	var scan storage.ScanRecord
	err := row.Scan(
		&scan.ScanID,
		&scan.StartedAt,
		&scan.FinishedAt,
		&scan.Failed,
		&scan.Reason,
		&scan.Discovered,
		&scan.Published,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scan: %w", err)
	}
	return &scan, nil
}

// GetResults returns the results of a scan ordered by rank ASC.
func (s *ScanResultStore) GetResults(ctx context.Context, scanID string) ([]*storage.RankedResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT scan_id, rank, candidate
		FROM scan_results
		WHERE scan_id = $1
		ORDER BY rank ASC
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("get scan results: %w", err)
	}
	defer rows.Close()

	var results []*storage.RankedResult
	for rows.Next() {
		var r storage.RankedResult
		var body []byte
		if err := rows.Scan(&r.ScanID, &r.Rank, &body); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		var c domain.Candidate
		if err := json.Unmarshal(body, &c); err != nil {
			return nil, fmt.Errorf("decode candidate: %w", err)
		}
		r.Candidate = &c
		results = append(results, &r)
	}

	return results, rows.Err()
}
