package clickhouse

import (
	"context"
	"fmt"
	"time"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/storage"
)

// ScanResultStore implements storage.ScanResultStore using ClickHouse.
// Results are flattened into one wide row per candidate.
type ScanResultStore struct {
	conn *Conn
}

// NewScanResultStore creates a new ScanResultStore.
func NewScanResultStore(conn *Conn) *ScanResultStore {
	return &ScanResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScanResultStore = (*ScanResultStore)(nil)

const resultColumns = `
	scan_id, scan_started_at, rank, chain, address, symbol, name,
	price_usd, liquidity_usd, fdv_usd, age_minutes,
	volume_usd_1h, trades_5m, buyers_5m, sellers_5m,
	holder_count, top1_holder_pct, top5_holder_pct,
	lp_lock_ratio, buy_tax_bps, sell_tax_bps,
	mint_authority_revoked, freeze_authority_revoked,
	owner_renounced_or_timelocked, has_blacklist_or_whitelist,
	twitter_followers, score, momentum_spike, sources`

// SaveScan writes the scan row and a batch of result rows.
// MergeTree does not enforce uniqueness, so the scan ID is checked first.
func (s *ScanResultStore) SaveScan(ctx context.Context, scan *storage.ScanRecord, results []*storage.RankedResult) error {
	if err := storage.ValidateScan(scan, results); err != nil {
		return err
	}

	exists, err := s.exists(ctx, scan.ScanID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	if len(results) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO scan_results ("+resultColumns+")")
		if err != nil {
			return fmt.Errorf("prepare batch: %w", err)
		}
		for _, r := range results {
			c := r.Candidate
			sources := c.Sources
			if sources == nil {
				sources = []string{}
			}
			err = batch.Append(
				scan.ScanID, scan.StartedAt, uint32(r.Rank), string(c.Chain), c.Address, c.Symbol, c.Name,
				c.PriceUSD, c.LiquidityUSD, c.FDVUSD, c.AgeMinutes,
				c.VolumeUSD1h, c.Trades5m, c.Buyers5m, c.Sellers5m,
				c.HolderCount, c.Top1HolderPct, c.Top5HolderPct,
				c.LPLockRatio, c.BuyTaxBps, c.SellTaxBps,
				int8(c.MintAuthorityRevoked), int8(c.FreezeAuthorityRevoked),
				int8(c.OwnerRenouncedOrTimelocked), int8(c.HasBlacklistOrWhitelist),
				c.TwitterFollowers, c.Score(), boolToUint8(c.MomentumSpike), sources,
			)
			if err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("send batch: %w", err)
		}
	}

	// Scan row last: a failed batch leaves no scan behind.
	err = s.conn.Exec(ctx, `
		INSERT INTO scans (scan_id, started_at, finished_at, failed, reason, discovered, published)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		scan.ScanID, scan.StartedAt, scan.FinishedAt, boolToUint8(scan.Failed), scan.Reason,
		uint32(scan.Discovered), uint32(scan.Published),
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// GetScan returns a scan by ID.
func (s *ScanResultStore) GetScan(ctx context.Context, scanID string) (*storage.ScanRecord, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT scan_id, started_at, finished_at, failed, reason, discovered, published
		FROM scans FINAL
		WHERE scan_id = ?
		LIMIT 1
	`, scanID)

	var (
		scan                  storage.ScanRecord
		failed                uint8
		discovered, published uint32
	)
	err := row.Scan(&scan.ScanID, &scan.StartedAt, &scan.FinishedAt, &failed, &scan.Reason, &discovered, &published)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	scan.Failed = failed == 1
	scan.Discovered = int(discovered)
	scan.Published = int(published)
	return &scan, nil
}

// GetResults returns the results of a scan ordered by rank ASC.
func (s *ScanResultStore) GetResults(ctx context.Context, scanID string) ([]*storage.RankedResult, error) {
	rows, err := s.conn.Query(ctx, "SELECT "+resultColumns+" FROM scan_results WHERE scan_id = ? ORDER BY rank ASC", scanID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func (s *ScanResultStore) exists(ctx context.Context, scanID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM scans FINAL WHERE scan_id = ?`, scanID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanResults(rows chRows) ([]*storage.RankedResult, error) {
	var results []*storage.RankedResult

	for rows.Next() {
		var (
			r                         storage.RankedResult
			c                         domain.Candidate
			rank                      uint32
			chain                     string
			mint, freeze, owner, list int8
			score                     float64
			spike                     uint8
			startedAt                 time.Time
		)
		err := rows.Scan(
			&r.ScanID, &startedAt, &rank, &chain, &c.Address, &c.Symbol, &c.Name,
			&c.PriceUSD, &c.LiquidityUSD, &c.FDVUSD, &c.AgeMinutes,
			&c.VolumeUSD1h, &c.Trades5m, &c.Buyers5m, &c.Sellers5m,
			&c.HolderCount, &c.Top1HolderPct, &c.Top5HolderPct,
			&c.LPLockRatio, &c.BuyTaxBps, &c.SellTaxBps,
			&mint, &freeze, &owner, &list,
			&c.TwitterFollowers, &score, &spike, &c.Sources,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		c.Chain = domain.Chain(chain)
		c.MintAuthorityRevoked = domain.Flag(mint)
		c.FreezeAuthorityRevoked = domain.Flag(freeze)
		c.OwnerRenouncedOrTimelocked = domain.Flag(owner)
		c.HasBlacklistOrWhitelist = domain.Flag(list)
		c.ScoreTotal = &score
		c.MomentumSpike = spike == 1
		r.Rank = int(rank)
		r.Candidate = &c
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return results, nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
