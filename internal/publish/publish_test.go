package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/source"
	"memecoin-scout/internal/storage"
	"memecoin-scout/internal/storage/memory"
)

func testBatch() *Batch {
	started := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	report := NewReport("scan-1", started)
	report.Discovered = 10
	report.FinishedAt = started.Add(3 * time.Second)

	return &Batch{
		ScanID:     "scan-1",
		StartedAt:  started,
		FinishedAt: report.FinishedAt,
		Report:     report,
		Ranked: []*domain.Candidate{
			{Chain: domain.ChainSolana, Address: "MintA", Symbol: "AAA", ScoreTotal: domain.Float(90), LiquidityUSD: 50000, MomentumSpike: true},
			{Chain: domain.ChainSolana, Address: "MintB", Symbol: "BBB", ScoreTotal: domain.Float(70), LiquidityUSD: 9000},
			{Chain: domain.ChainBase, Address: "0xc", Symbol: "CCC", ScoreTotal: domain.Float(40), LiquidityUSD: 4000},
		},
	}
}

func TestFanout_ContinuesAfterError(t *testing.T) {
	boom := errors.New("boom")
	var calls []string

	f := NewFanout(nil,
		Func(func(ctx context.Context, b *Batch) error {
			calls = append(calls, "first")
			return boom
		}),
		nil,
		Func(func(ctx context.Context, b *Batch) error {
			calls = append(calls, "second")
			return nil
		}),
	)

	if f.Len() != 2 {
		t.Fatalf("expected nil publisher dropped, got %d", f.Len())
	}
	err := f.Publish(context.Background(), testBatch())
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to wrap boom, got %v", err)
	}
	if strings.Join(calls, ",") != "first,second" {
		t.Errorf("unexpected call order %v", calls)
	}
}

func TestFanout_Empty(t *testing.T) {
	if err := NewFanout(nil).Publish(context.Background(), testBatch()); err != nil {
		t.Errorf("empty fanout must succeed, got %v", err)
	}
}

func TestLogPublisher_TopN(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	p := NewLogPublisher(2, &logger)

	if err := p.Publish(context.Background(), testBatch()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var candidates, spikes int
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		switch entry["message"] {
		case "candidate":
			candidates++
		case "momentum spike":
			spikes++
		}
	}
	if candidates != 2 {
		t.Errorf("expected top 2 candidates logged, got %d", candidates)
	}
	if spikes != 1 {
		t.Errorf("expected 1 momentum spike logged, got %d", spikes)
	}
}

func TestLogPublisher_EmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	b := testBatch()
	b.Ranked = nil

	if err := NewLogPublisher(0, &logger).Publish(context.Background(), b); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.Contains(buf.String(), "no new candidates") {
		t.Errorf("unexpected log output %q", buf.String())
	}
}

func TestStorePublisher(t *testing.T) {
	store := memory.NewScanResultStore()
	p := NewStorePublisher(store, "memory")
	ctx := context.Background()
	b := testBatch()

	if err := p.Publish(ctx, b); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	scan, err := store.GetScan(ctx, "scan-1")
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if scan.Published != 3 || scan.Discovered != 10 || scan.Failed {
		t.Errorf("unexpected scan record %+v", scan)
	}

	results, err := store.GetResults(ctx, "scan-1")
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Rank != i+1 || r.Candidate.Address != b.Ranked[i].Address {
			t.Errorf("result %d: rank %d address %s", i, r.Rank, r.Candidate.Address)
		}
	}

	// Scans are append-only.
	if err := p.Publish(ctx, b); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey on republish, got %v", err)
	}
}

func TestReport_SourceFailures(t *testing.T) {
	r := NewReport("scan-1", time.Now())
	r.RecordSource("dexscreener", source.OutcomeOK)
	r.RecordSource("dexscreener", source.OutcomeUnavailable)
	r.RecordSource("birdeye", source.OutcomeRateLimited)
	r.RecordSource("birdeye", source.OutcomeInvalidData)
	r.RecordSource("birdeye", source.OutcomeCancelled)
	r.RecordSource("birdeye", source.OutcomeThrottled)

	failed, total, bySource := r.SourceFailures()
	if failed != 2 || total != 5 {
		t.Errorf("expected 2/5 failed, got %d/%d", failed, total)
	}
	if bySource["dexscreener"] != 1 || bySource["birdeye"] != 1 {
		t.Errorf("unexpected per-source failures %v", bySource)
	}
}

func TestReport_MarshalZerologObject(t *testing.T) {
	r := NewReport("scan-1", time.Now())
	r.FilteredOut["liquidity_below_min"] = 3
	r.InvalidDropped = 2
	r.RecordSource("goplus", source.OutcomeOK)
	r.Failure = "all discovery calls failed"

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Info().EmbedObject(r).Msg("scan")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}
	reasons, ok := entry["filtered_out"].(map[string]interface{})
	if !ok || reasons["liquidity_below_min"] != float64(3) {
		t.Errorf("unexpected filtered_out %v", entry["filtered_out"])
	}
	if entry["invalid_dropped"] != float64(2) {
		t.Errorf("unexpected invalid_dropped %v", entry["invalid_dropped"])
	}
	if entry["failure"] != "all discovery calls failed" {
		t.Errorf("unexpected failure %v", entry["failure"])
	}
	if r.Rejected() != 3 || !r.Failed() {
		t.Errorf("unexpected totals rejected=%d failed=%v", r.Rejected(), r.Failed())
	}
}
