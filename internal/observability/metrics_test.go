package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test_scout", reg)

	m.ScansTotal.WithLabelValues("completed").Inc()
	m.FilterRejected.WithLabelValues("liquidity_below_min").Add(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	values := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			values[mf.GetName()] += metric.GetCounter().GetValue()
		}
	}
	if values["test_scout_scan_runs_total"] != 1 {
		t.Errorf("expected 1 scan, got %v", values["test_scout_scan_runs_total"])
	}
	if values["test_scout_filter_rejected_total"] != 3 {
		t.Errorf("expected 3 rejections, got %v", values["test_scout_filter_rejected_total"])
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestRecordHelpers(t *testing.T) {
	RecordScan(true, 2*time.Second, time.Now())
	RecordScan(false, time.Second, time.Unix(1767225600, 0))
	RecordCandidates("discovered", 4)
	RecordRejections(map[string]int{"age_above_max": 2})
	SetScannerState("enriching", []string{"idle", "enriching"})
	RecordSourceCall("dexscreener", "ok", 150*time.Millisecond)
	RecordDBQuery("postgres", "save_scan", time.Millisecond, errors.New("boom"))

	body := scrape(t)
	for _, want := range []string{
		`memecoin_scout_scan_runs_total{outcome="failed"}`,
		`memecoin_scout_health_last_successful_scan_timestamp 1.7672256e+09`,
		`memecoin_scout_scan_candidates_total{stage="discovered"}`,
		`memecoin_scout_filter_rejected_total{reason="age_above_max"}`,
		`memecoin_scout_scan_state{state="enriching"} 1`,
		`memecoin_scout_scan_state{state="idle"} 0`,
		`memecoin_scout_source_calls_total{outcome="ok",source="dexscreener"}`,
		`memecoin_scout_database_query_errors_total{database="postgres",operation="save_scan"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %s in /metrics output", want)
		}
	}
}
