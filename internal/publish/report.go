package publish

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"memecoin-scout/internal/source"
)

// Report counts what happened to candidates during one scan.
type Report struct {
	ScanID     string
	StartedAt  time.Time
	FinishedAt time.Time

	Discovered     int
	InvalidDropped int // discovered objects that failed validation, not counted in Discovered
	SkippedSeen    int
	Prefiltered    int // rejected on discovery attributes, before enrichment
	Enriched       int
	EnrichTimeouts int
	FilteredOut    map[string]int
	Scored         int
	Published      int
	MomentumSpikes int

	// DiscoveryCalls and DiscoveryFailures count Discover calls across all adapters.
	DiscoveryCalls    int
	DiscoveryFailures int

	// Sources counts adapter call outcomes by adapter name.
	Sources map[string]map[source.Outcome]int

	// Failure is the ScanFailure reason, empty when the scan completed.
	Failure string
}

// NewReport creates an empty report.
func NewReport(scanID string, startedAt time.Time) *Report {
	return &Report{
		ScanID:      scanID,
		StartedAt:   startedAt,
		FilteredOut: make(map[string]int),
		Sources:     make(map[string]map[source.Outcome]int),
	}
}

// RecordSource counts one adapter call.
func (r *Report) RecordSource(name string, outcome source.Outcome) {
	if r.Sources[name] == nil {
		r.Sources[name] = make(map[source.Outcome]int)
	}
	r.Sources[name][outcome]++
}

// Rejected returns the number of candidates the filter rejected, before and after enrichment.
func (r *Report) Rejected() int {
	n := 0
	for _, v := range r.FilteredOut {
		n += v
	}
	return n
}

// SourceFailures returns the failed and total adapter calls, and failures per adapter.
// Only unavailable and rate-limited outcomes count as failures. Throttled calls never reached a
// provider and are left out of the total.
func (r *Report) SourceFailures() (failed, total int, bySource map[string]int) {
	bySource = make(map[string]int)
	for name, outcomes := range r.Sources {
		for o, n := range outcomes {
			if o == source.OutcomeThrottled {
				continue
			}
			total += n
			if o.Failed() {
				failed += n
				bySource[name] += n
			}
		}
	}
	return failed, total, bySource
}

// Failed reports whether the scan ended in a ScanFailure.
func (r *Report) Failed() bool {
	return r.Failure != ""
}

// Duration returns the scan wall time.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (r *Report) MarshalZerologObject(e *zerolog.Event) {
	e.Str("scan_id", r.ScanID).
		Int("discovered", r.Discovered).
		Int("invalid_dropped", r.InvalidDropped).
		Int("skipped_seen", r.SkippedSeen).
		Int("prefiltered", r.Prefiltered).
		Int("enriched", r.Enriched).
		Int("enrich_timeouts", r.EnrichTimeouts).
		Int("scored", r.Scored).
		Int("published", r.Published).
		Int("momentum_spikes", r.MomentumSpikes).
		Dur("duration", r.Duration())

	if len(r.FilteredOut) > 0 {
		reasons := zerolog.Dict()
		for _, k := range sortedKeys(r.FilteredOut) {
			reasons.Int(k, r.FilteredOut[k])
		}
		e.Dict("filtered_out", reasons)
	}

	if len(r.Sources) > 0 {
		sources := zerolog.Dict()
		names := make([]string, 0, len(r.Sources))
		for name := range r.Sources {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			outcomes := zerolog.Dict()
			for o, n := range r.Sources[name] {
				outcomes.Int(string(o), n)
			}
			sources.Dict(name, outcomes)
		}
		e.Dict("sources", sources)
	}

	if r.Failure != "" {
		e.Str("failure", r.Failure)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
