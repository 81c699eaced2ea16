package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestHistogramCumulativeBuckets(t *testing.T) {
	h := newHistogram([]float64{50, 100, 250})
	h.Observe(60)
	h.Observe(60)
	h.Observe(200)
	h.Observe(9000)

	var buf bytes.Buffer
	writeHistogram(&buf, "test_duration_ms", "test", h.Snapshot())
	out := buf.String()

	for _, want := range []string{
		`test_duration_ms_bucket{le="50"} 0`,
		`test_duration_ms_bucket{le="100"} 2`,
		`test_duration_ms_bucket{le="250"} 3`,
		`test_duration_ms_bucket{le="+Inf"} 4`,
		`test_duration_ms_count 4`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderIncludesExtractionCounters(t *testing.T) {
	IncExtractionStarted()
	IncCacheMiss()

	out := Render()
	for _, name := range []string{
		"extraction_jobs_started_total",
		"extraction_jobs_completed_total",
		"extraction_cache_hits_total",
		"extraction_cache_misses_total",
		"ai_provider_failures_total",
		"extraction_job_duration_ms_bucket",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("missing metric %s", name)
		}
	}
}
