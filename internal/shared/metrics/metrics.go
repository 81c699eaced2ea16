package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	extractionJobsStartedTotal   atomic.Uint64
	extractionJobsCompletedTotal atomic.Uint64
	extractionJobsDegradedTotal  atomic.Uint64
	extractionJobsFailedTotal    atomic.Uint64
	cacheHitsTotal               atomic.Uint64
	cacheMissesTotal             atomic.Uint64
	providerFailedTotal          atomic.Uint64

	extractionDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncExtractionStarted increments the started-jobs counter.
func IncExtractionStarted() {
	extractionJobsStartedTotal.Add(1)
}

// IncExtractionCompleted increments the completed-jobs counter.
func IncExtractionCompleted() {
	extractionJobsCompletedTotal.Add(1)
}

// IncExtractionDegraded counts jobs that completed with degraded quality.
func IncExtractionDegraded() {
	extractionJobsDegradedTotal.Add(1)
}

// IncExtractionFailed counts jobs that hit an internal error.
func IncExtractionFailed() {
	extractionJobsFailedTotal.Add(1)
}

// IncCacheHit counts result-cache hits.
func IncCacheHit() {
	cacheHitsTotal.Add(1)
}

// IncCacheMiss counts result-cache misses.
func IncCacheMiss() {
	cacheMissesTotal.Add(1)
}

// IncProviderFailed counts individual AI provider call failures.
func IncProviderFailed() {
	providerFailedTotal.Add(1)
}

// ObserveExtractionDurationMs records a job duration in milliseconds.
func ObserveExtractionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractionDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "extraction_jobs_started_total", "Total extraction jobs started", extractionJobsStartedTotal.Load())
	writeCounter(&buf, "extraction_jobs_completed_total", "Total extraction jobs completed", extractionJobsCompletedTotal.Load())
	writeCounter(&buf, "extraction_jobs_degraded_total", "Total extraction jobs completed with degraded quality", extractionJobsDegradedTotal.Load())
	writeCounter(&buf, "extraction_jobs_failed_total", "Total extraction jobs failed internally", extractionJobsFailedTotal.Load())
	writeCounter(&buf, "extraction_cache_hits_total", "Total result cache hits", cacheHitsTotal.Load())
	writeCounter(&buf, "extraction_cache_misses_total", "Total result cache misses", cacheMissesTotal.Load())
	writeCounter(&buf, "ai_provider_failures_total", "Total AI provider call failures", providerFailedTotal.Load())
	writeHistogram(&buf, "extraction_job_duration_ms", "Extraction job duration in milliseconds", extractionDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
