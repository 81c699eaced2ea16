// Package jobs runs the tiered extraction pipeline (cache -> deterministic
// parser -> AI broker) on worker goroutines behind a bounded channel.
// Submission returns a job id immediately; callers poll for the terminal
// state.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"menuflow-backend/internal/broker"
	"menuflow-backend/internal/cache"
	"menuflow-backend/internal/extract"
	"menuflow-backend/internal/shared/metrics"
	"menuflow-backend/internal/shared/telemetry"
	"menuflow-backend/internal/shared/util"
)

const (
	defaultWorkers    = 4
	defaultQueueDepth = 64

	// A deterministic pass yielding at least this many items is good enough
	// to skip the AI tier. Policy knob, not a law.
	DefaultMinDeterministicItems = 5
)

var (
	// ErrQueueFull is returned when the submission channel is saturated;
	// submission never blocks the caller.
	ErrQueueFull = errors.New("extraction queue is full")

	// ErrShuttingDown is returned once Shutdown has begun.
	ErrShuttingDown = errors.New("extraction queue is shutting down")
)

// Generator is the slice of the AI broker the queue depends on.
type Generator interface {
	Generate(ctx context.Context, in broker.GenerateInput) (broker.GenerateOutput, error)
}

// Config tunes the queue.
type Config struct {
	Workers               int
	QueueDepth            int
	MinDeterministicItems int
	CacheTTL              time.Duration
}

type workItem struct {
	id   string
	text string
}

// Queue owns all extraction jobs for the life of the process. The cache
// store and broker are injected so tests can use fresh instances.
type Queue struct {
	cfg       Config
	store     cache.Store
	generator Generator

	mu     sync.RWMutex
	jobs   map[string]*Job
	closed bool

	work chan workItem
	wg   sync.WaitGroup
}

// New constructs a Queue; Start must be called before submissions are processed.
func New(cfg Config, store cache.Store, generator Generator) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	if cfg.MinDeterministicItems <= 0 {
		cfg.MinDeterministicItems = DefaultMinDeterministicItems
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	return &Queue{
		cfg:       cfg,
		store:     store,
		generator: generator,
		jobs:      make(map[string]*Job),
		work:      make(chan workItem, cfg.QueueDepth),
	}
}

// Start launches the worker goroutines.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Shutdown stops accepting submissions and waits for in-flight jobs.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.work)
	q.wg.Wait()
}

// Add records a queued job and schedules it without blocking. The id folds
// the submission time into the content hash so repeated text still gets a
// unique job.
func (q *Queue) Add(text string) (string, error) {
	id := fmt.Sprintf("%s-%x", util.ContentHash(text)[:16], time.Now().UnixNano())

	// The send happens under the mutex so Shutdown cannot close the channel
	// between the closed check and the send.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", ErrShuttingDown
	}

	select {
	case q.work <- workItem{id: id, text: text}:
		q.jobs[id] = &Job{ID: id, State: StateQueued}
		return id, nil
	default:
		return "", ErrQueueFull
	}
}

// Get returns a snapshot of the job, if known.
func (q *Queue) Get(id string) (Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for item := range q.work {
		q.process(ctx, item)
	}
}

// process runs the tiers strictly in sequence for one job. Broker exhaustion
// downgrades to a degraded completed result; only cache storage errors and
// panics fail the job.
func (q *Queue) process(ctx context.Context, item workItem) {
	start := time.Now()
	metrics.IncExtractionStarted()
	q.setState(item.id, StateActive)

	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("jobs.panic", map[string]any{"job_id": item.id, "panic": fmt.Sprint(rec)})
			q.fail(item.id, fmt.Sprintf("internal error: %v", rec))
		}
		metrics.ObserveExtractionDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	key := util.ContentHash(item.text)

	cached, err := q.store.Get(ctx, key)
	if err != nil {
		q.fail(item.id, fmt.Sprintf("cache read: %v", err))
		return
	}
	if cached != nil {
		metrics.IncCacheHit()
		q.complete(item.id, cached)
		return
	}
	metrics.IncCacheMiss()

	items := extract.ParseMenuLines(item.text)
	if len(items) >= q.cfg.MinDeterministicItems {
		q.finish(ctx, item.id, key, &extract.Result{Items: items, Quality: extract.QualityDeterministic})
		return
	}

	out, genErr := q.generator.Generate(ctx, broker.GenerateInput{Prompt: broker.BuildExtractionPrompt(item.text)})
	if genErr != nil {
		telemetry.Error("jobs.broker.exhausted", map[string]any{"job_id": item.id, "err": genErr.Error()})
		metrics.IncExtractionDegraded()
		q.finish(ctx, item.id, key, &extract.Result{Items: items, Quality: extract.QualityDegraded})
		return
	}

	// An empty but successful AI pass still caches as "ai" quality so the
	// same bad document doesn't hit the provider again.
	aiItems := broker.DecodeItems(out.Text)
	q.finish(ctx, item.id, key, &extract.Result{Items: aiItems, Quality: extract.QualityAI})
}

// finish writes the result through to the cache and completes the job.
func (q *Queue) finish(ctx context.Context, id, key string, result *extract.Result) {
	if result.Items == nil {
		result.Items = []extract.MenuItem{}
	}
	if err := q.store.Set(ctx, key, result, q.cfg.CacheTTL); err != nil {
		q.fail(id, fmt.Sprintf("cache write: %v", err))
		return
	}
	q.complete(id, result)
}

func (q *Queue) setState(id, state string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := q.jobs[id]; ok && !terminal(job.State) {
		job.State = state
	}
}

func (q *Queue) complete(id string, result *extract.Result) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok || terminal(job.State) {
		return
	}
	job.State = StateCompleted
	job.Result = result
	metrics.IncExtractionCompleted()
}

func (q *Queue) fail(id, msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok || terminal(job.State) {
		return
	}
	job.State = StateFailed
	job.Error = msg
	metrics.IncExtractionFailed()
}
