package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"menuflow-backend/internal/broker"
	"menuflow-backend/internal/cache"
	"menuflow-backend/internal/extract"
	"menuflow-backend/internal/shared/util"
)

const richMenu = `STARTERS
Bruschetta - 6.50
Garlic Bread - 4.00
MAINS
Margherita Pizza - 12.50
Diavola Pizza - 14.00
Lasagna al forno - 11.00`

const sparseMenu = `Cola - 3.00
Water - 2.00`

type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, in broker.GenerateInput) (broker.GenerateOutput, error) {
	f.calls++
	if f.err != nil {
		return broker.GenerateOutput{}, f.err
	}
	return broker.GenerateOutput{Text: f.text}, nil
}

type errStore struct {
	getErr error
	setErr error
}

func (s *errStore) Get(ctx context.Context, key string) (*extract.Result, error) {
	return nil, s.getErr
}

func (s *errStore) Set(ctx context.Context, key string, result *extract.Result, ttl time.Duration) error {
	return s.setErr
}

// runOne submits text and processes it synchronously on the test goroutine.
func runOne(t *testing.T, q *Queue, text string) Job {
	t.Helper()
	id, err := q.Add(text)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	q.process(context.Background(), <-q.work)
	job, ok := q.Get(id)
	if !ok {
		t.Fatalf("job %s vanished", id)
	}
	return job
}

func TestProcessDeterministicTierSkipsAI(t *testing.T) {
	gen := &fakeGenerator{text: `{"items":[]}`}
	store := cache.NewMemoryStore()
	q := New(Config{}, store, gen)

	job := runOne(t, q, richMenu)
	if job.State != StateCompleted {
		t.Fatalf("state = %s, error = %s", job.State, job.Error)
	}
	if job.Result.Quality != extract.QualityDeterministic {
		t.Fatalf("quality = %s", job.Result.Quality)
	}
	if len(job.Result.Items) < 5 {
		t.Fatalf("items = %+v", job.Result.Items)
	}
	if gen.calls != 0 {
		t.Fatal("AI broker must not be consulted when the deterministic tier suffices")
	}

	cached, err := store.Get(context.Background(), util.ContentHash(richMenu))
	if err != nil || cached == nil {
		t.Fatalf("expected write-through to cache, got %+v, %v", cached, err)
	}
}

func TestProcessSparseInputGoesToAI(t *testing.T) {
	gen := &fakeGenerator{text: `{"items":[{"name":"Cola","price":3,"category":"Drinks"},{"name":"Water","price":2}]}`}
	q := New(Config{}, cache.NewMemoryStore(), gen)

	job := runOne(t, q, sparseMenu)
	if job.State != StateCompleted || job.Result.Quality != extract.QualityAI {
		t.Fatalf("job = %+v", job)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d", gen.calls)
	}
	if len(job.Result.Items) != 2 {
		t.Fatalf("items = %+v", job.Result.Items)
	}
	for _, item := range job.Result.Items {
		if strings.TrimSpace(item.Name) == "" {
			t.Fatalf("unsanitized item: %+v", item)
		}
	}
}

func TestProcessEmptyAIPassStillCompletesAndCaches(t *testing.T) {
	gen := &fakeGenerator{text: "no json here"}
	store := cache.NewMemoryStore()
	q := New(Config{}, store, gen)

	job := runOne(t, q, sparseMenu)
	if job.State != StateCompleted || job.Result.Quality != extract.QualityAI {
		t.Fatalf("job = %+v", job)
	}
	if len(job.Result.Items) != 0 {
		t.Fatalf("items = %+v", job.Result.Items)
	}

	// The empty pass is cached so the same bad document won't hit the
	// provider again.
	cached, err := store.Get(context.Background(), util.ContentHash(sparseMenu))
	if err != nil || cached == nil || cached.Quality != extract.QualityAI {
		t.Fatalf("cached = %+v, %v", cached, err)
	}
}

func TestProcessBrokerExhaustionDegrades(t *testing.T) {
	gen := &fakeGenerator{err: &broker.ExhaustedError{Failures: []string{"openai: status 429"}}}
	q := New(Config{}, cache.NewMemoryStore(), gen)

	job := runOne(t, q, sparseMenu)
	if job.State != StateCompleted {
		t.Fatalf("broker exhaustion must not fail the job: %+v", job)
	}
	if job.Result.Quality != extract.QualityDegraded {
		t.Fatalf("quality = %s", job.Result.Quality)
	}
	if len(job.Result.Items) != 2 {
		t.Fatalf("degraded result must keep the deterministic items: %+v", job.Result.Items)
	}
}

func TestProcessSecondSubmissionServedFromCache(t *testing.T) {
	gen := &fakeGenerator{text: `{"items":[{"name":"Cola","price":3}]}`}
	q := New(Config{}, cache.NewMemoryStore(), gen)

	first := runOne(t, q, sparseMenu)
	second := runOne(t, q, sparseMenu)

	if gen.calls != 1 {
		t.Fatalf("second submission must not trigger a second AI call, calls = %d", gen.calls)
	}
	if second.Result.Quality != first.Result.Quality {
		t.Fatalf("cached quality not preserved: %s vs %s", second.Result.Quality, first.Result.Quality)
	}
	if len(second.Result.Items) != len(first.Result.Items) {
		t.Fatalf("cached items diverge: %+v vs %+v", second.Result.Items, first.Result.Items)
	}
	if first.ID == second.ID {
		t.Fatal("repeated text must still get a unique job id")
	}
}

func TestProcessCacheReadErrorFailsJob(t *testing.T) {
	q := New(Config{}, &errStore{getErr: errors.New("connection refused")}, &fakeGenerator{})

	job := runOne(t, q, richMenu)
	if job.State != StateFailed {
		t.Fatalf("state = %s", job.State)
	}
	if !strings.Contains(job.Error, "cache read") {
		t.Fatalf("error = %q", job.Error)
	}
}

func TestProcessCacheWriteErrorFailsJob(t *testing.T) {
	q := New(Config{}, &errStore{setErr: errors.New("disk full")}, &fakeGenerator{})

	job := runOne(t, q, richMenu)
	if job.State != StateFailed {
		t.Fatalf("state = %s", job.State)
	}
	if !strings.Contains(job.Error, "cache write") {
		t.Fatalf("error = %q", job.Error)
	}
}

func TestGetUnknownJob(t *testing.T) {
	q := New(Config{}, cache.NewMemoryStore(), &fakeGenerator{})
	if _, ok := q.Get("nope"); ok {
		t.Fatal("unknown id must not resolve")
	}
}

func TestAddRejectsWhenQueueFull(t *testing.T) {
	q := New(Config{QueueDepth: 1}, cache.NewMemoryStore(), &fakeGenerator{})

	if _, err := q.Add(sparseMenu); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	id, err := q.Add(sparseMenu)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := q.Get(id); ok {
		t.Fatal("rejected submission must not leave a job behind")
	}
}

func TestAddReturnsImmediatelyAndWorkerCompletes(t *testing.T) {
	gen := &fakeGenerator{text: `{"items":[{"name":"Cola","price":3}]}`}
	q := New(Config{Workers: 1}, cache.NewMemoryStore(), gen)
	q.Start(context.Background())
	defer q.Shutdown()

	id, err := q.Add(sparseMenu)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		job, ok := q.Get(id)
		if !ok {
			t.Fatalf("job %s not found", id)
		}
		if terminal(job.State) {
			if job.State != StateCompleted {
				t.Fatalf("job = %+v", job)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job stuck in state %s", job.State)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestConcurrentAddAndShutdown(t *testing.T) {
	for i := 0; i < 200; i++ {
		q := New(Config{Workers: 2, QueueDepth: 4}, cache.NewMemoryStore(), &fakeGenerator{text: `{"items":[]}`})
		q.Start(context.Background())

		var wg sync.WaitGroup
		for s := 0; s < 4; s++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					// Must never panic on the work channel, whichever
					// side of Shutdown it lands on.
					_, err := q.Add(sparseMenu)
					if err != nil && !errors.Is(err, ErrShuttingDown) && !errors.Is(err, ErrQueueFull) {
						t.Errorf("Add: %v", err)
						return
					}
				}
			}()
		}
		q.Shutdown()
		wg.Wait()
	}
}

func TestAddAfterShutdown(t *testing.T) {
	q := New(Config{Workers: 1}, cache.NewMemoryStore(), &fakeGenerator{})
	q.Start(context.Background())
	q.Shutdown()
	if _, err := q.Add(sparseMenu); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("err = %v", err)
	}
}
