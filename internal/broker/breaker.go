package broker

import (
	"net/http"
	"sync"
	"time"
)

const (
	// A breaker opens after this many consecutive failures when the most
	// recent one was a rate-limit or server error.
	DefaultFailureThreshold = 3

	// How long an open breaker rejects calls before it is implicitly
	// treated as closed again. There is no half-open probe state: the first
	// call after the window simply proceeds and re-evaluates.
	DefaultOpenWindow = 5 * time.Minute
)

type breakerState struct {
	failures   int
	lastStatus int
	openedAt   time.Time
}

// BreakerRegistry tracks one circuit breaker per named provider. It is an
// injected dependency rather than a module-level singleton so tests can use
// fresh instances, and it is mutex-guarded because jobs run on concurrent
// worker goroutines.
type BreakerRegistry struct {
	mu        sync.Mutex
	states    map[string]*breakerState
	threshold int
	window    time.Duration
	now       func() time.Time
}

// NewBreakerRegistry constructs a registry; zero arguments select defaults.
func NewBreakerRegistry(threshold int, window time.Duration) *BreakerRegistry {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if window <= 0 {
		window = DefaultOpenWindow
	}
	return &BreakerRegistry{
		states:    make(map[string]*breakerState),
		threshold: threshold,
		window:    window,
		now:       time.Now,
	}
}

// Allow reports whether a call to the named provider may proceed. A breaker
// whose open window has elapsed closes implicitly.
func (r *BreakerRegistry) Allow(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[name]
	if !ok || state.openedAt.IsZero() {
		return true
	}
	if r.now().Sub(state.openedAt) >= r.window {
		state.openedAt = time.Time{}
		return true
	}
	return false
}

// RecordFailure counts a failed call. The breaker opens once the threshold
// is reached and the latest failure was a 429 or 5xx; other statuses count
// toward the threshold but cannot open it on their own.
func (r *BreakerRegistry) RecordFailure(name string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[name]
	if !ok {
		state = &breakerState{}
		r.states[name] = state
	}
	state.failures++
	state.lastStatus = status
	if state.failures >= r.threshold && isBreakerStatus(status) {
		state.openedAt = r.now()
	}
}

// RecordSuccess resets the named breaker to zero failures and closes it.
func (r *BreakerRegistry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, name)
}

func isBreakerStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
