package jobs

import "menuflow-backend/internal/extract"

// Job states. Terminal states are final; a job is mutated only by the single
// worker processing it and never deleted (bounded by process lifetime).
const (
	StateQueued    = "queued"
	StateActive    = "active"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Job is an asynchronous extraction run. Callers poll it by id; extraction
// quality problems surface as a completed job with a degraded-quality
// result, never as the failed state.
type Job struct {
	ID     string          `json:"id"`
	State  string          `json:"state"`
	Result *extract.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func terminal(state string) bool {
	return state == StateCompleted || state == StateFailed
}
