package broker

import (
	"context"
	"errors"
	"fmt"
)

// GenerateInput carries the extraction prompt and an optional media payload.
type GenerateInput struct {
	Prompt       string
	MediaDataURI string
}

// GenerateOutput is the raw provider response text.
type GenerateOutput struct {
	Text string
}

// Provider is a single external AI extraction backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error)
}

// StatusError is a provider failure carrying an HTTP-style status, used to
// classify rate-limit and server errors for the circuit breaker.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// StatusOf extracts the HTTP-style status from a provider error, or 0.
func StatusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return 0
}

// ExhaustedError aggregates the per-provider failures of a broker call in
// which every provider was skipped or failed.
type ExhaustedError struct {
	Failures []string
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return "no providers configured"
	}
	msg := "all providers failed: " + e.Failures[0]
	for _, f := range e.Failures[1:] {
		msg += "; " + f
	}
	return msg
}
