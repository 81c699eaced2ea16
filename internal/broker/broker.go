// Package broker routes extraction prompts to an ordered list of external
// AI providers, each guarded by a per-provider circuit breaker. The first
// success wins; while a breaker is open its provider is skipped outright so
// sustained provider failure cannot stall the pipeline.
package broker

import (
	"context"
	"fmt"

	"menuflow-backend/internal/shared/metrics"
	"menuflow-backend/internal/shared/telemetry"
)

// Broker tries providers in configured order.
type Broker struct {
	providers []Provider
	breakers  *BreakerRegistry
}

// New constructs a Broker over the given providers. A nil registry gets
// default breaker policy.
func New(breakers *BreakerRegistry, providers ...Provider) *Broker {
	if breakers == nil {
		breakers = NewBreakerRegistry(0, 0)
	}
	return &Broker{providers: providers, breakers: breakers}
}

// Generate walks the provider order: open breakers are skipped, the first
// successful response is returned immediately and resets that provider's
// breaker, failures are recorded against it. When every provider is skipped
// or fails the aggregate error carries each underlying cause.
func (b *Broker) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error) {
	var failures []string
	for _, p := range b.providers {
		name := p.Name()
		if !b.breakers.Allow(name) {
			failures = append(failures, fmt.Sprintf("%s: circuit breaker open", name))
			continue
		}

		out, err := p.Generate(ctx, in)
		if err == nil {
			b.breakers.RecordSuccess(name)
			return out, nil
		}

		status := StatusOf(err)
		b.breakers.RecordFailure(name, status)
		metrics.IncProviderFailed()
		telemetry.Error("broker.provider.failed", map[string]any{
			"provider": name,
			"status":   status,
			"err":      err.Error(),
		})
		failures = append(failures, fmt.Sprintf("%s: %v", name, err))
	}
	return GenerateOutput{}, &ExhaustedError{Failures: failures}
}
