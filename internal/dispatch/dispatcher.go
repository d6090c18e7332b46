// Package dispatch executes a routing decision against the chosen backend.
// Failure handling is bounded: one retry against the predefined fallback
// model for the request type, then a terminal error.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"
	"github.com/pagecraft/ai-router/internal/registry"
)

// Observer receives per-model call outcomes. The health tracker implements
// it to feed the registry's availability signal.
type Observer interface {
	RecordSuccess(ctx context.Context, modelID string)
	RecordFailure(ctx context.Context, modelID string)
}

// Failure is the terminal dispatch error. IncurredCents is what the backend
// actually charged across the failed attempts so the ledger can stay honest.
type Failure struct {
	ModelID       string
	IncurredCents int
	LatencyMs     int64
	Err           error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("dispatch failed on %s: %v", f.ModelID, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

type Dispatcher struct {
	registry    *registry.Registry
	adapters    map[string]ProviderAdapter
	observer    Observer
	callTimeout time.Duration
}

type Option func(*Dispatcher)

// WithObserver wires an outcome observer (usually the model health tracker).
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithCallTimeout bounds each backend call. A timeout counts as a backend
// error and triggers the single allowed fallback.
func WithCallTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.callTimeout = t }
}

func New(reg *registry.Registry, adapters []ProviderAdapter, opts ...Option) *Dispatcher {
	m := make(map[string]ProviderAdapter, len(adapters))
	for _, a := range adapters {
		m[a.ID()] = a
	}

	d := &Dispatcher{
		registry:    reg,
		adapters:    m,
		callTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Profile exposes the registry entry behind a model id, for callers that
// need provider attribution after a dispatch failure.
func (d *Dispatcher) Profile(requestType domain.RequestType, modelID string) (registry.Profile, error) {
	return d.registry.Lookup(requestType, modelID)
}

// Execute runs the decision's model, falling back at most once. The returned
// result reflects the model actually used and its recomputed cost.
func (d *Dispatcher) Execute(ctx context.Context, decision domain.RoutingDecision, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	primary, err := d.registry.Lookup(req.RequestType, decision.SelectedModel)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	result, incurred, primaryErr := d.attempt(ctx, primary, req)
	if primaryErr == nil {
		result.FallbackUsed = false
		result.LatencyMs = time.Since(start).Milliseconds()
		return result, nil
	}

	slog.Warn("primary model failed, trying fallback",
		"model", primary.ID,
		"tenant_id", req.TenantID,
		"error", primaryErr,
	)

	fallback, fbErr := d.registry.DispatchFallback(req.RequestType)
	if fbErr != nil || fallback.ID == primary.ID {
		return nil, &Failure{
			ModelID:       primary.ID,
			IncurredCents: incurred,
			LatencyMs:     time.Since(start).Milliseconds(),
			Err:           domain.NewProviderUnavailable(primary.ID, primaryErr),
		}
	}

	result, fbIncurred, fallbackErr := d.attempt(ctx, fallback, req)
	if fallbackErr != nil {
		return nil, &Failure{
			ModelID:       fallback.ID,
			IncurredCents: incurred + fbIncurred,
			LatencyMs:     time.Since(start).Milliseconds(),
			Err:           domain.NewProviderUnavailable(primary.ID, errors.Join(primaryErr, fallbackErr)),
		}
	}

	result.FallbackUsed = true
	result.LatencyMs = time.Since(start).Milliseconds()
	return result, nil
}

// attempt runs one backend call under the dispatcher's timeout. The second
// return value is the cost the backend charged if the call failed.
func (d *Dispatcher) attempt(ctx context.Context, profile registry.Profile, req domain.GenerationRequest) (*domain.GenerationResult, int, error) {
	adapter, ok := d.adapters[profile.Provider]
	if !ok {
		// No adapter means no credentials were configured for this backend.
		return nil, 0, fmt.Errorf("%w: no adapter for provider %s", domain.ErrProviderUnavailable, profile.Provider)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	raw, err := adapter.Generate(callCtx, profile.ID, req)
	if err != nil {
		if d.observer != nil {
			d.observer.RecordFailure(ctx, profile.ID)
		}

		incurred := 0
		var backendErr *BackendError
		if errors.As(err, &backendErr) && backendErr.Charged {
			incurred = profile.Cost(req.SizeHint, req.QualityHint)
		}
		return nil, incurred, err
	}

	if d.observer != nil {
		d.observer.RecordSuccess(ctx, profile.ID)
	}

	return &domain.GenerationResult{
		Content:   raw.Content,
		Images:    raw.Images,
		ModelUsed: profile.ID,
		CostCents: profile.Cost(req.SizeHint, req.QualityHint),
	}, 0, nil
}
