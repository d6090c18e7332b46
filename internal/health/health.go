// Package health tracks per-model backend health from dispatch outcomes and
// feeds the availability signal the routing policy reads. Each model runs a
// small state machine: healthy models are available, models past the failure
// threshold are down, and models probing recovery after the cooldown are
// degraded.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"
)

// Sink receives availability updates. The model registry implements it.
type Sink interface {
	SetAvailability(modelID string, availability domain.ModelAvailability)
}

// Config tunes the per-model state machine.
type Config struct {
	FailureThreshold int           // consecutive failures before a model goes down
	SuccessThreshold int           // successes while degraded before it recovers
	Cooldown         time.Duration // time down before the model is probed again
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Cooldown:         60 * time.Second,
	}
}

// state is one model's health machine.
type state struct {
	status      domain.ModelAvailability
	failures    int
	successes   int
	lastFailure time.Time
}

// Tracker implements the dispatcher's outcome observer. It is safe for
// concurrent use.
type Tracker struct {
	mu     sync.Mutex
	models map[string]*state
	sink   Sink
	config Config
	now    func() time.Time
}

type Option func(*Tracker)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(sink Sink, cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		models: make(map[string]*state),
		sink:   sink,
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) RecordSuccess(ctx context.Context, modelID string) {
	t.mu.Lock()
	s := t.model(modelID)
	switch s.status {
	case domain.AvailabilityAvailable:
		s.failures = 0
	case domain.AvailabilityDegraded:
		s.successes++
		if s.successes >= t.config.SuccessThreshold {
			s.status = domain.AvailabilityAvailable
			s.failures = 0
			s.successes = 0
		}
	case domain.AvailabilityDown:
		// A success while marked down means the fault has already cleared.
		s.status = domain.AvailabilityDegraded
		s.successes = 1
	}
	status := s.status
	t.mu.Unlock()

	t.push(modelID, status)
}

func (t *Tracker) RecordFailure(ctx context.Context, modelID string) {
	t.mu.Lock()
	s := t.model(modelID)
	s.lastFailure = t.now()
	switch s.status {
	case domain.AvailabilityAvailable:
		s.failures++
		if s.failures >= t.config.FailureThreshold {
			s.status = domain.AvailabilityDown
		}
	case domain.AvailabilityDegraded:
		s.status = domain.AvailabilityDown
		s.successes = 0
	}
	status := s.status
	t.mu.Unlock()

	if status == domain.AvailabilityDown {
		slog.Warn("model marked down", "model", modelID)
	}
	t.push(modelID, status)
}

// Status reports one model's current health. Unknown models are available.
func (t *Tracker) Status(modelID string) domain.ModelAvailability {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.models[modelID]
	if !ok {
		return domain.AvailabilityAvailable
	}
	return s.status
}

// Statuses snapshots every tracked model, for the admin surface.
func (t *Tracker) Statuses() map[string]domain.ModelAvailability {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]domain.ModelAvailability, len(t.models))
	for id, s := range t.models {
		out[id] = s.status
	}
	return out
}

// Sweep moves models whose cooldown has elapsed from down to degraded so the
// policy can route probe traffic back to them. Called periodically by Run.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	var probing []string
	for id, s := range t.models {
		if s.status == domain.AvailabilityDown && t.now().Sub(s.lastFailure) >= t.config.Cooldown {
			s.status = domain.AvailabilityDegraded
			s.successes = 0
			probing = append(probing, id)
		}
	}
	t.mu.Unlock()

	for _, id := range probing {
		slog.Info("model cooldown elapsed, probing", "model", id)
		t.push(id, domain.AvailabilityDegraded)
	}
}

// Run sweeps cooldowns until the context is cancelled.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

func (t *Tracker) model(id string) *state {
	s, ok := t.models[id]
	if !ok {
		s = &state{status: domain.AvailabilityAvailable}
		t.models[id] = s
	}
	return s
}

func (t *Tracker) push(modelID string, status domain.ModelAvailability) {
	if t.sink != nil {
		t.sink.SetAvailability(modelID, status)
	}
}
