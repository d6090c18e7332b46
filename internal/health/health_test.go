package health

import (
	"context"
	"testing"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"
)

type recordingSink struct {
	updates map[string]domain.ModelAvailability
}

func newRecordingSink() *recordingSink {
	return &recordingSink{updates: make(map[string]domain.ModelAvailability)}
}

func (s *recordingSink) SetAvailability(modelID string, availability domain.ModelAvailability) {
	s.updates[modelID] = availability
}

func TestTrackerOpensAfterThreshold(t *testing.T) {
	sink := newRecordingSink()
	tracker := NewTracker(sink, Config{FailureThreshold: 3, SuccessThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	tracker.RecordFailure(ctx, "gpt-4o")
	tracker.RecordFailure(ctx, "gpt-4o")
	if got := tracker.Status("gpt-4o"); got != domain.AvailabilityAvailable {
		t.Fatalf("status after 2 failures = %s, want available", got)
	}

	tracker.RecordFailure(ctx, "gpt-4o")
	if got := tracker.Status("gpt-4o"); got != domain.AvailabilityDown {
		t.Fatalf("status after 3 failures = %s, want down", got)
	}
	if sink.updates["gpt-4o"] != domain.AvailabilityDown {
		t.Error("sink was not told the model is down")
	}
}

func TestTrackerSuccessResetsFailureStreak(t *testing.T) {
	tracker := NewTracker(nil, Config{FailureThreshold: 3, SuccessThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	tracker.RecordFailure(ctx, "gpt-4o")
	tracker.RecordFailure(ctx, "gpt-4o")
	tracker.RecordSuccess(ctx, "gpt-4o")
	tracker.RecordFailure(ctx, "gpt-4o")
	tracker.RecordFailure(ctx, "gpt-4o")

	if got := tracker.Status("gpt-4o"); got != domain.AvailabilityAvailable {
		t.Errorf("status = %s, want available after a mid-streak success", got)
	}
}

func TestTrackerRecoversThroughDegraded(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	sink := newRecordingSink()
	tracker := NewTracker(sink, Config{FailureThreshold: 1, SuccessThreshold: 2, Cooldown: time.Minute}, WithClock(clock))
	ctx := context.Background()

	tracker.RecordFailure(ctx, "dall-e-3")
	if got := tracker.Status("dall-e-3"); got != domain.AvailabilityDown {
		t.Fatalf("status = %s, want down", got)
	}

	// Cooldown not elapsed: sweep is a no-op.
	tracker.Sweep()
	if got := tracker.Status("dall-e-3"); got != domain.AvailabilityDown {
		t.Fatalf("status after early sweep = %s, want down", got)
	}

	now = now.Add(2 * time.Minute)
	tracker.Sweep()
	if got := tracker.Status("dall-e-3"); got != domain.AvailabilityDegraded {
		t.Fatalf("status after cooldown sweep = %s, want degraded", got)
	}

	tracker.RecordSuccess(ctx, "dall-e-3")
	if got := tracker.Status("dall-e-3"); got != domain.AvailabilityDegraded {
		t.Fatalf("status after 1 probe success = %s, want degraded", got)
	}
	tracker.RecordSuccess(ctx, "dall-e-3")
	if got := tracker.Status("dall-e-3"); got != domain.AvailabilityAvailable {
		t.Fatalf("status after 2 probe successes = %s, want available", got)
	}
	if sink.updates["dall-e-3"] != domain.AvailabilityAvailable {
		t.Error("sink did not see the recovery")
	}
}

func TestTrackerFailureWhileDegradedGoesDown(t *testing.T) {
	now := time.Now()
	tracker := NewTracker(nil, Config{FailureThreshold: 1, SuccessThreshold: 2, Cooldown: time.Minute},
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	tracker.RecordFailure(ctx, "sdxl-turbo")
	now = now.Add(2 * time.Minute)
	tracker.Sweep()
	tracker.RecordFailure(ctx, "sdxl-turbo")

	if got := tracker.Status("sdxl-turbo"); got != domain.AvailabilityDown {
		t.Errorf("status = %s, want down after a failed probe", got)
	}
}

func TestTrackerUnknownModelIsAvailable(t *testing.T) {
	tracker := NewTracker(nil, DefaultConfig())
	if got := tracker.Status("never-seen"); got != domain.AvailabilityAvailable {
		t.Errorf("status = %s, want available", got)
	}
	if len(tracker.Statuses()) != 0 {
		t.Error("Status lookup should not create tracker entries")
	}
}
