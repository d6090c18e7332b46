package notifications

import (
	"testing"

	"github.com/pagecraft/ai-router/internal/budget"
	"github.com/pagecraft/ai-router/internal/domain"
)

type fakeAvailabilitySink struct {
	updates map[string]domain.ModelAvailability
}

func (s *fakeAvailabilitySink) SetAvailability(modelID string, availability domain.ModelAvailability) {
	s.updates[modelID] = availability
}

func TestHealthSinkPublishesTransitions(t *testing.T) {
	inner := &fakeAvailabilitySink{updates: make(map[string]domain.ModelAvailability)}
	notifier := NewInMemoryNotifier()
	sink := NewHealthSink(inner, notifier)

	sink.SetAvailability("gpt-4o", domain.AvailabilityDown)
	sink.SetAvailability("gpt-4o", domain.AvailabilityDown) // repeat, no event
	sink.SetAvailability("gpt-4o", domain.AvailabilityDegraded)
	sink.SetAvailability("gpt-4o", domain.AvailabilityAvailable)

	if inner.updates["gpt-4o"] != domain.AvailabilityAvailable {
		t.Error("inner sink did not receive the final state")
	}

	events := notifier.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want down + recovered", len(events))
	}
	if events[0].Type != EventModelDown || events[1].Type != EventModelRecovered {
		t.Errorf("events = %s, %s; want model_down, model_recovered", events[0].Type, events[1].Type)
	}
}

func TestHealthSinkIgnoresFirstAvailable(t *testing.T) {
	inner := &fakeAvailabilitySink{updates: make(map[string]domain.ModelAvailability)}
	notifier := NewInMemoryNotifier()
	sink := NewHealthSink(inner, notifier)

	sink.SetAvailability("gpt-4o", domain.AvailabilityAvailable)
	if got := len(notifier.Events()); got != 0 {
		t.Errorf("got %d events for an already healthy model, want 0", got)
	}
}

func TestBudgetAlertHandler(t *testing.T) {
	notifier := NewInMemoryNotifier()
	handler := BudgetAlertHandler(notifier)

	handler(budget.Alert{
		TenantID:   "acme",
		Level:      budget.AlertLevelCritical,
		Date:       "2026-08-30",
		LimitCents: 500,
		SpentCents: 480,
		Percentage: 96,
	})

	events := notifier.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Type != EventBudgetCritical {
		t.Errorf("type = %s, want %s", events[0].Type, EventBudgetCritical)
	}
	if events[0].TenantID != "acme" {
		t.Errorf("tenant = %s, want acme", events[0].TenantID)
	}
}
