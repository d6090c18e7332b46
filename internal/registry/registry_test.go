package registry

import (
	"errors"
	"testing"

	"github.com/pagecraft/ai-router/internal/domain"
)

func testRegistry() *Registry {
	return New([]Profile{
		{ID: "text-premium", RequestType: domain.RequestTypeText, Provider: "p1", Default: true, Capabilities: []string{CapHighFidelity}, Cost: textCost(2, 5, 10)},
		{ID: "text-cheap", RequestType: domain.RequestTypeText, Provider: "p1", Capabilities: []string{CapFast, CapCheap}, Cost: textCost(1, 1, 2)},
		{ID: "img-premium", RequestType: domain.RequestTypeImage, Provider: "p2", Default: true, Capabilities: []string{CapHighFidelity}, Cost: imageCost(map[string]int{"1024x1024": 4}, 4, 4)},
	}, map[domain.RequestType]string{
		domain.RequestTypeText: "text-cheap",
	})
}

func TestRegistry_Lookup(t *testing.T) {
	r := testRegistry()

	p, err := r.Lookup(domain.RequestTypeText, "text-premium")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if p.Provider != "p1" {
		t.Errorf("Provider = %q, want p1", p.Provider)
	}
}

func TestRegistry_LookupMissFails(t *testing.T) {
	r := testRegistry()

	_, err := r.Lookup(domain.RequestTypeText, "no-such-model")
	if !errors.Is(err, domain.ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}

	// Registered, but for the other request type.
	_, err = r.Lookup(domain.RequestTypeText, "img-premium")
	if !errors.Is(err, domain.ErrModelNotFound) {
		t.Errorf("wrong-type lookup: expected ErrModelNotFound, got %v", err)
	}
}

func TestRegistry_SetAvailability(t *testing.T) {
	r := testRegistry()

	r.SetAvailability("text-premium", domain.AvailabilityDown)

	p, err := r.Lookup(domain.RequestTypeText, "text-premium")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if p.Availability() != domain.AvailabilityDown {
		t.Errorf("Availability = %q, want down", p.Availability())
	}

	// Unknown ids are ignored.
	r.SetAvailability("ghost", domain.AvailabilityDown)
}

func TestRegistry_Baseline(t *testing.T) {
	r := testRegistry()

	p, err := r.Baseline(domain.RequestTypeText, "", "")
	if err != nil {
		t.Fatalf("Baseline() error = %v", err)
	}
	if p.ID != "text-premium" {
		t.Errorf("Baseline = %q, want text-premium", p.ID)
	}
}

func TestRegistry_DispatchFallback(t *testing.T) {
	r := testRegistry()

	p, err := r.DispatchFallback(domain.RequestTypeText)
	if err != nil {
		t.Fatalf("DispatchFallback() error = %v", err)
	}
	if p.ID != "text-cheap" {
		t.Errorf("fallback = %q, want text-cheap", p.ID)
	}

	_, err = r.DispatchFallback(domain.RequestTypeImage)
	if !errors.Is(err, domain.ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound for unset fallback, got %v", err)
	}
}

func TestRegistry_Reload(t *testing.T) {
	r := testRegistry()

	r.Reload([]Profile{
		{ID: "text-v2", RequestType: domain.RequestTypeText, Provider: "p1", Default: true, Cost: textCost(1, 1, 1)},
	}, map[domain.RequestType]string{domain.RequestTypeText: "text-v2"})

	if _, err := r.Lookup(domain.RequestTypeText, "text-premium"); !errors.Is(err, domain.ErrModelNotFound) {
		t.Errorf("old model should be gone after reload, got %v", err)
	}
	if _, err := r.Lookup(domain.RequestTypeText, "text-v2"); err != nil {
		t.Errorf("new model missing after reload: %v", err)
	}
}

func TestDefaultCatalog_CostsAreWholeCents(t *testing.T) {
	r := Default()

	for _, rt := range []domain.RequestType{domain.RequestTypeText, domain.RequestTypeImage} {
		for _, p := range r.ListByType(rt) {
			if c := p.Cost("", ""); c < 0 {
				t.Errorf("%s: negative default cost %d", p.ID, c)
			}
			if c := p.Cost("1024x1024", "hd"); c < 0 {
				t.Errorf("%s: negative hd cost %d", p.ID, c)
			}
		}
		if _, err := r.DispatchFallback(rt); err != nil {
			t.Errorf("default catalog missing dispatch fallback for %s: %v", rt, err)
		}
		if _, err := r.Baseline(rt, "", ""); err != nil {
			t.Errorf("default catalog missing baseline for %s: %v", rt, err)
		}
	}
}
