package budget

import (
	"context"
	"testing"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"
	"github.com/pagecraft/ai-router/internal/ledger"
)

type stubPlans struct {
	plan domain.TenantPlan
}

func (s *stubPlans) Plan(ctx context.Context, tenantID string) (domain.TenantPlan, error) {
	return s.plan, nil
}

func newLedgerWithSpend(t *testing.T, limitCents, spentCents int) *ledger.Ledger {
	t.Helper()
	store := ledger.NewInMemoryStore()
	led := ledger.New(store, &stubPlans{plan: domain.TenantPlan{Tier: domain.TierStarter, LimitCents: limitCents, RequestLimit: 100}})

	if spentCents > 0 {
		now := time.Now().UTC()
		if err := store.Append(context.Background(), domain.UsageRecord{
			TenantID:  "acme",
			RequestID: "seed",
			Date:      domain.Day(now),
			ModelID:   "gpt-4o",
			CostCents: spentCents,
			Succeeded: true,
			Timestamp: now,
		}); err != nil {
			t.Fatal(err)
		}
	}
	return led
}

func TestMonitorLevels(t *testing.T) {
	tests := []struct {
		name       string
		limitCents int
		spentCents int
		wantLevel  AlertLevel
		wantAlert  bool
	}{
		{name: "below warning", limitCents: 500, spentCents: 300, wantAlert: false},
		{name: "warning at 80 percent", limitCents: 500, spentCents: 400, wantLevel: AlertLevelWarning, wantAlert: true},
		{name: "critical at 95 percent", limitCents: 500, spentCents: 475, wantLevel: AlertLevelCritical, wantAlert: true},
		{name: "exceeded at limit", limitCents: 500, spentCents: 500, wantLevel: AlertLevelExceeded, wantAlert: true},
		{name: "unlimited plan never alerts", limitCents: 0, spentCents: 9999, wantAlert: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(newLedgerWithSpend(t, tt.limitCents, tt.spentCents), DefaultThresholds(), nil)

			var fired []Alert
			m.OnAlert(func(a Alert) { fired = append(fired, a) })

			alert, err := m.Check(context.Background(), "acme")
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if tt.wantAlert != (alert != nil) {
				t.Fatalf("alert = %v, wantAlert = %v", alert, tt.wantAlert)
			}
			if !tt.wantAlert {
				if len(fired) != 0 {
					t.Errorf("handlers fired %d times, want 0", len(fired))
				}
				return
			}
			if alert.Level != tt.wantLevel {
				t.Errorf("level = %s, want %s", alert.Level, tt.wantLevel)
			}
			if len(fired) != 1 {
				t.Errorf("handlers fired %d times, want 1", len(fired))
			}
		})
	}
}

func TestMonitorDeduplicatesSameLevel(t *testing.T) {
	m := NewMonitor(newLedgerWithSpend(t, 500, 400), DefaultThresholds(), nil)

	first, err := m.Check(context.Background(), "acme")
	if err != nil || first == nil {
		t.Fatalf("first Check = (%v, %v), want an alert", first, err)
	}
	second, err := m.Check(context.Background(), "acme")
	if err != nil {
		t.Fatal(err)
	}
	if second != nil {
		t.Errorf("second Check = %+v, want nil for a repeated level", second)
	}
}

func TestMonitorEscalates(t *testing.T) {
	store := ledger.NewInMemoryStore()
	led := ledger.New(store, &stubPlans{plan: domain.TenantPlan{Tier: domain.TierStarter, LimitCents: 500, RequestLimit: 100}})
	m := NewMonitor(led, DefaultThresholds(), nil)

	seed := func(cents int) {
		now := time.Now().UTC()
		if err := store.Append(context.Background(), domain.UsageRecord{
			TenantID: "acme", Date: domain.Day(now), CostCents: cents, Timestamp: now,
		}); err != nil {
			t.Fatal(err)
		}
	}

	seed(400)
	a, _ := m.Check(context.Background(), "acme")
	if a == nil || a.Level != AlertLevelWarning {
		t.Fatalf("first alert = %+v, want warning", a)
	}

	seed(100)
	a, _ = m.Check(context.Background(), "acme")
	if a == nil || a.Level != AlertLevelExceeded {
		t.Fatalf("escalated alert = %+v, want exceeded", a)
	}
}

func TestInMemoryDeduplicator(t *testing.T) {
	d := NewInMemoryDeduplicator()
	ctx := context.Background()

	if !d.ShouldAlert(ctx, "acme", "2026-08-30", AlertLevelWarning) {
		t.Error("first warning suppressed")
	}
	if d.ShouldAlert(ctx, "acme", "2026-08-30", AlertLevelWarning) {
		t.Error("repeat warning not suppressed")
	}
	if !d.ShouldAlert(ctx, "acme", "2026-08-30", AlertLevelCritical) {
		t.Error("escalation suppressed")
	}
	// A new day re-arms.
	if !d.ShouldAlert(ctx, "acme", "2026-08-31", AlertLevelCritical) {
		t.Error("new day suppressed")
	}

	d.Clear(ctx, "acme", "2026-08-31")
	if !d.ShouldAlert(ctx, "acme", "2026-08-31", AlertLevelCritical) {
		t.Error("cleared alert still suppressed")
	}
}
