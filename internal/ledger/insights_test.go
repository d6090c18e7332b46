package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"
)

func TestGetUsageStats(t *testing.T) {
	l, store := newTestLedger(nil)
	ctx := context.Background()
	now := time.Now().UTC()

	r1 := record("tenant1", 10, now)
	r1.SavingsCents = 3
	store.Append(ctx, r1)

	r2 := record("tenant1", 4, now)
	r2.ModelID = "dall-e-3"
	r2.FallbackUsed = true
	store.Append(ctx, r2)

	r3 := record("tenant1", 0, now)
	r3.Succeeded = false
	store.Append(ctx, r3)

	stats, err := l.GetUsageStats(ctx, "tenant1", PeriodDay)
	if err != nil {
		t.Fatalf("GetUsageStats() error = %v", err)
	}
	if stats.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", stats.TotalRequests)
	}
	if stats.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", stats.Succeeded)
	}
	if stats.TotalCost != 14 {
		t.Errorf("TotalCost = %d, want 14", stats.TotalCost)
	}
	if stats.TotalSavings != 3 {
		t.Errorf("TotalSavings = %d, want 3", stats.TotalSavings)
	}
	if stats.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", stats.Fallbacks)
	}
	if m := stats.ByModel["gpt-4o-mini"]; m.Requests != 2 || m.CostCents != 10 {
		t.Errorf("ByModel[gpt-4o-mini] = %+v", m)
	}
}

func TestGetBudgetStatus(t *testing.T) {
	plans := map[string]domain.TenantPlan{
		"tenant1": {Tier: domain.TierStarter, LimitCents: 200, RequestLimit: 50},
	}
	l, store := newTestLedger(plans)
	ctx := context.Background()

	store.Append(ctx, record("tenant1", 50, time.Now().UTC()))

	status, err := l.GetBudgetStatus(ctx, "tenant1")
	if err != nil {
		t.Fatalf("GetBudgetStatus() error = %v", err)
	}
	if status.RemainingCents != 150 {
		t.Errorf("RemainingCents = %d, want 150", status.RemainingCents)
	}
	if status.PercentUsed != 25 {
		t.Errorf("PercentUsed = %v, want 25", status.PercentUsed)
	}
}

func TestGetRoutingInsights(t *testing.T) {
	l, store := newTestLedger(nil)
	ctx := context.Background()
	now := time.Now().UTC()

	auto1 := record("tenant1", 1, now)
	auto1.ModelID = "sdxl-turbo"
	auto1.SavingsCents = 3
	store.Append(ctx, auto1)

	auto2 := record("tenant1", 1, now)
	auto2.ModelID = "sdxl-turbo"
	auto2.SavingsCents = 3
	auto2.FallbackUsed = true
	store.Append(ctx, auto2)

	pinned := record("tenant1", 4, now)
	pinned.ModelID = "dall-e-3"
	pinned.AutoRouted = false
	store.Append(ctx, pinned)

	insights, err := l.GetRoutingInsights(ctx, "tenant1", 7)
	if err != nil {
		t.Fatalf("GetRoutingInsights() error = %v", err)
	}
	if insights.AutoRouted != 2 || insights.Overridden != 1 {
		t.Errorf("AutoRouted/Overridden = %d/%d, want 2/1", insights.AutoRouted, insights.Overridden)
	}
	if insights.TotalSavings != 6 {
		t.Errorf("TotalSavings = %d, want 6", insights.TotalSavings)
	}
	if insights.TopModel != "sdxl-turbo" {
		t.Errorf("TopModel = %q, want sdxl-turbo", insights.TopModel)
	}
	if insights.FallbackRate < 0.32 || insights.FallbackRate > 0.34 {
		t.Errorf("FallbackRate = %v, want ~1/3", insights.FallbackRate)
	}
	if len(insights.SpendTrend) != 1 {
		t.Fatalf("SpendTrend length = %d, want 1", len(insights.SpendTrend))
	}
	if insights.SpendTrend[0].CostCents != 6 || insights.SpendTrend[0].Requests != 3 {
		t.Errorf("SpendTrend[0] = %+v", insights.SpendTrend[0])
	}
}
