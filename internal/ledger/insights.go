package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"
)

// Read-only query surface for the dashboards maintained outside this core.
// Everything here is a pure read over usage records; no mutation.

// Period names the aggregation window for usage stats.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func (p Period) days() int {
	switch p {
	case PeriodWeek:
		return 7
	case PeriodMonth:
		return 30
	default:
		return 1
	}
}

// ModelStats is the per-model slice of a usage summary.
type ModelStats struct {
	Requests  int `json:"requests"`
	CostCents int `json:"cost_cents"`
}

// UsageStats summarises a tenant's activity over a period.
type UsageStats struct {
	TenantID      string                `json:"tenant_id"`
	Period        Period                `json:"period"`
	TotalRequests int                   `json:"total_requests"`
	Succeeded     int                   `json:"succeeded"`
	TotalCost     int                   `json:"total_cost_cents"`
	TotalSavings  int                   `json:"total_savings_cents"`
	Fallbacks     int                   `json:"fallbacks"`
	ByModel       map[string]ModelStats `json:"by_model"`
}

// BudgetStatus is the dashboard view of the current day's budget.
type BudgetStatus struct {
	domain.BudgetState
	RemainingCents int     `json:"remaining_cents"`
	PercentUsed    float64 `json:"percent_used"`
}

// DailySpend is one day of a spend trend.
type DailySpend struct {
	Date      string `json:"date"`
	CostCents int    `json:"cost_cents"`
	Requests  int    `json:"requests"`
}

// RoutingInsights explains where the router sent a tenant's traffic and
// what the auto-routing saved.
type RoutingInsights struct {
	TenantID     string       `json:"tenant_id"`
	Days         int          `json:"days"`
	AutoRouted   int          `json:"auto_routed"`
	Overridden   int          `json:"overridden"`
	TotalSavings int          `json:"total_savings_cents"`
	FallbackRate float64      `json:"fallback_rate"`
	TopModel     string       `json:"top_model,omitempty"`
	SpendTrend   []DailySpend `json:"spend_trend"`
}

// GetUsageStats aggregates the tenant's records over the period.
func (l *Ledger) GetUsageStats(ctx context.Context, tenantID string, period Period) (UsageStats, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -period.days())

	records, err := l.store.ReadRange(ctx, tenantID, from, now)
	if err != nil {
		return UsageStats{}, fmt.Errorf("read usage records: %w", err)
	}

	stats := UsageStats{
		TenantID: tenantID,
		Period:   period,
		ByModel:  make(map[string]ModelStats),
	}

	for _, r := range records {
		stats.TotalRequests++
		stats.TotalCost += r.CostCents
		stats.TotalSavings += r.SavingsCents
		if r.Succeeded {
			stats.Succeeded++
		}
		if r.FallbackUsed {
			stats.Fallbacks++
		}
		m := stats.ByModel[r.ModelID]
		m.Requests++
		m.CostCents += r.CostCents
		stats.ByModel[r.ModelID] = m
	}

	return stats, nil
}

// GetBudgetStatus returns the current day's budget state with derived
// remaining and percent-used fields.
func (l *Ledger) GetBudgetStatus(ctx context.Context, tenantID string) (BudgetStatus, error) {
	state, err := l.State(ctx, tenantID)
	if err != nil {
		return BudgetStatus{}, err
	}

	status := BudgetStatus{
		BudgetState:    state,
		RemainingCents: state.RemainingCents(),
	}
	if state.LimitCents > 0 {
		status.PercentUsed = float64(state.SpentCents) / float64(state.LimitCents) * 100
	}
	return status, nil
}

// GetRoutingInsights summarises routing behaviour over the trailing days.
func (l *Ledger) GetRoutingInsights(ctx context.Context, tenantID string, days int) (RoutingInsights, error) {
	if days <= 0 {
		days = 7
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -days)

	records, err := l.store.ReadRange(ctx, tenantID, from, now)
	if err != nil {
		return RoutingInsights{}, fmt.Errorf("read usage records: %w", err)
	}

	insights := RoutingInsights{TenantID: tenantID, Days: days}

	byModel := make(map[string]int)
	byDay := make(map[string]*DailySpend)
	fallbacks := 0

	for _, r := range records {
		if r.AutoRouted {
			insights.AutoRouted++
		} else {
			insights.Overridden++
		}
		insights.TotalSavings += r.SavingsCents
		if r.FallbackUsed {
			fallbacks++
		}
		byModel[r.ModelID]++

		day, ok := byDay[r.Date]
		if !ok {
			day = &DailySpend{Date: r.Date}
			byDay[r.Date] = day
		}
		day.CostCents += r.CostCents
		day.Requests++
	}

	if len(records) > 0 {
		insights.FallbackRate = float64(fallbacks) / float64(len(records))
	}

	top, topCount := "", 0
	for model, count := range byModel {
		if count > topCount || (count == topCount && model < top) {
			top, topCount = model, count
		}
	}
	insights.TopModel = top

	for _, day := range byDay {
		insights.SpendTrend = append(insights.SpendTrend, *day)
	}
	sort.Slice(insights.SpendTrend, func(i, j int) bool {
		return insights.SpendTrend[i].Date < insights.SpendTrend[j].Date
	})

	return insights, nil
}
