// Package ledger is the engine's cost accounting: append-only usage records,
// the per-tenant daily budget state derived from them, and the pre-dispatch
// budget gate. The period boundary is the UTC date rollover, determined by
// comparing record dates to "today" at read time; there is no timer.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"
)

// Store is the persistence hook supplied by the host application.
type Store interface {
	Append(ctx context.Context, record domain.UsageRecord) error
	ReadRange(ctx context.Context, tenantID string, from, to time.Time) ([]domain.UsageRecord, error)
}

// PlanSource supplies a tenant's current plan limits.
type PlanSource interface {
	Plan(ctx context.Context, tenantID string) (domain.TenantPlan, error)
}

type Ledger struct {
	store Store
	plans PlanSource
}

func New(store Store, plans PlanSource) *Ledger {
	return &Ledger{store: store, plans: plans}
}

// State derives the current day's aggregate for one tenant. Failed-but-
// charged requests count toward spend; every recorded request counts toward
// the request limit.
func (l *Ledger) State(ctx context.Context, tenantID string) (domain.BudgetState, error) {
	plan, err := l.plans.Plan(ctx, tenantID)
	if err != nil {
		return domain.BudgetState{}, fmt.Errorf("load tenant plan: %w", err)
	}

	now := time.Now().UTC()
	today := domain.Day(now)
	startOfDay := now.Truncate(24 * time.Hour)

	records, err := l.store.ReadRange(ctx, tenantID, startOfDay, now)
	if err != nil {
		return domain.BudgetState{}, fmt.Errorf("read usage records: %w", err)
	}

	state := domain.BudgetState{
		TenantID:     tenantID,
		Date:         today,
		LimitCents:   plan.LimitCents,
		RequestLimit: plan.RequestLimit,
	}

	for _, r := range records {
		// Records from a previous period leak in around the rollover; the
		// date comparison is authoritative.
		if r.Date != today {
			continue
		}
		state.SpentCents += r.CostCents
		state.RequestCount++
	}

	return state, nil
}

// Record appends one usage record. Called exactly once per completed
// request; never for requests rejected before dispatch.
func (l *Ledger) Record(ctx context.Context, record domain.UsageRecord) error {
	if record.Date == "" {
		record.Date = domain.Day(record.Timestamp)
	}
	if err := l.store.Append(ctx, record); err != nil {
		return fmt.Errorf("append usage record: %w", err)
	}
	return nil
}

// Gate is the pre-dispatch budget check over the ledger.
type Gate struct {
	ledger *Ledger
}

func NewGate(l *Ledger) *Gate {
	return &Gate{ledger: l}
}

// Check reports whether a request with the given cost estimate fits the
// tenant's remaining daily allowance. Spending exactly up to the limit is
// allowed; one cent over is rejected. Non-positive limits are unlimited.
func (g *Gate) Check(ctx context.Context, tenantID string, estimateCents int) (bool, string, error) {
	state, err := g.ledger.State(ctx, tenantID)
	if err != nil {
		return false, "", err
	}

	plan, err := g.ledger.plans.Plan(ctx, tenantID)
	if err != nil {
		return false, "", fmt.Errorf("load tenant plan: %w", err)
	}

	if state.RequestLimit > 0 && state.RequestCount+1 > state.RequestLimit {
		return false, limitReason("daily AI request limit reached", plan.Tier), nil
	}

	if state.LimitCents > 0 && state.SpentCents+estimateCents > state.LimitCents {
		msg := fmt.Sprintf("daily AI budget of %s reached", formatCents(state.LimitCents))
		return false, limitReason(msg, plan.Tier), nil
	}

	return true, "", nil
}

func limitReason(msg, tier string) string {
	if next := domain.NextTier(tier); next != "" {
		return fmt.Sprintf("%s, resets tomorrow, upgrade to %s to raise it", msg, next)
	}
	return msg + ", resets tomorrow"
}

func formatCents(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

// InMemoryStore keeps records in memory. Used in tests and single-instance
// deployments without a database.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []domain.UsageRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, record domain.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) ReadRange(ctx context.Context, tenantID string, from, to time.Time) ([]domain.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.UsageRecord
	for _, r := range s.records {
		if r.TenantID != tenantID {
			continue
		}
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// All returns a copy of every record, for tests.
func (s *InMemoryStore) All() []domain.UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UsageRecord, len(s.records))
	copy(out, s.records)
	return out
}
