// Package budget watches daily spend and raises alerts as tenants approach
// their limit. Alerting is advisory: admission control lives in the ledger
// gate, this package only notifies.
package budget

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"
	"github.com/pagecraft/ai-router/internal/ledger"
)

type AlertLevel string

const (
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
	AlertLevelExceeded AlertLevel = "exceeded"
)

type Alert struct {
	TenantID   string
	Level      AlertLevel
	Date       string
	LimitCents int
	SpentCents int
	Percentage float64
	Timestamp  time.Time
}

type AlertHandler func(alert Alert)

// Thresholds are fractions of the daily limit.
type Thresholds struct {
	Warning  float64
	Critical float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 0.8, Critical: 0.95}
}

type Monitor struct {
	mu         sync.RWMutex
	ledger     *ledger.Ledger
	handlers   []AlertHandler
	thresholds Thresholds
	dedup      Deduplicator
}

func NewMonitor(l *ledger.Ledger, thresholds Thresholds, dedup Deduplicator) *Monitor {
	if dedup == nil {
		dedup = NewInMemoryDeduplicator()
	}
	return &Monitor{
		ledger:     l,
		thresholds: thresholds,
		dedup:      dedup,
	}
}

func (m *Monitor) OnAlert(handler AlertHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// Check evaluates one tenant's current day against the thresholds and fires
// handlers for newly crossed levels. Tenants on unlimited plans never alert.
func (m *Monitor) Check(ctx context.Context, tenantID string) (*Alert, error) {
	state, err := m.ledger.State(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if state.LimitCents <= 0 {
		return nil, nil
	}

	fraction := float64(state.SpentCents) / float64(state.LimitCents)

	var level AlertLevel
	switch {
	case fraction >= 1.0:
		level = AlertLevelExceeded
	case fraction >= m.thresholds.Critical:
		level = AlertLevelCritical
	case fraction >= m.thresholds.Warning:
		level = AlertLevelWarning
	default:
		// Spend resets at the UTC rollover; clearing re-arms the alerts.
		m.dedup.Clear(ctx, tenantID, state.Date)
		return nil, nil
	}

	if !m.dedup.ShouldAlert(ctx, tenantID, state.Date, level) {
		return nil, nil
	}

	alert := &Alert{
		TenantID:   tenantID,
		Level:      level,
		Date:       state.Date,
		LimitCents: state.LimitCents,
		SpentCents: state.SpentCents,
		Percentage: fraction * 100,
		Timestamp:  time.Now().UTC(),
	}

	m.mu.RLock()
	handlers := make([]AlertHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		handler(*alert)
	}
	return alert, nil
}

// AfterRecord adapts the monitor to the engine's post-record hook.
func (m *Monitor) AfterRecord(ctx context.Context, record domain.UsageRecord) {
	if _, err := m.Check(ctx, record.TenantID); err != nil {
		slog.Warn("budget check failed", "tenant_id", record.TenantID, "error", err)
	}
}

func LogAlertHandler(alert Alert) {
	slog.Warn("budget alert",
		"tenant_id", alert.TenantID,
		"level", alert.Level,
		"date", alert.Date,
		"limit_cents", alert.LimitCents,
		"spent_cents", alert.SpentCents,
		"percentage", alert.Percentage,
	)
}
