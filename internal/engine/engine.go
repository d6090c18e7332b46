// Package engine is the routing orchestrator: the single entry point that
// validates a generation request, routes it, gates it against the tenant's
// budget, dispatches it, and records the outcome.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pagecraft/ai-router/internal/dispatch"
	"github.com/pagecraft/ai-router/internal/domain"
	"github.com/pagecraft/ai-router/internal/ledger"
	"github.com/pagecraft/ai-router/internal/metrics"
	"github.com/pagecraft/ai-router/internal/policy"
)

var tracer = otel.Tracer("github.com/pagecraft/ai-router/internal/engine")

// Reserver is the optional atomic budget reservation path. When configured it
// replaces the read-then-check gate for admission, closing the race between
// concurrent requests from the same tenant.
type Reserver interface {
	Reserve(ctx context.Context, tenantID, date string, estimateCents, limitCents, requestLimit int) (bool, error)
	Commit(ctx context.Context, tenantID, date string, estimateCents, actualCents int) error
	Release(ctx context.Context, tenantID, date string, estimateCents int) error
}

// Exporter ships usage records to an external sink, best effort.
type Exporter interface {
	Export(ctx context.Context, record domain.UsageRecord) error
}

// Outcome is what the engine hands back on success: the backend result plus
// the routing decision that produced it, for response transparency.
type Outcome struct {
	RequestID string
	Decision  domain.RoutingDecision
	Result    *domain.GenerationResult
}

type Engine struct {
	policy     *policy.Policy
	gate       *ledger.Gate
	ledger     *ledger.Ledger
	dispatcher *dispatch.Dispatcher
	plans      ledger.PlanSource

	reserver    Reserver
	exporter    Exporter
	afterRecord func(ctx context.Context, record domain.UsageRecord)
}

type Option func(*Engine)

// WithReserver switches budget admission to atomic Redis reservations.
func WithReserver(r Reserver) Option {
	return func(e *Engine) { e.reserver = r }
}

// WithExporter forwards every usage record to an external queue.
func WithExporter(x Exporter) Option {
	return func(e *Engine) { e.exporter = x }
}

// WithAfterRecord installs a hook called after each usage record is written.
// The budget alert monitor hangs off this.
func WithAfterRecord(fn func(ctx context.Context, record domain.UsageRecord)) Option {
	return func(e *Engine) { e.afterRecord = fn }
}

func New(p *policy.Policy, g *ledger.Gate, l *ledger.Ledger, d *dispatch.Dispatcher, plans ledger.PlanSource, opts ...Option) *Engine {
	e := &Engine{
		policy:     p,
		gate:       g,
		ledger:     l,
		dispatcher: d,
		plans:      plans,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RouteAndExecute runs the full pipeline for one request: validate, decide,
// gate, dispatch, record. Requests rejected before dispatch leave no usage
// record; anything dispatched is recorded exactly once, even on failure.
func (e *Engine) RouteAndExecute(ctx context.Context, req domain.GenerationRequest) (*Outcome, error) {
	requestID := uuid.NewString()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "engine.RouteAndExecute")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", req.TenantID),
		attribute.String("request.id", requestID),
		attribute.String("request.type", string(req.RequestType)),
	)

	if err := dispatch.ValidatePrompt(req); err != nil {
		span.SetStatus(codes.Error, "invalid prompt")
		return nil, err
	}

	decision, err := e.policy.Decide(req)
	if err != nil {
		span.SetStatus(codes.Error, "routing failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("routing.model", decision.SelectedModel),
		attribute.Bool("routing.auto", decision.WasAutoRouted),
		attribute.Int("routing.estimated_cost_cents", decision.EstimatedCostCents),
	)
	metrics.RecordDecision(decision.SelectedModel, decision.WasAutoRouted)

	reservedDate, err := e.admit(ctx, req.TenantID, decision.EstimatedCostCents)
	if err != nil {
		if errors.Is(err, domain.ErrBudgetExceeded) {
			metrics.RecordBudgetRejection(req.TenantID)
			span.SetStatus(codes.Error, "budget exceeded")
		}
		return nil, err
	}

	result, dispatchErr := e.dispatcher.Execute(ctx, decision, req)
	if dispatchErr != nil {
		e.recordFailure(ctx, requestID, req, decision, reservedDate, start, dispatchErr)
		span.SetStatus(codes.Error, "dispatch failed")
		return nil, dispatchErr
	}

	final := finalize(decision, result)
	now := time.Now().UTC()
	record := domain.UsageRecord{
		TenantID:     req.TenantID,
		RequestID:    requestID,
		Date:         domain.Day(now),
		RequestType:  req.RequestType,
		ModelID:      result.ModelUsed,
		CostCents:    result.CostCents,
		SavingsCents: final.EstimatedSavingsCents,
		Succeeded:    true,
		FallbackUsed: result.FallbackUsed,
		AutoRouted:   decision.WasAutoRouted,
		LatencyMs:    result.LatencyMs,
		Timestamp:    now,
	}
	e.record(ctx, record, reservedDate, decision.EstimatedCostCents)

	if result.FallbackUsed {
		metrics.RecordFallback(decision.SelectedModel)
	}
	metrics.RecordRequest(req.TenantID, result.ModelUsed, string(req.RequestType), "success", time.Since(start).Seconds())
	metrics.RecordCost(req.TenantID, result.ModelUsed, result.CostCents)
	metrics.RecordSavings(req.TenantID, record.SavingsCents)
	e.publishBudgetUsage(ctx, req.TenantID)

	return &Outcome{RequestID: requestID, Decision: final, Result: result}, nil
}

// admit runs the budget check. A non-empty return is the date a reservation
// was keyed on; settlement must use the same date even across a midnight
// rollover.
func (e *Engine) admit(ctx context.Context, tenantID string, estimateCents int) (string, error) {
	if e.reserver != nil {
		plan, err := e.plans.Plan(ctx, tenantID)
		if err != nil {
			return "", err
		}
		date := domain.Today()
		ok, err := e.reserver.Reserve(ctx, tenantID, date, estimateCents, plan.LimitCents, plan.RequestLimit)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", domain.NewBudgetExceeded(e.rejectionReason(ctx, tenantID, estimateCents))
		}
		return date, nil
	}

	allowed, reason, err := e.gate.Check(ctx, tenantID, estimateCents)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", domain.NewBudgetExceeded(reason)
	}
	return "", nil
}

// rejectionReason reuses the gate's message for a reservation denial. The
// ledger read can race the counters, so a generic message backs it up.
func (e *Engine) rejectionReason(ctx context.Context, tenantID string, estimateCents int) string {
	allowed, reason, err := e.gate.Check(ctx, tenantID, estimateCents)
	if err == nil && !allowed {
		return reason
	}
	return "daily AI budget reached, resets tomorrow"
}

func (e *Engine) recordFailure(ctx context.Context, requestID string, req domain.GenerationRequest, decision domain.RoutingDecision, reservedDate string, start time.Time, dispatchErr error) {
	incurred := 0
	modelID := decision.SelectedModel
	latency := time.Since(start).Milliseconds()

	var failure *dispatch.Failure
	if errors.As(dispatchErr, &failure) {
		incurred = failure.IncurredCents
		modelID = failure.ModelID
		latency = failure.LatencyMs
	}

	now := time.Now().UTC()
	record := domain.UsageRecord{
		TenantID:    req.TenantID,
		RequestID:   requestID,
		Date:        domain.Day(now),
		RequestType: req.RequestType,
		ModelID:     modelID,
		CostCents:   incurred,
		Succeeded:   false,
		AutoRouted:  decision.WasAutoRouted,
		LatencyMs:   latency,
		Timestamp:   now,
	}
	e.record(ctx, record, reservedDate, decision.EstimatedCostCents)

	profile, err := e.dispatcher.Profile(req.RequestType, modelID)
	if err == nil {
		metrics.RecordProviderError(profile.Provider, modelID)
	}
	metrics.RecordRequest(req.TenantID, modelID, string(req.RequestType), "failure", time.Since(start).Seconds())
	metrics.RecordCost(req.TenantID, modelID, incurred)
}

// record writes the usage record and settles any reservation against the
// date it was taken for. The write is detached from the caller's
// cancellation: once a backend was invoked, the ledger entry happens even if
// the client went away.
func (e *Engine) record(ctx context.Context, record domain.UsageRecord, reservedDate string, estimateCents int) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	recordErr := e.ledger.Record(writeCtx, record)
	if recordErr != nil {
		slog.Error("usage record write failed",
			"tenant_id", record.TenantID,
			"request_id", record.RequestID,
			"error", recordErr,
		)
	}

	if reservedDate != "" {
		// A record that never landed must not keep its spend reserved; the
		// ledger is the source of truth the counters reconcile against.
		var settleErr error
		if recordErr != nil {
			settleErr = e.reserver.Release(writeCtx, record.TenantID, reservedDate, estimateCents)
		} else {
			settleErr = e.reserver.Commit(writeCtx, record.TenantID, reservedDate, estimateCents, record.CostCents)
		}
		if settleErr != nil {
			slog.Error("budget reservation settlement failed",
				"tenant_id", record.TenantID,
				"request_id", record.RequestID,
				"error", settleErr,
			)
		}
	}

	if e.exporter != nil {
		if err := e.exporter.Export(writeCtx, record); err != nil {
			slog.Warn("usage export failed",
				"tenant_id", record.TenantID,
				"request_id", record.RequestID,
				"error", err,
			)
		}
	}

	if e.afterRecord != nil {
		e.afterRecord(writeCtx, record)
	}
}

func (e *Engine) publishBudgetUsage(ctx context.Context, tenantID string) {
	state, err := e.ledger.State(ctx, tenantID)
	if err != nil || state.LimitCents <= 0 {
		return
	}
	metrics.SetBudgetUsage(tenantID, float64(state.SpentCents)/float64(state.LimitCents))
}

// finalize reconciles the decision with what actually ran. After a fallback
// the decision reflects the model used and its cost, and the savings claim is
// dropped: the request did not land where routing intended.
func finalize(decision domain.RoutingDecision, result *domain.GenerationResult) domain.RoutingDecision {
	if !result.FallbackUsed {
		decision.EstimatedCostCents = result.CostCents
		return decision
	}
	decision.SelectedModel = result.ModelUsed
	decision.EstimatedCostCents = result.CostCents
	decision.EstimatedSavingsCents = 0
	decision.Reasoning = decision.Reasoning + " (fell back after backend failure)"
	return decision
}
