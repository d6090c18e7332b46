// Package api is the HTTP surface of the router: tenant-facing generation
// and usage endpoints, plus the authenticated admin surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagecraft/ai-router/internal/domain"
	"github.com/pagecraft/ai-router/internal/engine"
	"github.com/pagecraft/ai-router/internal/ledger"
	"github.com/pagecraft/ai-router/internal/ratelimit"
	"github.com/pagecraft/ai-router/internal/registry"
	"github.com/pagecraft/ai-router/internal/tenant"
)

// Router is the engine's entry point, narrowed for testability.
type Router interface {
	RouteAndExecute(ctx context.Context, req domain.GenerationRequest) (*engine.Outcome, error)
}

// Insights is the ledger's read-only query surface.
type Insights interface {
	GetUsageStats(ctx context.Context, tenantID string, period ledger.Period) (ledger.UsageStats, error)
	GetBudgetStatus(ctx context.Context, tenantID string) (ledger.BudgetStatus, error)
	GetRoutingInsights(ctx context.Context, tenantID string, days int) (ledger.RoutingInsights, error)
}

type HandlerConfig struct {
	Tenants  tenant.Repository
	Limiter  ratelimit.Limiter
	Engine   Router
	Insights Insights
	Registry *registry.Registry
	Health   HealthReporter
	Ready    []ReadinessCheck
}

type Handler struct {
	tenants  tenant.Repository
	limiter  ratelimit.Limiter
	engine   Router
	insights Insights
	registry *registry.Registry
	health   HealthReporter
	ready    []ReadinessCheck
	mux      *http.ServeMux
}

func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		tenants:  cfg.Tenants,
		limiter:  cfg.Limiter,
		engine:   cfg.Engine,
		insights: cfg.Insights,
		registry: cfg.Registry,
		health:   cfg.Health,
		ready:    cfg.Ready,
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /v1/generate/text", h.generate(domain.RequestTypeText))
	h.mux.HandleFunc("POST /v1/generate/image", h.generate(domain.RequestTypeImage))
	h.mux.HandleFunc("GET /v1/models", h.listModels)
	h.mux.HandleFunc("GET /v1/usage/stats", h.usageStats)
	h.mux.HandleFunc("GET /v1/usage/budget", h.budgetStatus)
	h.mux.HandleFunc("GET /v1/usage/insights", h.routingInsights)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /health/live", h.handleLive)
	h.mux.HandleFunc("GET /health/ready", h.handleReady)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// generateRequest is the inbound payload for both generation endpoints.
// Model and style_preference override the tenant's stored preference for
// this request only.
type generateRequest struct {
	Prompt          string `json:"prompt"`
	NegativePrompt  string `json:"negative_prompt,omitempty"`
	Size            string `json:"size,omitempty"`
	Quality         string `json:"quality,omitempty"`
	Model           string `json:"model,omitempty"`
	StylePreference string `json:"style_preference,omitempty"`
}

type generateResponse struct {
	RequestID string                  `json:"request_id"`
	Content   string                  `json:"content,omitempty"`
	Images    []domain.GeneratedImage `json:"images,omitempty"`
	ModelUsed string                  `json:"model_used"`
	CostCents int                     `json:"cost_cents"`
	LatencyMs int64                   `json:"latency_ms"`
	Fallback  bool                    `json:"fallback_used"`
	Routing   domain.RoutingDecision  `json:"routing"`
}

func (h *Handler) generate(requestType domain.RequestType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ten, ok := h.authenticate(w, r)
		if !ok {
			return
		}
		if !h.admit(w, r, ten) {
			return
		}

		var body generateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}

		req := domain.GenerationRequest{
			TenantID:       ten.ID,
			RequestType:    requestType,
			Prompt:         body.Prompt,
			NegativePrompt: body.NegativePrompt,
			SizeHint:       body.Size,
			QualityHint:    body.Quality,
			Preference:     ten.Preference,
		}
		if body.Model != "" {
			req.Preference.ModelOverride = body.Model
		}
		if body.StylePreference != "" {
			req.Preference.StylePreference = domain.StylePreference(body.StylePreference)
		}

		out, err := h.engine.RouteAndExecute(ctx, req)
		if err != nil {
			h.writeEngineError(w, r, ten.ID, err)
			return
		}

		slog.Info("generation completed",
			"tenant_id", ten.ID,
			"request_id", out.RequestID,
			"request_type", requestType,
			"model", out.Result.ModelUsed,
			"cost_cents", out.Result.CostCents,
			"auto_routed", out.Decision.WasAutoRouted,
			"fallback", out.Result.FallbackUsed,
			"latency_ms", out.Result.LatencyMs,
		)

		w.Header().Set("X-Request-ID", out.RequestID)
		writeJSON(w, http.StatusOK, generateResponse{
			RequestID: out.RequestID,
			Content:   out.Result.Content,
			Images:    out.Result.Images,
			ModelUsed: out.Result.ModelUsed,
			CostCents: out.Result.CostCents,
			LatencyMs: out.Result.LatencyMs,
			Fallback:  out.Result.FallbackUsed,
			Routing:   out.Decision,
		})
	}
}

// authenticate resolves the tenant from the bearer API key.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (*tenant.Tenant, bool) {
	apiKey := extractAPIKey(r)
	if apiKey == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key")
		return nil, false
	}

	ten, err := h.tenants.GetByAPIKey(r.Context(), apiKey)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
		return nil, false
	}
	return ten, true
}

// admit applies the per-tenant rate limit and sets the standard headers.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, ten *tenant.Tenant) bool {
	if h.limiter == nil {
		return true
	}

	res, err := h.limiter.Allow(r.Context(), ten.ID, ten.RateLimitRPM)
	if err != nil {
		slog.Error("rate limiter error", "tenant_id", ten.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return false
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", res.ResetAt.Format(time.RFC3339))
	}

	if !res.Allowed {
		slog.Warn("rate limit exceeded", "tenant_id", ten.ID)
		writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, slow down")
		return false
	}
	return true
}

// writeEngineError maps the engine's rejection taxonomy onto HTTP statuses.
// Rejection reasons are user-displayable by contract.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, tenantID string, err error) {
	rej, ok := domain.AsRejection(err)
	if !ok {
		slog.Error("generation failed", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidPrompt):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrModelNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrBudgetExceeded):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrGenerationFailed):
		status = http.StatusBadGateway
	}

	slog.Warn("request rejected",
		"tenant_id", tenantID,
		"code", rej.Code,
		"status", status,
		"error", err,
	)
	writeError(w, status, rej.Code, rej.Reason)
}

type modelInfo struct {
	ID           string   `json:"id"`
	RequestType  string   `json:"request_type"`
	Provider     string   `json:"provider"`
	Capabilities []string `json:"capabilities"`
	Availability string   `json:"availability"`
}

func (h *Handler) listModels(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	var models []modelInfo
	for _, rt := range []domain.RequestType{domain.RequestTypeText, domain.RequestTypeImage} {
		for _, p := range h.registry.ListByType(rt) {
			models = append(models, modelInfo{
				ID:           p.ID,
				RequestType:  string(p.RequestType),
				Provider:     p.Provider,
				Capabilities: p.Capabilities,
				Availability: string(p.Availability()),
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (h *Handler) usageStats(w http.ResponseWriter, r *http.Request) {
	ten, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	period := ledger.Period(r.URL.Query().Get("period"))
	switch period {
	case ledger.PeriodDay, ledger.PeriodWeek, ledger.PeriodMonth:
	case "":
		period = ledger.PeriodDay
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "period must be day, week or month")
		return
	}

	stats, err := h.insights.GetUsageStats(r.Context(), ten.ID, period)
	if err != nil {
		slog.Error("usage stats failed", "tenant_id", ten.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) budgetStatus(w http.ResponseWriter, r *http.Request) {
	ten, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	status, err := h.insights.GetBudgetStatus(r.Context(), ten.ID)
	if err != nil {
		slog.Error("budget status failed", "tenant_id", ten.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) routingInsights(w http.ResponseWriter, r *http.Request) {
	ten, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 90 {
			writeError(w, http.StatusBadRequest, "invalid_request", "days must be between 1 and 90")
			return
		}
		days = n
	}

	insights, err := h.insights.GetRoutingInsights(r.Context(), ten.ID, days)
	if err != nil {
		slog.Error("routing insights failed", "tenant_id", ten.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
