package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pagecraft/ai-router/internal/domain"
	"github.com/pagecraft/ai-router/internal/engine"
	"github.com/pagecraft/ai-router/internal/ledger"
	"github.com/pagecraft/ai-router/internal/ratelimit"
	"github.com/pagecraft/ai-router/internal/registry"
	"github.com/pagecraft/ai-router/internal/tenant"
)

const testAPIKey = "pc-default-key"

type stubEngine struct {
	lastReq domain.GenerationRequest
	outcome *engine.Outcome
	err     error
	calls   int
}

func (s *stubEngine) RouteAndExecute(ctx context.Context, req domain.GenerationRequest) (*engine.Outcome, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

type stubInsights struct {
	stats    ledger.UsageStats
	budget   ledger.BudgetStatus
	insights ledger.RoutingInsights
	period   ledger.Period
	days     int
}

func (s *stubInsights) GetUsageStats(ctx context.Context, tenantID string, period ledger.Period) (ledger.UsageStats, error) {
	s.period = period
	return s.stats, nil
}

func (s *stubInsights) GetBudgetStatus(ctx context.Context, tenantID string) (ledger.BudgetStatus, error) {
	return s.budget, nil
}

func (s *stubInsights) GetRoutingInsights(ctx context.Context, tenantID string, days int) (ledger.RoutingInsights, error) {
	s.days = days
	return s.insights, nil
}

func newTestHandler(t *testing.T, eng Router) (*Handler, *stubInsights) {
	t.Helper()
	ins := &stubInsights{}
	h := NewHandler(HandlerConfig{
		Tenants:  tenant.NewInMemoryRepository(),
		Limiter:  ratelimit.NewInMemoryLimiter(),
		Engine:   eng,
		Insights: ins,
		Registry: registry.Default(),
	})
	return h, ins
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func successOutcome() *engine.Outcome {
	return &engine.Outcome{
		RequestID: "req-1",
		Decision: domain.RoutingDecision{
			SelectedModel: "sdxl-turbo",
			WasAutoRouted: true,
		},
		Result: &domain.GenerationResult{
			Images:    []domain.GeneratedImage{{URL: "https://img.example/1.png"}},
			ModelUsed: "sdxl-turbo",
			CostCents: 1,
			LatencyMs: 420,
		},
	}
}

func TestGenerateImageSuccess(t *testing.T) {
	eng := &stubEngine{outcome: successOutcome()}
	h, _ := newTestHandler(t, eng)

	rec := doRequest(h, http.MethodPost, "/v1/generate/image",
		`{"prompt":"quick sketch of a fox","size":"512x512"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-1" {
		t.Errorf("X-Request-ID = %q", got)
	}

	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ModelUsed != "sdxl-turbo" || resp.CostCents != 1 {
		t.Errorf("response = %+v", resp)
	}

	if eng.lastReq.RequestType != domain.RequestTypeImage {
		t.Errorf("request type = %q", eng.lastReq.RequestType)
	}
	if eng.lastReq.TenantID != "default" {
		t.Errorf("tenant = %q", eng.lastReq.TenantID)
	}
	if eng.lastReq.SizeHint != "512x512" {
		t.Errorf("size hint = %q", eng.lastReq.SizeHint)
	}
}

func TestGenerateTextSetsRequestType(t *testing.T) {
	eng := &stubEngine{outcome: &engine.Outcome{
		RequestID: "req-2",
		Decision:  domain.RoutingDecision{SelectedModel: "llama3-8b"},
		Result:    &domain.GenerationResult{Content: "hi", ModelUsed: "llama3-8b"},
	}}
	h, _ := newTestHandler(t, eng)

	rec := doRequest(h, http.MethodPost, "/v1/generate/text", `{"prompt":"say hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if eng.lastReq.RequestType != domain.RequestTypeText {
		t.Errorf("request type = %q", eng.lastReq.RequestType)
	}
}

func TestGenerateOverridesPreference(t *testing.T) {
	eng := &stubEngine{outcome: successOutcome()}
	h, _ := newTestHandler(t, eng)

	doRequest(h, http.MethodPost, "/v1/generate/image",
		`{"prompt":"a fox","model":"dall-e-3","style_preference":"quality"}`)

	if eng.lastReq.Preference.ModelOverride != "dall-e-3" {
		t.Errorf("model override = %q", eng.lastReq.Preference.ModelOverride)
	}
	if eng.lastReq.Preference.StylePreference != domain.PreferQuality {
		t.Errorf("style preference = %q", eng.lastReq.Preference.StylePreference)
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	eng := &stubEngine{outcome: successOutcome()}
	h, _ := newTestHandler(t, eng)

	req := httptest.NewRequest(http.MethodPost, "/v1/generate/image",
		strings.NewReader(`{"prompt":"a fox"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if eng.calls != 0 {
		t.Errorf("engine called %d times", eng.calls)
	}
}

func TestGenerateRejectsUnknownAPIKey(t *testing.T) {
	eng := &stubEngine{outcome: successOutcome()}
	h, _ := newTestHandler(t, eng)

	req := httptest.NewRequest(http.MethodPost, "/v1/generate/image",
		strings.NewReader(`{"prompt":"a fox"}`))
	req.Header.Set("Authorization", "Bearer pc-wrong-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRejectionStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"invalid prompt", domain.NewInvalidPrompt("prompt must not be empty"), http.StatusBadRequest, "invalid_prompt"},
		{"model not found", domain.NewModelNotFound("no-such", domain.RequestTypeImage), http.StatusNotFound, "model_not_found"},
		{"budget exceeded", domain.NewBudgetExceeded("daily AI budget reached, resets tomorrow"), http.StatusPaymentRequired, "budget_exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, &stubEngine{err: tt.err})

			rec := doRequest(h, http.MethodPost, "/v1/generate/image", `{"prompt":"a fox"}`)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}

			var resp struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.code)
			}
			if resp.Error.Message == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestRateLimitExceeded(t *testing.T) {
	eng := &stubEngine{outcome: successOutcome()}
	ins := &stubInsights{}
	h := NewHandler(HandlerConfig{
		Tenants:  tenant.NewInMemoryRepository(),
		Limiter:  ratelimit.NewInMemoryLimiter(),
		Engine:   eng,
		Insights: ins,
		Registry: registry.Default(),
	})

	// The default tenant allows 100 rpm; burn through the window.
	var last *httptest.ResponseRecorder
	for i := 0; i < 101; i++ {
		last = doRequest(h, http.MethodPost, "/v1/generate/image", `{"prompt":"a fox"}`)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if got := last.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q", got)
	}
	if eng.calls != 100 {
		t.Errorf("engine called %d times, want 100", eng.calls)
	}
}

func TestUsageStatsDefaultsToDay(t *testing.T) {
	h, ins := newTestHandler(t, &stubEngine{})

	rec := doRequest(h, http.MethodGet, "/v1/usage/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ins.period != ledger.PeriodDay {
		t.Errorf("period = %q, want day", ins.period)
	}
}

func TestUsageStatsRejectsBadPeriod(t *testing.T) {
	h, _ := newTestHandler(t, &stubEngine{})

	rec := doRequest(h, http.MethodGet, "/v1/usage/stats?period=year", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRoutingInsightsValidatesDays(t *testing.T) {
	h, ins := newTestHandler(t, &stubEngine{})

	rec := doRequest(h, http.MethodGet, "/v1/usage/insights?days=30", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ins.days != 30 {
		t.Errorf("days = %d", ins.days)
	}

	rec = doRequest(h, http.MethodGet, "/v1/usage/insights?days=120", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status for days=120 = %d", rec.Code)
	}
}

func TestListModelsIncludesAvailability(t *testing.T) {
	h, _ := newTestHandler(t, &stubEngine{})

	rec := doRequest(h, http.MethodGet, "/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Models []modelInfo `json:"models"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Models) == 0 {
		t.Fatal("no models returned")
	}
	for _, m := range resp.Models {
		if m.Availability == "" {
			t.Errorf("model %s has empty availability", m.ID)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestHandler(t, &stubEngine{})

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
}
