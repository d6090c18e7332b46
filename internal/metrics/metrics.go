// Package metrics exposes Prometheus instrumentation for the routing core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airouter_requests_total",
		Help: "Generation requests handled, by tenant, model, type and status.",
	}, []string{"tenant", "model", "request_type", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airouter_request_duration_seconds",
		Help:    "End to end generation latency in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"model", "request_type"})

	costCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airouter_cost_cents_total",
		Help: "Spend recorded against tenant budgets, in cents.",
	}, []string{"tenant", "model"})

	savingsCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airouter_savings_cents_total",
		Help: "Estimated cents saved by automatic routing versus the baseline model.",
	}, []string{"tenant"})

	routingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airouter_routing_decisions_total",
		Help: "Routing decisions, by selected model and whether routing was automatic.",
	}, []string{"model", "auto"})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airouter_fallbacks_total",
		Help: "Dispatches that succeeded on the fallback model, by primary model.",
	}, []string{"model"})

	budgetRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airouter_budget_rejections_total",
		Help: "Requests rejected by the budget gate.",
	}, []string{"tenant"})

	budgetUsage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "airouter_budget_usage_ratio",
		Help: "Fraction of the daily budget consumed per tenant.",
	}, []string{"tenant"})

	providerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airouter_provider_errors_total",
		Help: "Provider call failures, by provider and model.",
	}, []string{"provider", "model"})
)

func RecordRequest(tenant, model, requestType, status string, seconds float64) {
	requestsTotal.WithLabelValues(tenant, model, requestType, status).Inc()
	requestDuration.WithLabelValues(model, requestType).Observe(seconds)
}

func RecordCost(tenant, model string, cents int) {
	if cents > 0 {
		costCents.WithLabelValues(tenant, model).Add(float64(cents))
	}
}

func RecordSavings(tenant string, cents int) {
	if cents > 0 {
		savingsCents.WithLabelValues(tenant).Add(float64(cents))
	}
}

func RecordDecision(model string, auto bool) {
	label := "false"
	if auto {
		label = "true"
	}
	routingDecisions.WithLabelValues(model, label).Inc()
}

func RecordFallback(primaryModel string) {
	fallbacksTotal.WithLabelValues(primaryModel).Inc()
}

func RecordBudgetRejection(tenant string) {
	budgetRejections.WithLabelValues(tenant).Inc()
}

func SetBudgetUsage(tenant string, ratio float64) {
	budgetUsage.WithLabelValues(tenant).Set(ratio)
}

func RecordProviderError(provider, model string) {
	providerErrors.WithLabelValues(provider, model).Inc()
}
