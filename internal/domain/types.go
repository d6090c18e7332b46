package domain

import "time"

// RequestType distinguishes the two generation surfaces of the engine.
type RequestType string

const (
	RequestTypeText  RequestType = "text"
	RequestTypeImage RequestType = "image"
)

// ComplexityTier is the analyzer's judgement of how demanding a prompt is.
type ComplexityTier string

const (
	ComplexitySimple   ComplexityTier = "simple"
	ComplexityModerate ComplexityTier = "moderate"
	ComplexityComplex  ComplexityTier = "complex"
)

// ImageStyle is the dominant visual style detected in an image prompt.
type ImageStyle string

const (
	StylePhotorealistic ImageStyle = "photorealistic"
	StyleArtistic       ImageStyle = "artistic"
	StyleAbstract       ImageStyle = "abstract"
	StyleIllustration   ImageStyle = "illustration"
	StyleSketch         ImageStyle = "sketch"
	StyleAnime          ImageStyle = "anime"
	StyleLogo           ImageStyle = "logo"
	StyleTechnical      ImageStyle = "technical"
)

// StylePreference is the tenant-level routing bias applied on top of the
// analyzer's recommendation.
type StylePreference string

const (
	PreferSpeed    StylePreference = "speed"
	PreferQuality  StylePreference = "quality"
	PreferCreative StylePreference = "creative"
	PreferBalanced StylePreference = "balanced"
)

// ModelAuto is the modelOverride value meaning "let the engine choose".
const ModelAuto = "auto"

// UserPreference is owned by the tenant's settings and read-only here.
type UserPreference struct {
	ModelOverride   string          `json:"model_override"`
	StylePreference StylePreference `json:"style_preference"`
}

// GenerationRequest is the single inbound payload for both request types.
// Immutable once constructed by the caller.
type GenerationRequest struct {
	TenantID       string         `json:"tenant_id"`
	RequestType    RequestType    `json:"request_type"`
	Prompt         string         `json:"prompt"`
	NegativePrompt string         `json:"negative_prompt,omitempty"`
	SizeHint       string         `json:"size_hint,omitempty"`
	QualityHint    string         `json:"quality_hint,omitempty"`
	Preference     UserPreference `json:"preference"`
}

// PromptAnalysis is recomputed on every request and embedded in the routing
// decision for audit. RecommendedModel and Reasoning are filled in by the
// routing policy's decision table; the analyzer computes the flags it keys on.
type PromptAnalysis struct {
	ComplexityTier   ComplexityTier `json:"complexity_tier"`
	Style            ImageStyle     `json:"style,omitempty"`
	WordCount        int            `json:"word_count"`
	NeedsSpeed       bool           `json:"needs_speed"`
	RequiresDetail   bool           `json:"requires_detail"`
	RecommendedModel string         `json:"recommended_model,omitempty"`
	Reasoning        string         `json:"reasoning,omitempty"`
}

// ModelAvailability reflects an external health signal; the core only reads it.
type ModelAvailability string

const (
	AvailabilityAvailable ModelAvailability = "available"
	AvailabilityDegraded  ModelAvailability = "degraded"
	AvailabilityDown      ModelAvailability = "down"
)

// RoutingDecision is produced once per request and attached to both the
// response and the usage record. Immutable after creation.
type RoutingDecision struct {
	SelectedModel         string         `json:"selected_model"`
	Analysis              PromptAnalysis `json:"analysis"`
	WasAutoRouted         bool           `json:"was_auto_routed"`
	OverrideReason        string         `json:"override_reason,omitempty"`
	EstimatedCostCents    int            `json:"estimated_cost_cents"`
	EstimatedSavingsCents int            `json:"estimated_savings_cents"`
	Reasoning             string         `json:"reasoning"`
}

// GeneratedImage is one image produced by an image backend. Backends return
// either a URL or a base64 payload, never both.
type GeneratedImage struct {
	URL    string `json:"url,omitempty"`
	Base64 string `json:"b64,omitempty"`
}

// GenerationResult is the normalized backend response, uniform across
// providers and request types.
type GenerationResult struct {
	Content      string           `json:"content,omitempty"`
	Images       []GeneratedImage `json:"images,omitempty"`
	ModelUsed    string           `json:"model_used"`
	CostCents    int              `json:"cost_cents"`
	LatencyMs    int64            `json:"latency_ms"`
	FallbackUsed bool             `json:"fallback_used"`
}

// UsageRecord is append-only; exactly one per completed request. Requests
// rejected before dispatch produce none.
type UsageRecord struct {
	TenantID     string      `json:"tenant_id"`
	RequestID    string      `json:"request_id"`
	Date         string      `json:"date"` // YYYY-MM-DD, UTC
	RequestType  RequestType `json:"request_type"`
	ModelID      string      `json:"model_id"`
	CostCents    int         `json:"cost_cents"`
	SavingsCents int         `json:"savings_cents"`
	Succeeded    bool        `json:"succeeded"`
	FallbackUsed bool        `json:"fallback_used"`
	AutoRouted   bool        `json:"auto_routed"`
	LatencyMs    int64       `json:"latency_ms"`
	Timestamp    time.Time   `json:"timestamp"`
}

// BudgetState is the current period's aggregate for one tenant, derived from
// usage records at read time. The period boundary is the UTC date rollover.
type BudgetState struct {
	TenantID     string `json:"tenant_id"`
	Date         string `json:"date"`
	SpentCents   int    `json:"spent_cents"`
	LimitCents   int    `json:"limit_cents"`
	RequestCount int    `json:"request_count"`
	RequestLimit int    `json:"request_limit"`
}

// RemainingCents reports how much of the daily budget is left. Unlimited
// plans (LimitCents <= 0) report -1.
func (s BudgetState) RemainingCents() int {
	if s.LimitCents <= 0 {
		return -1
	}
	if s.SpentCents >= s.LimitCents {
		return 0
	}
	return s.LimitCents - s.SpentCents
}

// TenantPlan is what the external plan source supplies per tenant.
// Zero or negative limits mean unlimited.
type TenantPlan struct {
	Tier         string `json:"tier"`
	LimitCents   int    `json:"limit_cents"`
	RequestLimit int    `json:"request_limit"`
}

// Day formats t as the engine's ledger date key.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Today is the current ledger period key.
func Today() string {
	return Day(time.Now())
}
