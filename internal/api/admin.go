package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pagecraft/ai-router/internal/auth"
	"github.com/pagecraft/ai-router/internal/domain"
	"github.com/pagecraft/ai-router/internal/registry"
	"github.com/pagecraft/ai-router/internal/tenant"
)

// AdminHandler manages tenants and model availability. It sits behind
// basic auth and is meant for an internal network, not the public edge.
type AdminHandler struct {
	tenants  tenant.Repository
	registry *registry.Registry
	mux      *http.ServeMux
}

func NewAdminHandler(tenants tenant.Repository, reg *registry.Registry, admin auth.Admin) http.Handler {
	h := &AdminHandler{
		tenants:  tenants,
		registry: reg,
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /admin/tenants", h.listTenants)
	h.mux.HandleFunc("POST /admin/tenants", h.createTenant)
	h.mux.HandleFunc("GET /admin/tenants/{id}", h.getTenant)
	h.mux.HandleFunc("PUT /admin/tenants/{id}", h.updateTenant)
	h.mux.HandleFunc("POST /admin/tenants/{id}/rotate-key", h.rotateKey)
	h.mux.HandleFunc("GET /admin/models", h.listModels)
	h.mux.HandleFunc("PUT /admin/models/{id}/availability", h.setAvailability)

	return admin.Middleware(h.mux)
}

type tenantResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Tier         string                `json:"tier"`
	RateLimitRPM int                   `json:"rate_limit_rpm"`
	Preference   domain.UserPreference `json:"preference"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func toTenantResponse(t *tenant.Tenant) tenantResponse {
	return tenantResponse{
		ID:           t.ID,
		Name:         t.Name,
		Tier:         t.Tier,
		RateLimitRPM: t.RateLimitRPM,
		Preference:   t.Preference,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (h *AdminHandler) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		slog.Error("list tenants failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	out := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, toTenantResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": out})
}

type createTenantRequest struct {
	Name         string `json:"name"`
	Tier         string `json:"tier"`
	RateLimitRPM int    `json:"rate_limit_rpm"`
}

func (h *AdminHandler) createTenant(w http.ResponseWriter, r *http.Request) {
	var body createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if body.Tier == "" {
		body.Tier = domain.TierFree
	}
	if !validTier(body.Tier) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown tier")
		return
	}

	apiKey := generateAPIKey()
	now := time.Now()
	t := &tenant.Tenant{
		ID:           uuid.NewString(),
		Name:         body.Name,
		APIKeyHash:   tenant.HashAPIKey(apiKey),
		Tier:         body.Tier,
		RateLimitRPM: body.RateLimitRPM,
		Preference: domain.UserPreference{
			ModelOverride:   domain.ModelAuto,
			StylePreference: domain.PreferBalanced,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.tenants.Create(r.Context(), t); err != nil {
		slog.Error("create tenant failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	slog.Info("tenant created", "tenant_id", t.ID, "tier", t.Tier)

	// The plaintext key is shown exactly once; only the hash is stored.
	writeJSON(w, http.StatusCreated, map[string]any{
		"tenant":  toTenantResponse(t),
		"api_key": apiKey,
	})
}

func (h *AdminHandler) getTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeTenantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

type updateTenantRequest struct {
	Name            *string `json:"name,omitempty"`
	Tier            *string `json:"tier,omitempty"`
	RateLimitRPM    *int    `json:"rate_limit_rpm,omitempty"`
	ModelOverride   *string `json:"model_override,omitempty"`
	StylePreference *string `json:"style_preference,omitempty"`
}

func (h *AdminHandler) updateTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeTenantError(w, err)
		return
	}

	var body updateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if body.Name != nil {
		t.Name = *body.Name
	}
	if body.Tier != nil {
		if !validTier(*body.Tier) {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown tier")
			return
		}
		t.Tier = *body.Tier
	}
	if body.RateLimitRPM != nil {
		t.RateLimitRPM = *body.RateLimitRPM
	}
	if body.ModelOverride != nil {
		t.Preference.ModelOverride = *body.ModelOverride
	}
	if body.StylePreference != nil {
		t.Preference.StylePreference = domain.StylePreference(*body.StylePreference)
	}

	if err := h.tenants.Update(r.Context(), t); err != nil {
		slog.Error("update tenant failed", "tenant_id", t.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	slog.Info("tenant updated", "tenant_id", t.ID)
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

func (h *AdminHandler) rotateKey(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeTenantError(w, err)
		return
	}

	apiKey := generateAPIKey()
	t.APIKeyHash = tenant.HashAPIKey(apiKey)

	if err := h.tenants.Update(r.Context(), t); err != nil {
		slog.Error("rotate key failed", "tenant_id", t.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	slog.Info("api key rotated", "tenant_id", t.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id": t.ID,
		"api_key":   apiKey,
	})
}

func (h *AdminHandler) listModels(w http.ResponseWriter, r *http.Request) {
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

type setAvailabilityRequest struct {
	Availability string `json:"availability"`
}

// setAvailability is the manual override for operators to pull a model out
// of rotation or force it back in ahead of the health tracker.
func (h *AdminHandler) setAvailability(w http.ResponseWriter, r *http.Request) {
	var body setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	availability := domain.ModelAvailability(body.Availability)
	switch availability {
	case domain.AvailabilityAvailable, domain.AvailabilityDegraded, domain.AvailabilityDown:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "availability must be available, degraded or down")
		return
	}

	id := r.PathValue("id")
	if !h.modelExists(id) {
		writeError(w, http.StatusNotFound, "model_not_found", "unknown model")
		return
	}

	h.registry.SetAvailability(id, availability)
	slog.Info("model availability set", "model", id, "availability", availability)
	writeJSON(w, http.StatusOK, map[string]string{
		"model":        id,
		"availability": string(availability),
	})
}

func (h *AdminHandler) modelExists(id string) bool {
	for _, rt := range []domain.RequestType{domain.RequestTypeText, domain.RequestTypeImage} {
		if _, err := h.registry.Lookup(rt, id); err == nil {
			return true
		}
	}
	return false
}

func (h *AdminHandler) writeTenantError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrTenantNotFound) {
		writeError(w, http.StatusNotFound, "tenant_not_found", "tenant not found")
		return
	}
	slog.Error("tenant lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func validTier(tier string) bool {
	switch tier {
	case domain.TierFree, domain.TierStarter, domain.TierPro, domain.TierScale:
		return true
	}
	return false
}

func generateAPIKey() string {
	return "pc-" + uuid.NewString()
}
