// Package tenant supplies the engine's view of the billing scope a request
// is charged against: plan limits per subscription tier and the stored
// routing preference. The full tenant model (billing portal, checkout,
// auth) lives outside this core.
package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/pagecraft/ai-router/internal/crypto"
	"github.com/pagecraft/ai-router/internal/domain"
)

// Tenant is the slice of the platform's workspace record this engine needs.
type Tenant struct {
	ID           string
	Name         string
	APIKeyHash   string
	Tier         string
	RateLimitRPM int
	Preference   domain.UserPreference
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository is the loadTenantPlan collaborator contract plus the lookups
// the host API needs.
type Repository interface {
	Plan(ctx context.Context, tenantID string) (domain.TenantPlan, error)
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*Tenant, error)
	Create(ctx context.Context, t *Tenant) error
	Update(ctx context.Context, t *Tenant) error
	List(ctx context.Context) ([]*Tenant, error)
}

// planTable maps subscription tiers to daily limits. Non-positive limits
// mean unlimited.
var planTable = map[string]domain.TenantPlan{
	domain.TierFree:    {Tier: domain.TierFree, LimitCents: 100, RequestLimit: 25},
	domain.TierStarter: {Tier: domain.TierStarter, LimitCents: 500, RequestLimit: 100},
	domain.TierPro:     {Tier: domain.TierPro, LimitCents: 2000, RequestLimit: 500},
	domain.TierScale:   {Tier: domain.TierScale, LimitCents: 0, RequestLimit: 0},
}

// PlanForTier resolves a tier name; unknown tiers get the free plan.
func PlanForTier(tier string) domain.TenantPlan {
	if p, ok := planTable[tier]; ok {
		return p
	}
	return planTable[domain.TierFree]
}

// InMemoryRepository backs tests and single-instance deployments.
type InMemoryRepository struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
	byKey   map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	repo := &InMemoryRepository{
		tenants: make(map[string]*Tenant),
		byKey:   make(map[string]string),
	}

	defaultTenant := &Tenant{
		ID:           "default",
		Name:         "default",
		APIKeyHash:   HashAPIKey("pc-default-key"),
		Tier:         domain.TierPro,
		RateLimitRPM: 100,
		Preference: domain.UserPreference{
			ModelOverride:   domain.ModelAuto,
			StylePreference: domain.PreferBalanced,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	repo.tenants[defaultTenant.ID] = defaultTenant
	repo.byKey[defaultTenant.APIKeyHash] = defaultTenant.ID

	return repo
}

func (r *InMemoryRepository) Plan(ctx context.Context, tenantID string) (domain.TenantPlan, error) {
	t, err := r.GetByID(ctx, tenantID)
	if err != nil {
		return domain.TenantPlan{}, err
	}
	return PlanForTier(t.Tier), nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t, nil
}

func (r *InMemoryRepository) GetByAPIKey(ctx context.Context, apiKey string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[HashAPIKey(apiKey)]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	t, ok := r.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, t *Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tenants[t.ID] = t
	r.byKey[t.APIKeyHash] = t.ID
	return nil
}

func (r *InMemoryRepository) Update(ctx context.Context, t *Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tenants[t.ID]; !ok {
		return domain.ErrTenantNotFound
	}
	t.UpdatedAt = time.Now()
	r.tenants[t.ID] = t
	r.byKey[t.APIKeyHash] = t.ID
	return nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	return out, nil
}

// HashAPIKey is the stored form of tenant API keys.
func HashAPIKey(apiKey string) string {
	return crypto.HashAPIKey(apiKey)
}
