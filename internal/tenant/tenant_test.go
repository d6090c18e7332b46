package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"
)

func TestPlanForTier(t *testing.T) {
	tests := []struct {
		tier         string
		wantLimit    int
		wantRequests int
	}{
		{domain.TierFree, 100, 25},
		{domain.TierStarter, 500, 100},
		{domain.TierPro, 2000, 500},
		{domain.TierScale, 0, 0},
		{"nonsense", 100, 25}, // unknown tiers get the free plan
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			p := PlanForTier(tt.tier)
			if p.LimitCents != tt.wantLimit {
				t.Errorf("LimitCents = %d, want %d", p.LimitCents, tt.wantLimit)
			}
			if p.RequestLimit != tt.wantRequests {
				t.Errorf("RequestLimit = %d, want %d", p.RequestLimit, tt.wantRequests)
			}
		})
	}
}

func TestInMemoryRepository_APIKeyLookup(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	got, err := repo.GetByAPIKey(ctx, "pc-default-key")
	if err != nil {
		t.Fatalf("GetByAPIKey() error = %v", err)
	}
	if got.ID != "default" {
		t.Errorf("ID = %q, want default", got.ID)
	}

	if _, err := repo.GetByAPIKey(ctx, "wrong-key"); !errors.Is(err, domain.ErrTenantNotFound) {
		t.Errorf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestInMemoryRepository_Plan(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	repo.Create(ctx, &Tenant{
		ID:         "acme",
		Name:       "Acme",
		APIKeyHash: HashAPIKey("acme-key"),
		Tier:       domain.TierStarter,
		CreatedAt:  time.Now(),
	})

	plan, err := repo.Plan(ctx, "acme")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Tier != domain.TierStarter || plan.LimitCents != 500 {
		t.Errorf("plan = %+v", plan)
	}

	if _, err := repo.Plan(ctx, "missing"); !errors.Is(err, domain.ErrTenantNotFound) {
		t.Errorf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestNextTier(t *testing.T) {
	if next := domain.NextTier(domain.TierFree); next != domain.TierStarter {
		t.Errorf("NextTier(free) = %q", next)
	}
	if next := domain.NextTier(domain.TierScale); next != "" {
		t.Errorf("NextTier(scale) = %q, want empty", next)
	}
}
