package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"

	_ "github.com/lib/pq"
)

// PostgresRepository reads tenants from the platform database.
//
// Schema:
//
//	CREATE TABLE tenants (
//	    id               TEXT PRIMARY KEY,
//	    name             TEXT NOT NULL,
//	    api_key_hash     TEXT NOT NULL UNIQUE,
//	    tier             TEXT NOT NULL DEFAULT 'free',
//	    rate_limit_rpm   INTEGER NOT NULL DEFAULT 60,
//	    model_override   TEXT NOT NULL DEFAULT 'auto',
//	    style_preference TEXT NOT NULL DEFAULT 'balanced',
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL
//	);
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tenantColumns = "id, name, api_key_hash, tier, rate_limit_rpm, model_override, style_preference, created_at, updated_at"

func (r *PostgresRepository) Plan(ctx context.Context, tenantID string) (domain.TenantPlan, error) {
	t, err := r.GetByID(ctx, tenantID)
	if err != nil {
		return domain.TenantPlan{}, err
	}
	return PlanForTier(t.Tier), nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE id = $1", id)
	return scanTenant(row)
}

func (r *PostgresRepository) GetByAPIKey(ctx context.Context, apiKey string) (*Tenant, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE api_key_hash = $1", HashAPIKey(apiKey))
	return scanTenant(row)
}

func (r *PostgresRepository) Create(ctx context.Context, t *Tenant) error {
	query := `
		INSERT INTO tenants (id, name, api_key_hash, tier, rate_limit_rpm, model_override, style_preference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.APIKeyHash, t.Tier, t.RateLimitRPM,
		t.Preference.ModelOverride, string(t.Preference.StylePreference),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, t *Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, api_key_hash = $3, tier = $4, rate_limit_rpm = $5, model_override = $6, style_preference = $7, updated_at = $8
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.APIKeyHash, t.Tier, t.RateLimitRPM,
		t.Preference.ModelOverride, string(t.Preference.StylePreference),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+tenantColumns+" FROM tenants ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var out []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(row scanner) (*Tenant, error) {
	var t Tenant
	var style string
	err := row.Scan(
		&t.ID, &t.Name, &t.APIKeyHash, &t.Tier, &t.RateLimitRPM,
		&t.Preference.ModelOverride, &style,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	t.Preference.StylePreference = domain.StylePreference(style)
	return &t, nil
}
