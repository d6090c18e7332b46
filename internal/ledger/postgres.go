package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pagecraft/ai-router/internal/domain"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store on the platform's Postgres database.
//
// Schema:
//
//	CREATE TABLE usage_records (
//	    id            BIGSERIAL PRIMARY KEY,
//	    tenant_id     TEXT        NOT NULL,
//	    request_id    TEXT        NOT NULL,
//	    day           DATE        NOT NULL,
//	    request_type  TEXT        NOT NULL,
//	    model_id      TEXT        NOT NULL,
//	    cost_cents    INTEGER     NOT NULL,
//	    savings_cents INTEGER     NOT NULL DEFAULT 0,
//	    succeeded     BOOLEAN     NOT NULL,
//	    fallback_used BOOLEAN     NOT NULL DEFAULT FALSE,
//	    auto_routed   BOOLEAN     NOT NULL DEFAULT TRUE,
//	    latency_ms    BIGINT      NOT NULL DEFAULT 0,
//	    created_at    TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX usage_records_tenant_day ON usage_records (tenant_id, day);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record domain.UsageRecord) error {
	query := `
		INSERT INTO usage_records (tenant_id, request_id, day, request_type, model_id, cost_cents, savings_cents, succeeded, fallback_used, auto_routed, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.TenantID,
		record.RequestID,
		record.Date,
		record.RequestType,
		record.ModelID,
		record.CostCents,
		record.SavingsCents,
		record.Succeeded,
		record.FallbackUsed,
		record.AutoRouted,
		record.LatencyMs,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}

	return nil
}

func (s *PostgresStore) ReadRange(ctx context.Context, tenantID string, from, to time.Time) ([]domain.UsageRecord, error) {
	query := `
		SELECT tenant_id, request_id, to_char(day, 'YYYY-MM-DD'), request_type, model_id, cost_cents, savings_cents, succeeded, fallback_used, auto_routed, latency_ms, created_at
		FROM usage_records
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query usage records: %w", err)
	}
	defer rows.Close()

	var records []domain.UsageRecord
	for rows.Next() {
		var r domain.UsageRecord
		err := rows.Scan(
			&r.TenantID,
			&r.RequestID,
			&r.Date,
			&r.RequestType,
			&r.ModelID,
			&r.CostCents,
			&r.SavingsCents,
			&r.Succeeded,
			&r.FallbackUsed,
			&r.AutoRouted,
			&r.LatencyMs,
			&r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
