package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"case-trainer-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CaseLoader loads case JSONB from Postgres.
type CaseLoader struct {
	pool *pgxpool.Pool
}

func NewCaseLoader(pool *pgxpool.Pool) *CaseLoader {
	return &CaseLoader{pool: pool}
}

func (l *CaseLoader) LoadCase(ctx context.Context, caseID string) (domain.Case, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM cases WHERE id=$1`, caseID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Case{}, domain.ErrCaseNotFound
	}
	if err != nil {
		return domain.Case{}, fmt.Errorf("load case: %w", err)
	}
	var c domain.Case
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Case{}, fmt.Errorf("unmarshal case: %w", err)
	}
	if c.ID == "" {
		c.ID = caseID
	}
	return c, nil
}

// UpsertCases stores a case bundle, replacing cases with the same id.
func (l *CaseLoader) UpsertCases(ctx context.Context, cases []domain.Case) error {
	batch := &pgx.Batch{}
	for _, c := range cases {
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal case %s: %w", c.ID, err)
		}
		batch.Queue(`INSERT INTO cases (id, data) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, c.ID, raw)
	}
	results := l.pool.SendBatch(ctx, batch)
	defer results.Close()
	for _, c := range cases {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert case %s: %w", c.ID, err)
		}
	}
	return nil
}
