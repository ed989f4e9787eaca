package postgres

import (
	"context"
	"errors"
	"fmt"

	"case-trainer-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BestScoreStore keeps one row per (user, case) in best_scores.
type BestScoreStore struct {
	pool *pgxpool.Pool
}

func NewBestScoreStore(pool *pgxpool.Pool) *BestScoreStore {
	return &BestScoreStore{pool: pool}
}

func (s *BestScoreStore) LoadBestScore(ctx context.Context, userID, caseID string) (domain.BestScoreRecord, error) {
	var rec domain.BestScoreRecord
	err := s.pool.QueryRow(ctx,
		`SELECT best_score, attempts FROM best_scores WHERE user_id=$1 AND case_id=$2`,
		userID, caseID,
	).Scan(&rec.BestScore, &rec.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BestScoreRecord{}, nil
	}
	if err != nil {
		return domain.BestScoreRecord{}, fmt.Errorf("load best score: %w", err)
	}
	return rec, nil
}

func (s *BestScoreStore) SaveBestScore(ctx context.Context, userID, caseID string, rec domain.BestScoreRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO best_scores (user_id, case_id, best_score, attempts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, case_id)
		DO UPDATE SET best_score = EXCLUDED.best_score, attempts = EXCLUDED.attempts, updated_at = now()`,
		userID, caseID, rec.BestScore, rec.Attempts,
	)
	if err != nil {
		return fmt.Errorf("save best score: %w", err)
	}
	return nil
}
