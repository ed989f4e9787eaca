package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"case-trainer-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// BestScoreStore keeps best scores in one hash per user:
// HSET vaka:scores:{userID} {caseID} {"bestScore": n, "attempts": n}
type BestScoreStore struct {
	client *redis.Client
}

func NewBestScoreStore(client *redis.Client) *BestScoreStore {
	return &BestScoreStore{client: client}
}

func (s *BestScoreStore) LoadBestScore(ctx context.Context, userID, caseID string) (domain.BestScoreRecord, error) {
	raw, err := s.client.HGet(ctx, s.key(userID), caseID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BestScoreRecord{}, nil
	}
	if err != nil {
		return domain.BestScoreRecord{}, fmt.Errorf("load best score: %w", err)
	}
	var rec domain.BestScoreRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.BestScoreRecord{}, fmt.Errorf("unmarshal best score: %w", err)
	}
	return rec, nil
}

func (s *BestScoreStore) SaveBestScore(ctx context.Context, userID, caseID string, rec domain.BestScoreRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal best score: %w", err)
	}
	if err := s.client.HSet(ctx, s.key(userID), caseID, raw).Err(); err != nil {
		return fmt.Errorf("save best score: %w", err)
	}
	return nil
}

func (s *BestScoreStore) key(userID string) string {
	return "vaka:scores:" + userID
}
