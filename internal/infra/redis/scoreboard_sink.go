package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"case-trainer-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ScoreboardSink mirrors score updates into Redis so other instances and dashboards can read
// a session's standings:
//
//	ZADD session:{sessionID}:scoreboard {total} {userID}
//	HSET session:{sessionID}:breakdown  {userID} {update JSON}
type ScoreboardSink struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScoreboardSink(client *redis.Client, ttl time.Duration) *ScoreboardSink {
	return &ScoreboardSink{client: client, ttl: ttl}
}

func (s *ScoreboardSink) PublishScore(ctx context.Context, update domain.ScoreUpdate) error {
	raw, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal score update: %w", err)
	}
	boardKey := s.boardKey(update.SessionID)
	breakdownKey := s.breakdownKey(update.SessionID)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, boardKey, redis.Z{Score: float64(update.Breakdown.Total), Member: update.UserID})
	pipe.HSet(ctx, breakdownKey, update.UserID, raw)
	if s.ttl > 0 {
		pipe.Expire(ctx, boardKey, s.ttl)
		pipe.Expire(ctx, breakdownKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish score: %w", err)
	}
	return nil
}

// TopScores returns up to limit latest updates of a session, highest total first.
// limit <= 0 returns every participant.
func (s *ScoreboardSink) TopScores(ctx context.Context, sessionID string, limit int) ([]domain.ScoreUpdate, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	userIDs, err := s.client.ZRevRange(ctx, s.boardKey(sessionID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read scoreboard: %w", err)
	}
	if len(userIDs) == 0 {
		return []domain.ScoreUpdate{}, nil
	}

	values, err := s.client.HMGet(ctx, s.breakdownKey(sessionID), userIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("read breakdowns: %w", err)
	}
	updates := make([]domain.ScoreUpdate, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Board entry without breakdown; keep the rank with what the ZSET knows.
			updates = append(updates, domain.ScoreUpdate{SessionID: sessionID, UserID: userIDs[i]})
			continue
		}
		var u domain.ScoreUpdate
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown %s: %w", userIDs[i], err)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func (s *ScoreboardSink) boardKey(sessionID string) string {
	return "session:" + sessionID + ":scoreboard"
}

func (s *ScoreboardSink) breakdownKey(sessionID string) string {
	return "session:" + sessionID + ":breakdown"
}
