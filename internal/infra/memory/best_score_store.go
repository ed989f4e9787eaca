package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"case-trainer-service/internal/domain"
)

// BestScoreStore keeps one JSON document per user in the same shape the browser trainer kept
// under its scores key: {"<caseId>": {"bestScore": n, "attempts": n}}.
type BestScoreStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewBestScoreStore() *BestScoreStore {
	return &BestScoreStore{docs: make(map[string][]byte)}
}

// Put replaces a user's raw document (used to import or seed data).
func (s *BestScoreStore) Put(userID string, doc []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[userID] = append([]byte(nil), doc...)
}

// Document returns a user's raw document.
func (s *BestScoreStore) Document(userID string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.docs[userID]...)
}

func (s *BestScoreStore) LoadBestScore(_ context.Context, userID, caseID string) (domain.BestScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := decodeScores(s.docs[userID])
	if err != nil {
		return domain.BestScoreRecord{}, err
	}
	return doc[caseID], nil
}

func (s *BestScoreStore) SaveBestScore(_ context.Context, userID, caseID string, rec domain.BestScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := decodeScores(s.docs[userID])
	if err != nil {
		// An unreadable document is replaced rather than blocking every later attempt.
		doc = map[string]domain.BestScoreRecord{}
	}
	doc[caseID] = rec
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal best scores: %w", err)
	}
	s.docs[userID] = raw
	return nil
}

func decodeScores(raw []byte) (map[string]domain.BestScoreRecord, error) {
	doc := map[string]domain.BestScoreRecord{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal best scores: %w", err)
	}
	return doc, nil
}
