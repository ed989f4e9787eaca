package memory

import (
	"context"
	"encoding/json"
	"testing"

	"case-trainer-service/internal/domain"
)

func TestBestScoreStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewBestScoreStore()

	rec, err := store.LoadBestScore(ctx, "u1", "case-001")
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if rec.BestScore != nil || rec.Attempts != 0 {
		t.Fatalf("expected empty record, got %+v", rec)
	}

	best := 82
	if err := store.SaveBestScore(ctx, "u1", "case-001", domain.BestScoreRecord{BestScore: &best, Attempts: 2}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var doc map[string]map[string]int
	if err := json.Unmarshal(store.Document("u1"), &doc); err != nil {
		t.Fatalf("document is not JSON: %v", err)
	}
	if doc["case-001"]["bestScore"] != 82 || doc["case-001"]["attempts"] != 2 {
		t.Fatalf("unexpected document %v", doc)
	}
}

func TestBestScoreStoreCorruptDocument(t *testing.T) {
	ctx := context.Background()
	store := NewBestScoreStore()
	store.Put("u1", []byte("{not json"))

	if _, err := store.LoadBestScore(ctx, "u1", "case-001"); err == nil {
		t.Fatalf("expected error for corrupt document")
	}

	if err := store.SaveBestScore(ctx, "u1", "case-001", domain.BestScoreRecord{Attempts: 1}); err != nil {
		t.Fatalf("save over corrupt document: %v", err)
	}
	rec, err := store.LoadBestScore(ctx, "u1", "case-001")
	if err != nil || rec.Attempts != 1 {
		t.Fatalf("expected repaired record, got %+v err=%v", rec, err)
	}
}
