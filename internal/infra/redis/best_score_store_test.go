package redis

import (
	"context"
	"testing"

	"case-trainer-service/internal/domain"
	"case-trainer-service/internal/scoring"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestBestScoreStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewBestScoreStore(newClient(mr))
	ctx := context.Background()

	rec, err := store.LoadBestScore(ctx, "u1", "case-001")
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if rec.BestScore != nil || rec.Attempts != 0 {
		t.Fatalf("expected zero record, got %+v", rec)
	}

	best := 82
	if err := store.SaveBestScore(ctx, "u1", "case-001", domain.BestScoreRecord{BestScore: &best, Attempts: 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mr.HGet("vaka:scores:u1", "case-001"); got != `{"bestScore":82,"attempts":3}` {
		t.Fatalf("unexpected stored field %q", got)
	}

	rec, err = store.LoadBestScore(ctx, "u1", "case-001")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.BestScore == nil || *rec.BestScore != 82 || rec.Attempts != 3 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestBestScoreStoreWithTracker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	mr.HSet("vaka:scores:u1", "case-001", "garbage")
	store := NewBestScoreStore(newClient(mr))
	ctx := context.Background()

	if _, err := store.LoadBestScore(ctx, "u1", "case-001"); err == nil {
		t.Fatalf("expected error for corrupt field")
	}

	// A corrupt record is treated as empty and overwritten by the first committed attempt.
	tracker := scoring.NewTracker(ctx, "u1", "case-001", nil, store)
	if _, err := tracker.ApplyFinalEvaluation(ctx, domain.EvaluationResult{Total: 64}); err != nil {
		t.Fatalf("apply evaluation: %v", err)
	}

	rec, err := store.LoadBestScore(ctx, "u1", "case-001")
	if err != nil {
		t.Fatalf("load after commit: %v", err)
	}
	if rec.BestScore == nil || *rec.BestScore != 64 || rec.Attempts != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
}
