package scoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"case-trainer-service/internal/domain"
	"case-trainer-service/internal/scoring"
)

type mapStore struct {
	records map[string]domain.BestScoreRecord
	loadErr error
	// failAfter makes every load past the first N fail with loadErr.
	failAfter int
	loads     int
	saves     int
}

func newMapStore() *mapStore {
	return &mapStore{records: map[string]domain.BestScoreRecord{}}
}

func (s *mapStore) LoadBestScore(_ context.Context, userID, caseID string) (domain.BestScoreRecord, error) {
	s.loads++
	if s.loadErr != nil && s.loads > s.failAfter {
		return domain.BestScoreRecord{}, s.loadErr
	}
	return s.records[userID+"/"+caseID], nil
}

func (s *mapStore) SaveBestScore(_ context.Context, userID, caseID string, rec domain.BestScoreRecord) error {
	s.saves++
	s.records[userID+"/"+caseID] = rec
	return nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTrackerRunningScore(t *testing.T) {
	ctx := context.Background()
	tracker := scoring.NewTracker(ctx, "u1", "case-001", &domain.ScoringOverrides{Base: intPtr(120)}, nil)

	if got := tracker.ApplyPenalty(scoring.ActionLab, scoring.PenaltyOptions{}); got != -5 {
		t.Fatalf("lab penalty: expected -5, got %d", got)
	}
	if got := tracker.ApplyPenalty(scoring.ActionImaging, scoring.PenaltyOptions{Unnecessary: true}); got != -14 {
		t.Fatalf("unnecessary imaging penalty: expected -14, got %d", got)
	}
	if got := tracker.ApplyPenalty(scoring.ActionType("consult"), scoring.PenaltyOptions{}); got != 0 {
		t.Fatalf("unknown action penalty: expected 0, got %d", got)
	}

	b := tracker.Breakdown()
	if b.Base != 120 || b.PenaltyTotal != -19 || b.Total != 101 || b.Evaluation != nil {
		t.Fatalf("unexpected breakdown %+v", b)
	}
}

func TestTrackerElapsed(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	tracker := scoring.NewTrackerWithClock(context.Background(), "u1", "case-001", nil, nil, clock.Now)

	if got := tracker.Elapsed(); got != 0 {
		t.Fatalf("expected zero elapsed before start, got %v", got)
	}

	tracker.StartCaseTimer()
	clock.Advance(90 * time.Second)
	if got := tracker.Elapsed(); got != 90*time.Second {
		t.Fatalf("expected 90s elapsed, got %v", got)
	}

	tracker.StartCaseTimer()
	clock.Advance(time.Second)
	if got := tracker.Elapsed(); got != time.Second {
		t.Fatalf("expected restart to reset the timer, got %v", got)
	}
}

func TestTrackerFinalEvaluationReplacesPreview(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	tracker := scoring.NewTracker(ctx, "u1", "case-001", nil, store)
	tracker.ApplyPenalty(scoring.ActionLab, scoring.PenaltyOptions{})
	if store.saves != 0 {
		t.Fatalf("live penalties must not touch best-score storage, saves=%d", store.saves)
	}

	eval := scoring.Evaluate(tracker.Config(), scoring.Input{
		DiagnosisInput:    "STEMI",
		ExpectedDiagnosis: "STEMI",
		Elapsed:           10 * time.Minute,
	})
	committed, err := tracker.ApplyFinalEvaluation(ctx, eval)
	if err != nil {
		t.Fatalf("final evaluation: %v", err)
	}
	if committed.Total != eval.Total {
		t.Fatalf("expected committed total %d, got %d", eval.Total, committed.Total)
	}

	b := tracker.Breakdown()
	if b.Total != eval.Total || b.DiagnosisScore != 50 {
		t.Fatalf("unexpected breakdown %+v", b)
	}
	if b.Evaluation == nil || b.Evaluation.Total != eval.Total {
		t.Fatalf("expected breakdown to carry the evaluation, got %+v", b.Evaluation)
	}
	if !tracker.Finalized() {
		t.Fatalf("expected tracker to be finalized")
	}

	best, attempts := tracker.BestScore()
	if best == nil || *best != eval.Total || attempts != 1 {
		t.Fatalf("expected best=%d attempts=1, got best=%v attempts=%d", eval.Total, best, attempts)
	}
	if store.saves != 1 {
		t.Fatalf("expected one save, got %d", store.saves)
	}
}

func TestTrackerFinalEvaluationCommitsOnce(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	tracker := scoring.NewTracker(ctx, "u1", "case-001", nil, store)

	if _, err := tracker.ApplyFinalEvaluation(ctx, domain.EvaluationResult{Total: 60}); err != nil {
		t.Fatalf("first evaluation: %v", err)
	}
	if _, err := tracker.ApplyFinalEvaluation(ctx, domain.EvaluationResult{Total: 90}); !errors.Is(err, domain.ErrAttemptFinished) {
		t.Fatalf("expected attempt finished error, got %v", err)
	}
	rec := store.records["u1/case-001"]
	if store.saves != 1 || rec.Attempts != 1 || rec.BestScore == nil || *rec.BestScore != 60 {
		t.Fatalf("second evaluation must not be recorded, saves=%d record=%+v", store.saves, rec)
	}

	tracker.Reset()
	if _, err := tracker.ApplyFinalEvaluation(ctx, domain.EvaluationResult{Total: 90}); err != nil {
		t.Fatalf("evaluation after reset: %v", err)
	}
	rec = store.records["u1/case-001"]
	if rec.Attempts != 2 || rec.BestScore == nil || *rec.BestScore != 90 {
		t.Fatalf("expected best=90 attempts=2 after reset, got %+v", rec)
	}
}

func TestTrackerBestScoreIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	totals := []int{70, 95, 40, 95, 60}

	lastBest := -1
	for i, total := range totals {
		tracker := scoring.NewTracker(ctx, "u1", "case-001", nil, store)
		if _, err := tracker.ApplyFinalEvaluation(ctx, domain.EvaluationResult{Total: total}); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}

		rec := store.records["u1/case-001"]
		if rec.BestScore == nil {
			t.Fatalf("attempt %d: expected a best score", i+1)
		}
		if *rec.BestScore < lastBest {
			t.Fatalf("attempt %d: best score dropped from %d to %d", i+1, lastBest, *rec.BestScore)
		}
		if rec.Attempts != i+1 {
			t.Fatalf("attempt %d: expected attempts=%d, got %d", i+1, i+1, rec.Attempts)
		}
		lastBest = *rec.BestScore
	}
	if lastBest != 95 {
		t.Fatalf("expected best 95, got %d", lastBest)
	}

	other := scoring.NewTracker(ctx, "u1", "case-002", nil, store)
	if best, attempts := other.BestScore(); best != nil || attempts != 0 {
		t.Fatalf("expected no record for another case, got best=%v attempts=%d", best, attempts)
	}
}

func TestTrackerFailedReReadKeepsLoadedBestScore(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	store.records["u1/case-001"] = domain.BestScoreRecord{BestScore: intPtr(95), Attempts: 7}
	store.loadErr = errors.New("dial tcp 10.0.0.5:6379: i/o timeout")
	store.failAfter = 1

	tracker := scoring.NewTracker(ctx, "u1", "case-001", nil, store)
	if best, attempts := tracker.BestScore(); best == nil || *best != 95 || attempts != 7 {
		t.Fatalf("expected loaded best=95 attempts=7, got best=%v attempts=%d", best, attempts)
	}

	if _, err := tracker.ApplyFinalEvaluation(ctx, domain.EvaluationResult{Total: 40}); err != nil {
		t.Fatalf("final evaluation: %v", err)
	}

	rec := store.records["u1/case-001"]
	if rec.BestScore == nil || *rec.BestScore != 95 || rec.Attempts != 8 {
		t.Fatalf("expected stored best=95 attempts=8, got %+v", rec)
	}
	if best, attempts := tracker.BestScore(); best == nil || *best != 95 || attempts != 8 {
		t.Fatalf("expected in-memory best=95 attempts=8, got best=%v attempts=%d", best, attempts)
	}
}

func TestTrackerUnreadableStoreMeansNoRecord(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	store.loadErr = errors.New("invalid character 'x' looking for beginning of value")

	tracker := scoring.NewTracker(ctx, "u1", "case-001", nil, store)
	if best, attempts := tracker.BestScore(); best != nil || attempts != 0 {
		t.Fatalf("expected no record, got best=%v attempts=%d", best, attempts)
	}

	if _, err := tracker.ApplyFinalEvaluation(ctx, domain.EvaluationResult{Total: 55}); err != nil {
		t.Fatalf("final evaluation: %v", err)
	}
	rec := store.records["u1/case-001"]
	if rec.BestScore == nil || *rec.BestScore != 55 || rec.Attempts != 1 {
		t.Fatalf("expected best=55 attempts=1, got %+v", rec)
	}
}

func TestTrackerResetKeepsBestScore(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	store := newMapStore()
	tracker := scoring.NewTrackerWithClock(ctx, "u1", "case-001", nil, store, clock.Now)
	tracker.StartCaseTimer()
	tracker.ApplyPenalty(scoring.ActionProcedure, scoring.PenaltyOptions{})
	if _, err := tracker.ApplyFinalEvaluation(ctx, domain.EvaluationResult{Total: 80, SpeedBonus: 3}); err != nil {
		t.Fatalf("final evaluation: %v", err)
	}

	clock.Advance(time.Minute)
	tracker.Reset()

	if b := tracker.Breakdown(); b != (domain.ScoreBreakdown{Base: 100, Total: 100}) {
		t.Fatalf("expected fresh breakdown after reset, got %+v", b)
	}
	if tracker.Finalized() {
		t.Fatalf("expected reset to clear the final evaluation")
	}
	if got := tracker.Elapsed(); got != 0 {
		t.Fatalf("expected reset to restart the timer, got %v", got)
	}

	best, attempts := tracker.BestScore()
	if best == nil || *best != 80 || attempts != 1 {
		t.Fatalf("expected best=80 attempts=1 to survive reset, got best=%v attempts=%d", best, attempts)
	}
}
