package scoring

import (
	"context"
	"log"
	"sync"
	"time"

	"case-trainer-service/internal/domain"
)

// BestScoreStore persists best-score records per (user, case). A missing record is returned as
// the zero record with a nil error.
type BestScoreStore interface {
	LoadBestScore(ctx context.Context, userID, caseID string) (domain.BestScoreRecord, error)
	SaveBestScore(ctx context.Context, userID, caseID string, rec domain.BestScoreRecord) error
}

// Tracker keeps the running score of one (user, case) attempt.
//
// The running total is a cheap preview: base plus live penalties plus diagnosis and speed points.
// It ignores categories, weights and caps, so it can differ from the evaluated total that replaces
// it in ApplyFinalEvaluation.
type Tracker struct {
	userID string
	caseID string
	cfg    Config
	store  BestScoreStore
	now    func() time.Time

	mu             sync.RWMutex
	penaltyTotal   int
	speedBonus     int
	diagnosisScore int
	currentScore   int
	evaluation     *domain.EvaluationResult
	caseStartedAt  time.Time
	bestScore      *int
	attempts       int
}

// NewTracker resolves the case scoring block and loads the stored best score. store may be nil.
func NewTracker(ctx context.Context, userID, caseID string, overrides *domain.ScoringOverrides, store BestScoreStore) *Tracker {
	return NewTrackerWithClock(ctx, userID, caseID, overrides, store, time.Now)
}

// NewTrackerWithClock allows deterministic elapsed times in tests.
func NewTrackerWithClock(ctx context.Context, userID, caseID string, overrides *domain.ScoringOverrides, store BestScoreStore, now func() time.Time) *Tracker {
	cfg := Resolve(overrides)
	t := &Tracker{
		userID:       userID,
		caseID:       caseID,
		cfg:          cfg,
		store:        store,
		now:          now,
		currentScore: BaseScore(cfg),
	}
	rec := t.loadRecord(ctx)
	t.bestScore = rec.BestScore
	t.attempts = rec.Attempts
	return t
}

// Config returns the resolved scoring configuration of the attempt.
func (t *Tracker) Config() Config {
	return t.cfg
}

// CaseID returns the case being scored.
func (t *Tracker) CaseID() string {
	return t.caseID
}

// StartCaseTimer stamps the start of the attempt. Calling it again restarts timing.
func (t *Tracker) StartCaseTimer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.caseStartedAt = t.now()
}

// Elapsed returns the time since StartCaseTimer, or 0 if the timer never started.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.elapsedLocked()
}

func (t *Tracker) elapsedLocked() time.Duration {
	if t.caseStartedAt.IsZero() {
		return 0
	}
	return t.now().Sub(t.caseStartedAt)
}

// ApplyPenalty charges an action against the running total and returns the delta.
func (t *Tracker) ApplyPenalty(actionType ActionType, opts PenaltyOptions) int {
	delta := ActionPenalty(actionType, t.cfg, opts)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.penaltyTotal += delta
	t.recomputeLocked()
	return delta
}

func (t *Tracker) recomputeLocked() {
	t.currentScore = BaseScore(t.cfg) + t.penaltyTotal + t.diagnosisScore + t.speedBonus
}

// ApplyFinalEvaluation makes the evaluation the attempt result and commits the best score.
// It is the only place the best-score record is written, and it commits at most once per attempt:
// later calls return domain.ErrAttemptFinished until Reset. Storage failures are logged, not returned.
func (t *Tracker) ApplyFinalEvaluation(ctx context.Context, evaluation domain.EvaluationResult) (domain.EvaluationResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.evaluation != nil {
		return domain.EvaluationResult{}, domain.ErrAttemptFinished
	}
	t.evaluation = &evaluation
	t.speedBonus = evaluation.SpeedBonus
	t.diagnosisScore = DiagnosisDelta(evaluation.Diagnosis.IsCorrect, t.cfg)
	t.currentScore = evaluation.Total
	if err := t.saveBestScoreLocked(ctx); err != nil {
		log.Printf("warn: save best score user=%s case=%s: %v", t.userID, t.caseID, err)
	}
	return evaluation, nil
}

// SaveBestScore counts one finished attempt and keeps the higher of the stored and current score.
func (t *Tracker) SaveBestScore(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveBestScoreLocked(ctx)
}

func (t *Tracker) saveBestScoreLocked(ctx context.Context) error {
	// Re-read so attempts made elsewhere since construction are not overwritten. If the re-read
	// fails, the record loaded at construction is the best known state.
	rec, err := t.readRecord(ctx)
	if err != nil {
		log.Printf("warn: best score re-read failed user=%s case=%s, using loaded record: %v", t.userID, t.caseID, err)
		rec = domain.BestScoreRecord{BestScore: t.bestScore, Attempts: t.attempts}
	}
	score := t.currentScore
	rec.BestScore = higher(higher(rec.BestScore, t.bestScore), &score)
	rec.Attempts++
	t.bestScore = rec.BestScore
	t.attempts = rec.Attempts

	if t.store == nil {
		return nil
	}
	return t.store.SaveBestScore(ctx, t.userID, t.caseID, rec)
}

// higher returns the larger of two optional scores.
func higher(a, b *int) *int {
	if a == nil || (b != nil && *b > *a) {
		return b
	}
	return a
}

// loadRecord reads the stored record at construction; an unreadable record counts as none.
func (t *Tracker) loadRecord(ctx context.Context) domain.BestScoreRecord {
	rec, err := t.readRecord(ctx)
	if err != nil {
		log.Printf("warn: best score record unreadable user=%s case=%s: %v", t.userID, t.caseID, err)
		return domain.BestScoreRecord{}
	}
	return rec
}

func (t *Tracker) readRecord(ctx context.Context) (domain.BestScoreRecord, error) {
	if t.store == nil {
		return domain.BestScoreRecord{BestScore: t.bestScore, Attempts: t.attempts}, nil
	}
	rec, err := t.store.LoadBestScore(ctx, t.userID, t.caseID)
	if err != nil {
		return domain.BestScoreRecord{}, err
	}
	if rec.Attempts < 0 {
		rec.Attempts = 0
	}
	return rec, nil
}

// BestScore returns the best finalized score (nil when none) and the attempt count.
func (t *Tracker) BestScore() (*int, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.bestScore == nil {
		return nil, t.attempts
	}
	best := *t.bestScore
	return &best, t.attempts
}

// Finalized reports whether a final evaluation has been applied since the last reset.
func (t *Tracker) Finalized() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.evaluation != nil
}

// Breakdown returns a snapshot of the running score.
func (t *Tracker) Breakdown() domain.ScoreBreakdown {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b := domain.ScoreBreakdown{
		Base:           BaseScore(t.cfg),
		PenaltyTotal:   t.penaltyTotal,
		SpeedBonus:     t.speedBonus,
		DiagnosisScore: t.diagnosisScore,
		Total:          t.currentScore,
	}
	if t.evaluation != nil {
		eval := *t.evaluation
		eval.Findings = append([]domain.Finding(nil), t.evaluation.Findings...)
		b.Evaluation = &eval
	}
	return b
}

// Reset restores the running score and restarts the timer. The stored best score is kept.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.penaltyTotal = 0
	t.speedBonus = 0
	t.diagnosisScore = 0
	t.evaluation = nil
	t.currentScore = BaseScore(t.cfg)
	t.caseStartedAt = t.now()
}
