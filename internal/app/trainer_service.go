package app

import (
	"context"
	"log"
	"strings"
	"time"

	"case-trainer-service/internal/domain"
	"case-trainer-service/internal/scoring"
	"github.com/google/uuid"
)

// SessionRepository abstracts how training sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string) *Session
	Get(sessionID string) (*Session, bool)
	DeleteIfEmpty(sessionID string)
}

// CaseRepository loads case content (from cache/backing store).
type CaseRepository interface {
	GetCase(ctx context.Context, caseID string) (domain.Case, error)
}

// AdvisoryRequest describes an action the advisory text generator may answer.
type AdvisoryRequest struct {
	UserID     string         `json:"userId"`
	CaseID     string         `json:"caseId"`
	Section    domain.Section `json:"section"`
	ActionType string         `json:"actionType,omitempty"`
	Key        string         `json:"key"`
	Dose       string         `json:"dose,omitempty"`
}

// Advisor may replace the displayed result of an action. It never affects scoring.
type Advisor interface {
	Advise(ctx context.Context, req AdvisoryRequest) (string, error)
}

// ScoreSink receives every score update for external fan-out.
type ScoreSink interface {
	PublishScore(ctx context.Context, update domain.ScoreUpdate) error
}

// ActionRequest is a learner action as sent by a client.
type ActionRequest struct {
	Section domain.Section
	Key     string
	Dose    string
}

// ActionOutcome is returned to the acting learner.
type ActionOutcome struct {
	Record      domain.ActionRecord   `json:"record"`
	Result      string                `json:"result"`
	Delta       int                   `json:"scoreDelta"`
	Unnecessary bool                  `json:"unnecessary"`
	Breakdown   domain.ScoreBreakdown `json:"breakdown"`
}

// AttemptInfo describes a freshly started attempt.
type AttemptInfo struct {
	Case      domain.CaseView       `json:"case"`
	Breakdown domain.ScoreBreakdown `json:"breakdown"`
	BestScore *int                  `json:"bestScore"`
	Attempts  int                   `json:"attempts"`
}

// DiagnosisOutcome is the final result of an attempt.
type DiagnosisOutcome struct {
	Evaluation domain.EvaluationResult `json:"evaluation"`
	Breakdown  domain.ScoreBreakdown   `json:"breakdown"`
	BestScore  *int                    `json:"bestScore"`
	Attempts   int                     `json:"attempts"`
}

// TrainerService contains the case-training use cases.
type TrainerService struct {
	sessions SessionRepository
	cases    CaseRepository
	scores   scoring.BestScoreStore
	advisor  Advisor
	sink     ScoreSink
	fallback string
	now      func() time.Time
}

// Option configures optional collaborators of the service.
type Option func(*TrainerService)

// WithAdvisor enables advisory result text.
func WithAdvisor(a Advisor) Option {
	return func(s *TrainerService) { s.advisor = a }
}

// WithScoreSink forwards score updates to an external collaborator.
func WithScoreSink(sink ScoreSink) Option {
	return func(s *TrainerService) { s.sink = sink }
}

// WithDefaultCase sets the case an attempt starts on when neither the learner nor the host
// picked one.
func WithDefaultCase(caseID string) Option {
	return func(s *TrainerService) { s.fallback = caseID }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TrainerService) { s.now = now }
}

func NewTrainerService(store SessionRepository, cases CaseRepository, scores scoring.BestScoreStore, opts ...Option) *TrainerService {
	s := &TrainerService{sessions: store, cases: cases, scores: scores, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Join registers or refreshes a participant in a session, creating the session on first use.
func (s *TrainerService) Join(_ context.Context, sessionID, userID, displayName string) (domain.SessionSnapshot, error) {
	session := s.sessions.GetOrCreate(sessionID)
	return session.join(userID, displayName), nil
}

// Host applies a host control to the session.
func (s *TrainerService) Host(ctx context.Context, sessionID string, action domain.HostAction, caseID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if caseID != "" {
		if _, err := s.cases.GetCase(ctx, caseID); err != nil {
			return domain.SessionSnapshot{}, err
		}
	}
	return session.host(action, caseID)
}

// StartAttempt loads a case for the participant and starts scoring it. An empty caseID picks the
// session's active case, then the default case.
func (s *TrainerService) StartAttempt(ctx context.Context, sessionID, userID, caseID string) (AttemptInfo, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return AttemptInfo{}, domain.ErrSessionNotFound
	}
	if !session.hasParticipant(userID) {
		return AttemptInfo{}, domain.ErrParticipantNotFound
	}
	if caseID == "" {
		caseID = session.activeCaseID()
	}
	if caseID == "" {
		caseID = s.fallback
	}
	if caseID == "" {
		return AttemptInfo{}, domain.ErrCaseNotFound
	}

	c, err := s.cases.GetCase(ctx, caseID)
	if err != nil {
		return AttemptInfo{}, err
	}

	tracker := scoring.NewTrackerWithClock(ctx, userID, c.ID, c.Scoring, s.scores, s.now)
	tracker.StartCaseTimer()
	attempt := newAttempt(c, tracker)
	if err := session.setAttempt(userID, attempt); err != nil {
		return AttemptInfo{}, err
	}

	breakdown := s.publish(ctx, session, userID, attempt)
	best, attempts := tracker.BestScore()
	return AttemptInfo{
		Case:      c.View(),
		Breakdown: breakdown,
		BestScore: best,
		Attempts:  attempts,
	}, nil
}

// RecordAction records a learner action, charges its live penalty and returns the result text.
func (s *TrainerService) RecordAction(ctx context.Context, sessionID, userID string, req ActionRequest) (ActionOutcome, error) {
	if !req.Section.Valid() {
		return ActionOutcome{}, domain.ErrUnknownSection
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return ActionOutcome{}, domain.ErrEmptyKey
	}

	session, attempt, err := s.activeAttempt(sessionID, userID)
	if err != nil {
		return ActionOutcome{}, err
	}
	tracker := attempt.Tracker()
	c := attempt.Case()

	recordKey, static, answered := answer(c, req.Section, key, strings.TrimSpace(req.Dose))

	var delta int
	unnecessary := false
	actionType, charged := scoring.ActionTypeForSection(req.Section)
	if charged {
		unnecessary = !answered
		delta = tracker.ApplyPenalty(actionType, scoring.PenaltyOptions{Unnecessary: unnecessary})
	} else if req.Section == domain.SectionDrugs {
		actionType = "drug"
	}

	display := static
	if s.advisor != nil {
		advice, err := s.advisor.Advise(ctx, AdvisoryRequest{
			UserID:     userID,
			CaseID:     c.ID,
			Section:    req.Section,
			ActionType: string(actionType),
			Key:        key,
			Dose:       req.Dose,
		})
		if err != nil {
			log.Printf("warn: advisory lookup failed, using static result: %v", err)
		} else if advice != "" {
			display = advice
		}
	}

	now := s.now()
	rec := domain.ActionRecord{
		ID:        uuid.NewString(),
		Section:   req.Section,
		Key:       recordKey,
		CreatedAt: now,
		Result:    static,
	}
	attempt.record(rec, answered)
	session.logSelection(domain.Selection{
		UserID:    userID,
		CaseID:    c.ID,
		Section:   req.Section,
		Key:       recordKey,
		Delta:     delta,
		CreatedAt: now,
	})

	return ActionOutcome{
		Record:      rec,
		Result:      display,
		Delta:       delta,
		Unnecessary: unnecessary,
		Breakdown:   s.publish(ctx, session, userID, attempt),
	}, nil
}

// SubmitDiagnosis evaluates the whole attempt and commits the result as the attempt's score.
func (s *TrainerService) SubmitDiagnosis(ctx context.Context, sessionID, userID, diagnosis string) (DiagnosisOutcome, error) {
	diagnosis = strings.TrimSpace(diagnosis)
	if diagnosis == "" {
		return DiagnosisOutcome{}, domain.ErrEmptyKey
	}
	session, attempt, err := s.activeAttempt(sessionID, userID)
	if err != nil {
		return DiagnosisOutcome{}, err
	}
	tracker := attempt.Tracker()

	input := attempt.input(diagnosis, tracker.Elapsed())
	evaluation, err := tracker.ApplyFinalEvaluation(ctx, scoring.Evaluate(tracker.Config(), input))
	if err != nil {
		return DiagnosisOutcome{}, err
	}

	breakdown := s.publish(ctx, session, userID, attempt)
	best, attempts := tracker.BestScore()
	return DiagnosisOutcome{
		Evaluation: evaluation,
		Breakdown:  breakdown,
		BestScore:  best,
		Attempts:   attempts,
	}, nil
}

// ResetAttempt clears the attempt history and running score and restarts its timer.
func (s *TrainerService) ResetAttempt(ctx context.Context, sessionID, userID string) (domain.ScoreBreakdown, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ScoreBreakdown{}, domain.ErrSessionNotFound
	}
	attempt, err := session.attemptFor(userID)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	attempt.Tracker().Reset()
	attempt.clear()
	return s.publish(ctx, session, userID, attempt), nil
}

// Subscribe returns a channel that receives session snapshots.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *TrainerService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionSnapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Scoreboard returns the current state and scoreboard of a session.
func (s *TrainerService) Scoreboard(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Selections returns the session's selection log, most recent first.
func (s *TrainerService) Selections(_ context.Context, sessionID string) ([]domain.Selection, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.recentSelections(), nil
}

// Leave removes a participant from the session and drops the session if empty.
func (s *TrainerService) Leave(_ context.Context, sessionID, userID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.leave(userID)
	if session.isEmpty() {
		s.sessions.DeleteIfEmpty(sessionID)
	}
}

func (s *TrainerService) activeAttempt(sessionID, userID string) (*Session, *Attempt, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	attempt, err := session.attemptFor(userID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.Tracker().Finalized() {
		return nil, nil, domain.ErrAttemptFinished
	}
	return session, attempt, nil
}

// publish pushes the attempt's breakdown to the scoreboard and the optional sink.
func (s *TrainerService) publish(ctx context.Context, session *Session, userID string, attempt *Attempt) domain.ScoreBreakdown {
	tracker := attempt.Tracker()
	breakdown := tracker.Breakdown()
	update, err := session.applyScore(userID, tracker.CaseID(), tracker.Elapsed(), breakdown)
	if err != nil {
		log.Printf("warn: scoreboard update user=%s: %v", userID, err)
		return breakdown
	}
	if s.sink != nil {
		if err := s.sink.PublishScore(ctx, update); err != nil {
			log.Printf("warn: score sink publish user=%s: %v", userID, err)
		}
	}
	return breakdown
}
