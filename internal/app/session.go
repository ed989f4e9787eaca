package app

import (
	"sort"
	"sync"
	"time"

	"case-trainer-service/internal/domain"
)

// DefaultTimerDuration is the host countdown length when none is configured.
const DefaultTimerDuration = 12 * time.Minute

// maxSelections bounds the in-memory selection log of a session.
const maxSelections = 500

// Session is the in-memory state of one training session: host controls, participants with
// their attempts, and the subscribers that receive every change.
type Session struct {
	id           string
	createdAt    time.Time
	now          func() time.Time
	timer        time.Duration
	mu           sync.RWMutex
	state        domain.SessionState
	participants map[string]*participant
	selections   []domain.Selection
	subscribers  map[chan domain.SessionSnapshot]struct{}
}

type participant struct {
	score   domain.ParticipantScore
	attempt *Attempt
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string, timer time.Duration) *Session {
	return newSessionWithClock(id, timer, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, timer time.Duration, now func() time.Time) *Session {
	return newSessionWithClock(id, timer, now)
}

func newSessionWithClock(id string, timer time.Duration, now func() time.Time) *Session {
	if timer <= 0 {
		timer = DefaultTimerDuration
	}
	created := now()
	return &Session{
		id:        id,
		createdAt: created,
		now:       now,
		timer:     timer,
		state: domain.SessionState{
			SessionID: id,
			Status:    domain.StatusPending,
			UpdatedAt: created,
		},
		participants: make(map[string]*participant),
		subscribers:  make(map[chan domain.SessionSnapshot]struct{}),
	}
}

func (s *Session) join(userID, displayName string) domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if p, ok := s.participants[userID]; ok {
		p.score.DisplayName = displayName
		p.score.UpdatedAt = now
	} else {
		s.participants[userID] = &participant{score: domain.ParticipantScore{
			UserID:      userID,
			DisplayName: displayName,
			UpdatedAt:   now,
		}}
	}
	return s.broadcastLocked()
}

func (s *Session) host(action domain.HostAction, caseID string) (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	switch action {
	case domain.HostStartCase:
		s.state.Status = domain.StatusRunning
		if caseID != "" {
			s.state.ActiveCaseID = caseID
		}
	case domain.HostEndCase:
		s.state.Status = domain.StatusCompleted
	case domain.HostNextCase:
		s.state.Status = domain.StatusPending
		s.state.ActiveCaseID = caseID
	case domain.HostStartTimer:
		s.state.TimerRunning = true
		s.state.TimerStartedAt = &now
		s.state.TimerStoppedAt = nil
	case domain.HostStopTimer:
		s.state.TimerRunning = false
		s.state.TimerStoppedAt = &now
	default:
		return domain.SessionSnapshot{}, domain.ErrUnknownHostAction
	}
	s.state.LastAction = action
	s.state.UpdatedAt = now
	return s.broadcastLocked(), nil
}

func (s *Session) activeCaseID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ActiveCaseID
}

func (s *Session) hasParticipant(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.participants[userID]
	return ok
}

func (s *Session) setAttempt(userID string, attempt *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[userID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.attempt = attempt
	return nil
}

func (s *Session) attemptFor(userID string) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[userID]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	if p.attempt == nil {
		return nil, domain.ErrNoActiveAttempt
	}
	return p.attempt, nil
}

// applyScore stores the latest breakdown of a participant and fans the scoreboard out.
func (s *Session) applyScore(userID, caseID string, elapsed time.Duration, b domain.ScoreBreakdown) (domain.ScoreUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[userID]
	if !ok {
		return domain.ScoreUpdate{}, domain.ErrParticipantNotFound
	}
	base := b.Base
	elapsedMs := elapsed.Milliseconds()
	breakdown := b
	p.score.CurrentCaseID = caseID
	p.score.Score = b.Total
	p.score.SpeedBonus = b.SpeedBonus
	p.score.PenaltyTotal = b.PenaltyTotal
	p.score.DiagnosisScore = b.DiagnosisScore
	p.score.BaseScore = &base
	p.score.ElapsedMs = &elapsedMs
	p.score.Breakdown = &breakdown
	p.score.UpdatedAt = s.now()
	s.broadcastLocked()

	return domain.ScoreUpdate{
		SessionID:   s.id,
		UserID:      userID,
		DisplayName: p.score.DisplayName,
		CaseID:      caseID,
		ElapsedMs:   elapsedMs,
		Breakdown:   b,
	}, nil
}

func (s *Session) logSelection(sel domain.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections = append(s.selections, sel)
	if over := len(s.selections) - maxSelections; over > 0 {
		s.selections = append([]domain.Selection(nil), s.selections[over:]...)
	}
}

// recentSelections returns the selection log, most recent first.
func (s *Session) recentSelections() []domain.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Selection, 0, len(s.selections))
	for i := len(s.selections) - 1; i >= 0; i-- {
		out = append(out, s.selections[i])
	}
	return out
}

func (s *Session) leave(userID string) domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, userID)
	return s.broadcastLocked()
}

func (s *Session) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants) == 0
}

// IsEmpty reports whether the session has no participants.
func (s *Session) IsEmpty() bool {
	return s.isEmpty()
}

// Snapshot returns the current state and scoreboard.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.SessionSnapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its oldest snapshot so the broadcast never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	now := s.now()
	state := s.state
	state.RemainingMs = s.remainingLocked(now).Milliseconds()

	entries := make([]domain.ParticipantScore, 0, len(s.participants))
	for _, p := range s.participants {
		entries = append(entries, p.score)
	}
	// Highest score first; ties go to whoever reached it earlier, then by name.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})

	return domain.SessionSnapshot{
		State: state,
		Scoreboard: domain.Scoreboard{
			SessionID: s.id,
			Entries:   entries,
			UpdatedAt: now,
		},
	}
}

// remainingLocked is the host countdown; it is display-only and never feeds scoring.
func (s *Session) remainingLocked(now time.Time) time.Duration {
	if s.state.TimerStartedAt == nil {
		return 0
	}
	end := now
	if !s.state.TimerRunning && s.state.TimerStoppedAt != nil {
		end = *s.state.TimerStoppedAt
	}
	elapsed := end.Sub(*s.state.TimerStartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := s.timer - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
