package domain

import "time"

// SessionStatus is the host-controlled phase of a training session.
type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
)

// HostAction is a control sent by the session host.
type HostAction string

const (
	HostStartCase  HostAction = "startCase"
	HostEndCase    HostAction = "endCase"
	HostNextCase   HostAction = "nextCase"
	HostStartTimer HostAction = "startTimer"
	HostStopTimer  HostAction = "stopTimer"
)

// SessionState is the shared, host-owned state every participant observes.
type SessionState struct {
	SessionID      string        `json:"sessionId"`
	Status         SessionStatus `json:"status"`
	ActiveCaseID   string        `json:"activeCaseId,omitempty"`
	LastAction     HostAction    `json:"lastAction,omitempty"`
	TimerRunning   bool          `json:"timerRunning"`
	TimerStartedAt *time.Time    `json:"timerStartedAt,omitempty"`
	TimerStoppedAt *time.Time    `json:"timerStoppedAt,omitempty"`
	RemainingMs    int64         `json:"remainingMs"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ParticipantScore is one row of the shared scoreboard.
type ParticipantScore struct {
	UserID         string          `json:"userId"`
	DisplayName    string          `json:"displayName"`
	CurrentCaseID  string          `json:"currentCaseId,omitempty"`
	Score          int             `json:"score"`
	SpeedBonus     int             `json:"speedBonus"`
	PenaltyTotal   int             `json:"penaltyTotal"`
	DiagnosisScore int             `json:"diagnosisScore"`
	BaseScore      *int            `json:"baseScore,omitempty"`
	ElapsedMs      *int64          `json:"elapsedMs,omitempty"`
	Breakdown      *ScoreBreakdown `json:"scoreBreakdown,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Scoreboard captures the ordered participant scores of a session.
type Scoreboard struct {
	SessionID string             `json:"sessionId"`
	Entries   []ParticipantScore `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// SessionSnapshot is what subscribers receive after every change.
type SessionSnapshot struct {
	State      SessionState `json:"state"`
	Scoreboard Scoreboard   `json:"scoreboard"`
}

// ScoreUpdate is pushed after every score-affecting action.
type ScoreUpdate struct {
	SessionID   string         `json:"sessionId"`
	UserID      string         `json:"userId"`
	DisplayName string         `json:"displayName"`
	CaseID      string         `json:"caseId"`
	ElapsedMs   int64          `json:"elapsedMs"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
}

// Selection is an entry of the session selection log.
type Selection struct {
	UserID    string    `json:"userId"`
	CaseID    string    `json:"caseId"`
	Section   Section   `json:"section"`
	Key       string    `json:"key"`
	Delta     int       `json:"scoreDelta"`
	CreatedAt time.Time `json:"createdAt"`
}
