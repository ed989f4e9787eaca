package scoring

import (
	"math"
	"time"

	"case-trainer-service/internal/domain"
)

// ActionType is the kind of paid action a learner takes.
type ActionType string

const (
	ActionLab       ActionType = "lab"
	ActionImaging   ActionType = "imaging"
	ActionProcedure ActionType = "procedure"
)

// ActionTypeForSection maps an ordering section to its action type.
func ActionTypeForSection(s domain.Section) (ActionType, bool) {
	switch s {
	case domain.SectionLabs:
		return ActionLab, true
	case domain.SectionImaging:
		return ActionImaging, true
	case domain.SectionProcedures:
		return ActionProcedure, true
	}
	return "", false
}

// PenaltyOptions qualifies an action penalty.
type PenaltyOptions struct {
	// Unnecessary marks an action the case defines no answer for.
	Unnecessary bool
}

// BaseScore returns the starting score of an attempt.
func BaseScore(cfg Config) int {
	return cfg.Base
}

// ActionPenalty returns the (non-positive) delta for an action. Unknown action types cost nothing.
func ActionPenalty(t ActionType, cfg Config, opts PenaltyOptions) int {
	var base int
	switch t {
	case ActionLab:
		base = cfg.PenaltyPerLab
	case ActionImaging:
		base = cfg.PenaltyPerImaging
	case ActionProcedure:
		base = cfg.PenaltyPerProcedure
	}
	if opts.Unnecessary {
		base += cfg.PenaltyUnnecessary
	}
	return -base
}

// DiagnosisDelta returns the bonus for a correct diagnosis or the penalty for a wrong one.
func DiagnosisDelta(isCorrect bool, cfg Config) int {
	if isCorrect {
		return cfg.BonusCorrectDiagnosis
	}
	return -cfg.PenaltyWrongDiagnosis
}

// SpeedBonus decays linearly from SpeedMaxBonus at zero elapsed time to 0 at the end of the window.
func SpeedBonus(elapsed time.Duration, cfg Config) int {
	if elapsed < 0 || cfg.SpeedMaxBonus <= 0 || cfg.SpeedBonusWindowSec <= 0 {
		return 0
	}
	window := float64(cfg.SpeedBonusWindowSec)
	remaining := math.Max(window-elapsed.Seconds(), 0)
	if remaining <= 0 {
		return 0
	}
	return int(math.Round(float64(cfg.SpeedMaxBonus) * remaining / window))
}
