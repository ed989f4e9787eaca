package domain

// Category is one of the four scoring buckets.
type Category string

const (
	CategoryExam      Category = "exam"
	CategoryRequest   Category = "request"
	CategoryTreatment Category = "treatment"
	CategoryDiagnosis Category = "diagnosis"
)

// Categories lists every category in evaluation order.
var Categories = []Category{CategoryExam, CategoryRequest, CategoryTreatment, CategoryDiagnosis}

// RuleEntry is a case-authored rule as it appears in the scoring block. Only the points field
// matching the list the rule sits in is read.
type RuleEntry struct {
	Type          string `json:"type"`
	Key           string `json:"key"`
	PenaltyOnSkip *int   `json:"penalty_on_skip,omitempty"`
	Penalty       *int   `json:"penalty,omitempty"`
	Bonus         *int   `json:"bonus,omitempty"`
}

// CategoryWeightOverrides are the optional per-category weights of a scoring block.
type CategoryWeightOverrides struct {
	Exam      *float64 `json:"exam,omitempty"`
	Request   *float64 `json:"request,omitempty"`
	Treatment *float64 `json:"treatment,omitempty"`
	Diagnosis *float64 `json:"diagnosis,omitempty"`
}

// CategoryMaxOverrides are the optional per-category caps of a scoring block.
type CategoryMaxOverrides struct {
	Exam      *int `json:"exam,omitempty"`
	Request   *int `json:"request,omitempty"`
	Treatment *int `json:"treatment,omitempty"`
	Diagnosis *int `json:"diagnosis,omitempty"`
}

// CapsOverrides are the optional score bounds of a scoring block.
type CapsOverrides struct {
	OverallMin  *int                  `json:"overall_min,omitempty"`
	OverallMax  *int                  `json:"overall_max,omitempty"`
	CategoryMax *CategoryMaxOverrides `json:"category_max,omitempty"`
}

// ScoringOverrides is the partial scoring block supplied with a case. Nil fields fall back to
// the built-in defaults.
type ScoringOverrides struct {
	Base                    *int                     `json:"base,omitempty"`
	PenaltyPerLab           *int                     `json:"penalty_per_lab,omitempty"`
	PenaltyPerImaging       *int                     `json:"penalty_per_imaging,omitempty"`
	PenaltyPerProcedure     *int                     `json:"penalty_per_procedure,omitempty"`
	PenaltyUnnecessary      *int                     `json:"penalty_unnecessary,omitempty"`
	PenaltyWrongDiagnosis   *int                     `json:"penalty_wrong_dx,omitempty"`
	BonusCorrectDiagnosis   *int                     `json:"bonus_correct_dx,omitempty"`
	PenaltyOnMissingDefault *int                     `json:"penalty_on_missing_default,omitempty"`
	SpeedBonusWindowSec     *int                     `json:"speed_bonus_window_sec,omitempty"`
	SpeedMaxBonus           *int                     `json:"speed_max_bonus,omitempty"`
	Required                []RuleEntry              `json:"required,omitempty"`
	Unnecessary             []RuleEntry              `json:"unnecessary,omitempty"`
	Bonus                   []RuleEntry              `json:"bonus,omitempty"`
	CategoryWeights         *CategoryWeightOverrides `json:"category_weights,omitempty"`
	Caps                    *CapsOverrides           `json:"caps,omitempty"`
}

// CategoryScores holds one integer per category.
type CategoryScores struct {
	Exam      int `json:"exam"`
	Request   int `json:"request"`
	Treatment int `json:"treatment"`
	Diagnosis int `json:"diagnosis"`
}

// Get returns the value for c.
func (s CategoryScores) Get(c Category) int {
	switch c {
	case CategoryExam:
		return s.Exam
	case CategoryTreatment:
		return s.Treatment
	case CategoryDiagnosis:
		return s.Diagnosis
	default:
		return s.Request
	}
}

// Set assigns v to c.
func (s *CategoryScores) Set(c Category, v int) {
	switch c {
	case CategoryExam:
		s.Exam = v
	case CategoryTreatment:
		s.Treatment = v
	case CategoryDiagnosis:
		s.Diagnosis = v
	default:
		s.Request = v
	}
}

// Finding is a single scored event.
type Finding struct {
	Category Category `json:"category"`
	Delta    int      `json:"delta"`
	Reason   string   `json:"reason"`
}

// DiagnosisVerdict records how the submitted diagnosis was judged.
type DiagnosisVerdict struct {
	Input     string `json:"input"`
	Expected  string `json:"expected"`
	IsCorrect bool   `json:"isCorrect"`
}

// EvaluationResult is the authoritative end-of-case score.
type EvaluationResult struct {
	Total      int              `json:"total"`
	Categories CategoryScores   `json:"categories"`
	Findings   []Finding        `json:"findings"`
	Diagnosis  DiagnosisVerdict `json:"diagnosis"`
	SpeedBonus int              `json:"speedBonus"`
}

// ScoreBreakdown is the running score of one attempt.
type ScoreBreakdown struct {
	Base           int               `json:"base"`
	PenaltyTotal   int               `json:"penaltyTotal"`
	SpeedBonus     int               `json:"speedBonus"`
	DiagnosisScore int               `json:"diagnosisScore"`
	Total          int               `json:"total"`
	Evaluation     *EvaluationResult `json:"evaluation"`
}

// BestScoreRecord is the durable per-case history of a learner. BestScore is nil until the
// first attempt is finalized.
type BestScoreRecord struct {
	BestScore *int `json:"bestScore"`
	Attempts  int  `json:"attempts"`
}
