package scoring

import (
	"strings"

	"case-trainer-service/internal/domain"
)

// Weights are the relative contribution of each category to the total.
type Weights struct {
	Exam      float64 `json:"exam"`
	Request   float64 `json:"request"`
	Treatment float64 `json:"treatment"`
	Diagnosis float64 `json:"diagnosis"`
}

// Get returns the weight of c.
func (w Weights) Get(c domain.Category) float64 {
	switch c {
	case domain.CategoryExam:
		return w.Exam
	case domain.CategoryTreatment:
		return w.Treatment
	case domain.CategoryDiagnosis:
		return w.Diagnosis
	default:
		return w.Request
	}
}

// Sum returns the weight total, or 1 when every weight is zero.
func (w Weights) Sum() float64 {
	sum := w.Exam + w.Request + w.Treatment + w.Diagnosis
	if sum == 0 {
		return 1
	}
	return sum
}

// Caps bound the total and every category.
type Caps struct {
	OverallMin  int                   `json:"overallMin"`
	OverallMax  int                   `json:"overallMax"`
	CategoryMax domain.CategoryScores `json:"categoryMax"`
}

// Rule is a resolved rule entry: its key is normalized, its category mapped and its points defaulted.
type Rule struct {
	Type     string
	Key      string
	Category domain.Category
	Points   int

	normKey string
	scope   scope
}

// Config is a fully resolved scoring configuration. It is immutable for an attempt.
type Config struct {
	Base                    int
	PenaltyPerLab           int
	PenaltyPerImaging       int
	PenaltyPerProcedure     int
	PenaltyUnnecessary      int
	PenaltyWrongDiagnosis   int
	BonusCorrectDiagnosis   int
	PenaltyOnMissingDefault int
	SpeedBonusWindowSec     int
	SpeedMaxBonus           int

	Required    []Rule
	Unnecessary []Rule
	Bonus       []Rule

	Weights Weights
	Caps    Caps
}

// DefaultConfig returns the built-in scoring configuration.
func DefaultConfig() Config {
	return Config{
		Base:                    100,
		PenaltyPerLab:           5,
		PenaltyPerImaging:       8,
		PenaltyPerProcedure:     10,
		PenaltyUnnecessary:      6,
		PenaltyWrongDiagnosis:   25,
		BonusCorrectDiagnosis:   50,
		PenaltyOnMissingDefault: 10,
		SpeedBonusWindowSec:     120,
		SpeedMaxBonus:           25,
		Weights: Weights{
			Exam:      0.2,
			Request:   0.3,
			Treatment: 0.2,
			Diagnosis: 0.3,
		},
		Caps: Caps{
			OverallMin: 0,
			OverallMax: 100,
			CategoryMax: domain.CategoryScores{
				Exam:      100,
				Request:   100,
				Treatment: 100,
				Diagnosis: 100,
			},
		},
	}
}

// Resolve merges a partial scoring block over the defaults. A nil block yields the defaults.
func Resolve(o *domain.ScoringOverrides) Config {
	cfg := DefaultConfig()
	if o == nil {
		return cfg
	}

	setInt(&cfg.Base, o.Base)
	setInt(&cfg.PenaltyPerLab, o.PenaltyPerLab)
	setInt(&cfg.PenaltyPerImaging, o.PenaltyPerImaging)
	setInt(&cfg.PenaltyPerProcedure, o.PenaltyPerProcedure)
	setInt(&cfg.PenaltyUnnecessary, o.PenaltyUnnecessary)
	setInt(&cfg.PenaltyWrongDiagnosis, o.PenaltyWrongDiagnosis)
	setInt(&cfg.BonusCorrectDiagnosis, o.BonusCorrectDiagnosis)
	setInt(&cfg.PenaltyOnMissingDefault, o.PenaltyOnMissingDefault)
	setInt(&cfg.SpeedBonusWindowSec, o.SpeedBonusWindowSec)
	setInt(&cfg.SpeedMaxBonus, o.SpeedMaxBonus)

	if w := o.CategoryWeights; w != nil {
		setWeight(&cfg.Weights.Exam, w.Exam)
		setWeight(&cfg.Weights.Request, w.Request)
		setWeight(&cfg.Weights.Treatment, w.Treatment)
		setWeight(&cfg.Weights.Diagnosis, w.Diagnosis)
	}

	if c := o.Caps; c != nil {
		setInt(&cfg.Caps.OverallMin, c.OverallMin)
		setInt(&cfg.Caps.OverallMax, c.OverallMax)
		if m := c.CategoryMax; m != nil {
			setInt(&cfg.Caps.CategoryMax.Exam, m.Exam)
			setInt(&cfg.Caps.CategoryMax.Request, m.Request)
			setInt(&cfg.Caps.CategoryMax.Treatment, m.Treatment)
			setInt(&cfg.Caps.CategoryMax.Diagnosis, m.Diagnosis)
		}
	}

	cfg.Required = resolveRules(o.Required, func(e domain.RuleEntry) int {
		return intOr(e.PenaltyOnSkip, cfg.PenaltyOnMissingDefault)
	})
	cfg.Unnecessary = resolveRules(o.Unnecessary, func(e domain.RuleEntry) int {
		return intOr(e.Penalty, cfg.PenaltyUnnecessary)
	})
	cfg.Bonus = resolveRules(o.Bonus, func(e domain.RuleEntry) int {
		return intOr(e.Bonus, 0)
	})
	return cfg
}

func resolveRules(entries []domain.RuleEntry, points func(domain.RuleEntry) int) []Rule {
	rules := make([]Rule, 0, len(entries))
	for _, e := range entries {
		normKey := Normalize(e.Key)
		if strings.TrimSpace(e.Key) == "" || normKey == "" {
			continue
		}
		target := targetFor(e.Type)
		rules = append(rules, Rule{
			Type:     e.Type,
			Key:      e.Key,
			Category: target.category,
			Points:   points(e),
			normKey:  normKey,
			scope:    target.scope,
		})
	}
	return rules
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// setWeight applies a weight override; negative weights count as zero.
func setWeight(dst *float64, v *float64) {
	if v == nil {
		return
	}
	if *v < 0 {
		*dst = 0
		return
	}
	*dst = *v
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}
