package scoring_test

import (
	"reflect"
	"testing"
	"time"

	"case-trainer-service/internal/domain"
	"case-trainer-service/internal/scoring"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestResolveMergesOverDefaults(t *testing.T) {
	cfg := scoring.Resolve(&domain.ScoringOverrides{
		Base:          intPtr(120),
		PenaltyPerLab: intPtr(3),
		CategoryWeights: &domain.CategoryWeightOverrides{
			Exam: floatPtr(-1),
		},
		Caps: &domain.CapsOverrides{
			CategoryMax: &domain.CategoryMaxOverrides{Diagnosis: intPtr(80)},
		},
	})

	if cfg.Base != 120 || cfg.PenaltyPerLab != 3 || cfg.PenaltyPerImaging != 8 {
		t.Fatalf("unexpected penalties base=%d lab=%d imaging=%d", cfg.Base, cfg.PenaltyPerLab, cfg.PenaltyPerImaging)
	}
	if cfg.Weights.Exam != 0 || cfg.Weights.Request != 0.3 {
		t.Fatalf("expected negative exam weight to clamp to 0 and request to keep 0.3, got %+v", cfg.Weights)
	}
	if cfg.Caps.CategoryMax.Diagnosis != 80 || cfg.Caps.CategoryMax.Exam != 100 || cfg.Caps.OverallMax != 100 {
		t.Fatalf("unexpected caps %+v", cfg.Caps)
	}
}

func TestResolveNilIsDefaults(t *testing.T) {
	if got, want := scoring.Resolve(nil), scoring.DefaultConfig(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected defaults %+v, got %+v", want, got)
	}
}

func TestResolveRuleDefaults(t *testing.T) {
	cfg := scoring.Resolve(&domain.ScoringOverrides{
		PenaltyOnMissingDefault: intPtr(7),
		Required: []domain.RuleEntry{
			{Type: "lab", Key: "Troponin"},
			{Type: "lab", Key: "   "},
			{Type: "imaging", Key: "EKG", PenaltyOnSkip: intPtr(12)},
		},
		Unnecessary: []domain.RuleEntry{{Type: "imaging", Key: "Beyin BT"}},
		Bonus:       []domain.RuleEntry{{Type: "drug", Key: "Aspirin"}},
	})

	if len(cfg.Required) != 2 {
		t.Fatalf("expected blank keys to be dropped, got %d required rules", len(cfg.Required))
	}
	if cfg.Required[0].Points != 7 || cfg.Required[1].Points != 12 {
		t.Fatalf("unexpected required points %d/%d", cfg.Required[0].Points, cfg.Required[1].Points)
	}
	if cfg.Required[0].Category != domain.CategoryRequest {
		t.Fatalf("expected lab rule in request category, got %s", cfg.Required[0].Category)
	}
	if len(cfg.Unnecessary) != 1 || cfg.Unnecessary[0].Points != 6 {
		t.Fatalf("expected one unnecessary rule with default 6 points, got %+v", cfg.Unnecessary)
	}
	if len(cfg.Bonus) != 1 || cfg.Bonus[0].Points != 0 || cfg.Bonus[0].Category != domain.CategoryTreatment {
		t.Fatalf("expected one zero-point treatment bonus, got %+v", cfg.Bonus)
	}
}

func TestActionPenalty(t *testing.T) {
	cfg := scoring.DefaultConfig()
	testCases := []struct {
		name        string
		action      scoring.ActionType
		unnecessary bool
		want        int
	}{
		{"lab", scoring.ActionLab, false, -5},
		{"imaging", scoring.ActionImaging, false, -8},
		{"procedure", scoring.ActionProcedure, false, -10},
		{"unnecessary lab", scoring.ActionLab, true, -11},
		{"unknown type", scoring.ActionType("consult"), false, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := scoring.ActionPenalty(tc.action, cfg, scoring.PenaltyOptions{Unnecessary: tc.unnecessary})
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestDiagnosisDelta(t *testing.T) {
	cfg := scoring.DefaultConfig()
	if got := scoring.DiagnosisDelta(true, cfg); got != 50 {
		t.Fatalf("correct diagnosis: expected 50, got %d", got)
	}
	if got := scoring.DiagnosisDelta(false, cfg); got != -25 {
		t.Fatalf("wrong diagnosis: expected -25, got %d", got)
	}
}

func TestSpeedBonusDecay(t *testing.T) {
	cfg := scoring.DefaultConfig()

	checks := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, cfg.SpeedMaxBonus},
		{60 * time.Second, 13},
		{120 * time.Second, 0},
		{10 * time.Minute, 0},
		{-time.Second, 0},
	}
	for _, c := range checks {
		if got := scoring.SpeedBonus(c.elapsed, cfg); got != c.want {
			t.Fatalf("speed bonus at %v: expected %d, got %d", c.elapsed, c.want, got)
		}
	}

	prev := scoring.SpeedBonus(0, cfg)
	for ms := 0; ms <= 130_000; ms += 250 {
		got := scoring.SpeedBonus(time.Duration(ms)*time.Millisecond, cfg)
		if got > prev || got < 0 {
			t.Fatalf("bonus at %dms out of order: %d after %d", ms, got, prev)
		}
		prev = got
	}
}

func TestSpeedBonusDisabled(t *testing.T) {
	noMax := scoring.Resolve(&domain.ScoringOverrides{SpeedMaxBonus: intPtr(0)})
	if got := scoring.SpeedBonus(time.Second, noMax); got != 0 {
		t.Fatalf("expected no bonus without a max, got %d", got)
	}

	noWindow := scoring.Resolve(&domain.ScoringOverrides{SpeedBonusWindowSec: intPtr(0)})
	if got := scoring.SpeedBonus(time.Second, noWindow); got != 0 {
		t.Fatalf("expected no bonus without a window, got %d", got)
	}
}
