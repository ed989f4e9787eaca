package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"case-trainer-service/internal/domain"
)

// Input is the full action history of an attempt at diagnosis time.
type Input struct {
	Selection         domain.SelectionState
	Flow              []domain.FlowEntry
	DiagnosisInput    string
	ExpectedDiagnosis string
	Elapsed           time.Duration
}

// requestSections are charged volume penalties in this order.
var requestSections = []domain.Section{domain.SectionLabs, domain.SectionImaging, domain.SectionProcedures}

type keySet map[string]struct{}

func (s keySet) add(raw string) {
	if k := Normalize(raw); k != "" {
		s[k] = struct{}{}
	}
}

func (s keySet) has(k string) bool {
	_, ok := s[k]
	return ok
}

// performed is the bucketed, normalized view of the selection state.
type performed struct {
	history          keySet
	requests         map[domain.Section]keySet
	drugs            keySet
	procedureResults keySet
	diagnosis        string
}

func bucket(in Input) performed {
	p := performed{
		history:          keySet{},
		requests:         map[domain.Section]keySet{},
		drugs:            keySet{},
		procedureResults: keySet{},
		diagnosis:        Normalize(in.DiagnosisInput),
	}
	for _, s := range requestSections {
		p.requests[s] = keySet{}
	}

	all := make([]domain.ActionRecord, 0, len(in.Selection.Choices)+len(in.Selection.Requests))
	all = append(all, in.Selection.Choices...)
	all = append(all, in.Selection.Requests...)
	for _, rec := range all {
		switch {
		case rec.Section.IsHistory():
			p.history.add(rec.Key)
		case rec.Section == domain.SectionDrugs:
			p.drugs.add(drugName(rec.Key))
		}
	}
	for _, rec := range in.Selection.Requests {
		if rec.Section.IsRequest() {
			p.requests[rec.Section].add(rec.Key)
		}
	}
	for _, rec := range in.Selection.Results {
		switch rec.Section {
		case domain.SectionProcedures:
			p.procedureResults.add(rec.Key)
		case domain.SectionDrugs:
			p.drugs.add(drugName(rec.Key))
		}
	}
	for _, step := range in.Flow {
		// Order-and-result steps are already bucketed above; free-form steps count as history.
		if s := domain.Section(step.Step); s.Valid() && !s.IsHistory() {
			continue
		}
		p.history.add(step.Choice)
	}
	return p
}

func (p performed) matches(r Rule) bool {
	switch r.scope {
	case scopeHistory:
		return p.history.has(r.normKey)
	case scopeLabs:
		return p.requests[domain.SectionLabs].has(r.normKey)
	case scopeImaging:
		return p.requests[domain.SectionImaging].has(r.normKey)
	case scopeProcedures:
		return p.requests[domain.SectionProcedures].has(r.normKey) || p.procedureResults.has(r.normKey)
	case scopeDrugs:
		return p.drugs.has(r.normKey)
	case scopeAnyTreatment:
		return p.drugs.has(r.normKey) ||
			p.requests[domain.SectionProcedures].has(r.normKey) ||
			p.procedureResults.has(r.normKey)
	case scopeDiagnosis:
		return p.diagnosis != "" && strings.Contains(p.diagnosis, r.normKey)
	default:
		for _, set := range p.requests {
			if set.has(r.normKey) {
				return true
			}
		}
		return false
	}
}

// tally applies deltas category by category, clamping after every step.
type tally struct {
	cfg      Config
	scores   domain.CategoryScores
	findings []domain.Finding
}

func newTally(cfg Config) *tally {
	t := &tally{cfg: cfg, findings: []domain.Finding{}}
	for _, c := range domain.Categories {
		t.scores.Set(c, clamp(100, 0, cfg.Caps.CategoryMax.Get(c)))
	}
	return t
}

func (t *tally) apply(c domain.Category, delta int, reason string) {
	next := clamp(t.scores.Get(c)+delta, 0, t.cfg.Caps.CategoryMax.Get(c))
	t.scores.Set(c, next)
	t.findings = append(t.findings, domain.Finding{Category: c, Delta: delta, Reason: reason})
}

// Evaluate scores a finished attempt. It has no side effects: identical inputs give identical results.
func Evaluate(cfg Config, in Input) domain.EvaluationResult {
	p := bucket(in)
	t := newTally(cfg)

	for _, section := range requestSections {
		n := len(p.requests[section])
		if n == 0 {
			continue
		}
		actionType, _ := ActionTypeForSection(section)
		each := ActionPenalty(actionType, cfg, PenaltyOptions{})
		t.apply(domain.CategoryRequest, n*each, fmt.Sprintf("%d %s requested (%d each)", n, section, each))
	}

	for _, r := range cfg.Required {
		if !p.matches(r) {
			t.apply(r.Category, -r.Points, fmt.Sprintf("required %s %q not performed", r.Type, r.Key))
		}
	}
	for _, r := range cfg.Unnecessary {
		if p.matches(r) {
			t.apply(r.Category, -r.Points, fmt.Sprintf("unnecessary %s %q performed", r.Type, r.Key))
		}
	}
	for _, r := range cfg.Bonus {
		if p.matches(r) {
			t.apply(r.Category, r.Points, fmt.Sprintf("bonus %s %q performed", r.Type, r.Key))
		}
	}

	expected := Normalize(in.ExpectedDiagnosis)
	isCorrect := p.diagnosis != "" && expected != "" && strings.Contains(p.diagnosis, expected)
	reason := "correct diagnosis"
	if !isCorrect {
		reason = fmt.Sprintf("incorrect diagnosis, expected %q", in.ExpectedDiagnosis)
	}
	t.apply(domain.CategoryDiagnosis, DiagnosisDelta(isCorrect, cfg), reason)

	speed := SpeedBonus(in.Elapsed, cfg)
	if speed != 0 {
		t.apply(domain.CategoryDiagnosis, speed, fmt.Sprintf("speed bonus, diagnosed after %ds", int(in.Elapsed.Seconds())))
	}

	var weighted float64
	for _, c := range domain.Categories {
		weighted += float64(t.scores.Get(c)) * cfg.Weights.Get(c)
	}
	total := int(math.Round(weighted / cfg.Weights.Sum()))

	return domain.EvaluationResult{
		Total:      clamp(total, cfg.Caps.OverallMin, cfg.Caps.OverallMax),
		Categories: t.scores,
		Findings:   t.findings,
		Diagnosis: domain.DiagnosisVerdict{
			Input:     in.DiagnosisInput,
			Expected:  in.ExpectedDiagnosis,
			IsCorrect: isCorrect,
		},
		SpeedBonus: speed,
	}
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
