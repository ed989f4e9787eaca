package app

import (
	"strings"
	"sync"
	"time"

	"case-trainer-service/internal/domain"
	"case-trainer-service/internal/scoring"
)

// Fallback texts shown when a case defines no answer.
const (
	noResultText    = "No result is defined for this request."
	treatmentText   = "Treatment administered."
	noHistoryText   = "No history is defined for this case."
	noExamText      = "No examination findings are defined for this case."
	unknownDrugText = "This drug is not available for the case."
)

// Attempt is one learner's play-through of a case: the score tracker plus the recorded history
// the evaluator runs over at diagnosis time.
type Attempt struct {
	caseData domain.Case
	tracker  *scoring.Tracker

	mu        sync.Mutex
	selection domain.SelectionState
	flow      []domain.FlowEntry
}

func newAttempt(c domain.Case, tracker *scoring.Tracker) *Attempt {
	return &Attempt{caseData: c, tracker: tracker}
}

// Case returns the case being played.
func (a *Attempt) Case() domain.Case {
	return a.caseData
}

// Tracker returns the attempt's score tracker.
func (a *Attempt) Tracker() *scoring.Tracker {
	return a.tracker
}

// record files an action into its buckets. answered marks an action the case has a specific
// answer for, which also counts as a produced result.
func (a *Attempt) record(rec domain.ActionRecord, answered bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case rec.Section.IsRequest():
		a.selection.Requests = append(a.selection.Requests, rec)
	default:
		a.selection.Choices = append(a.selection.Choices, rec)
	}
	if answered {
		a.selection.Results = append(a.selection.Results, rec)
	}
	a.flow = append(a.flow, domain.FlowEntry{
		Step:   string(rec.Section),
		Choice: rec.Key,
		At:     rec.CreatedAt,
	})
}

// input copies the recorded history for evaluation.
func (a *Attempt) input(diagnosis string, elapsed time.Duration) scoring.Input {
	a.mu.Lock()
	defer a.mu.Unlock()
	return scoring.Input{
		Selection: domain.SelectionState{
			Choices:  append([]domain.ActionRecord(nil), a.selection.Choices...),
			Requests: append([]domain.ActionRecord(nil), a.selection.Requests...),
			Results:  append([]domain.ActionRecord(nil), a.selection.Results...),
		},
		Flow:              append([]domain.FlowEntry(nil), a.flow...),
		DiagnosisInput:    diagnosis,
		ExpectedDiagnosis: strings.TrimSpace(a.caseData.FinalDiagnosis),
		Elapsed:           elapsed,
	}
}

// Selection returns a copy of the recorded selection state.
func (a *Attempt) Selection() domain.SelectionState {
	return a.input("", 0).Selection
}

func (a *Attempt) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selection = domain.SelectionState{}
	a.flow = nil
}

// answer resolves the static, case-defined result of an action. answered is false when the case
// defines nothing specific for the key, which makes an order unnecessary.
func answer(c domain.Case, section domain.Section, key, dose string) (recordKey, result string, answered bool) {
	switch section {
	case domain.SectionLabs:
		return keyedAnswer(c.Labs, key)
	case domain.SectionImaging:
		return keyedAnswer(c.Imaging, key)
	case domain.SectionProcedures:
		return keyedAnswer(c.Procedures, key)
	case domain.SectionDrugs:
		for _, d := range c.Drugs {
			if scoring.Normalize(d.Name) != scoring.Normalize(key) {
				continue
			}
			name := d.Name
			if dose != "" {
				name = d.Name + " (" + dose + ")"
			}
			if d.Response == "" {
				return name, treatmentText, true
			}
			return name, d.Response, true
		}
		return key, unknownDrugText, false
	case domain.SectionMuayene:
		if c.Exam == nil || (c.Exam.Vitals == "" && c.Exam.Physical == "") {
			return key, noExamText, false
		}
		return key, strings.TrimSpace(c.Exam.Vitals + "\n" + c.Exam.Physical), true
	default:
		if c.Story == "" {
			return key, noHistoryText, false
		}
		return key, c.Story, true
	}
}

func keyedAnswer(answers map[string]string, key string) (string, string, bool) {
	if v, ok := answers[key]; ok && key != domain.DefaultAnswerKey {
		return key, v, true
	}
	want := scoring.Normalize(key)
	for k, v := range answers {
		if k != domain.DefaultAnswerKey && scoring.Normalize(k) == want {
			return k, v, true
		}
	}
	if v, ok := answers[domain.DefaultAnswerKey]; ok {
		return key, v, false
	}
	return key, noResultText, false
}
