package domain

import (
	"sort"
	"time"
)

// Patient is the short demographic header of a case.
type Patient struct {
	Age     *int   `json:"age,omitempty"`
	Sex     string `json:"sex,omitempty"`
	Setting string `json:"setting,omitempty"`
	Triage  string `json:"triage,omitempty"`
}

// Exam holds the vital signs and physical examination text.
type Exam struct {
	Vitals   string `json:"vitals,omitempty"`
	Physical string `json:"physical,omitempty"`
}

// Drug is an administrable medication with its selectable doses.
type Drug struct {
	Name     string   `json:"name"`
	Doses    []string `json:"doses,omitempty"`
	Response string   `json:"response,omitempty"`
}

// DefaultAnswerKey is the map key holding the fallback answer of labs, imaging and procedures.
const DefaultAnswerKey = "default"

// Case is a clinical vignette. Labs, Imaging and Procedures map a request key to its static answer;
// a key absent from the map was not clinically indicated.
type Case struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Difficulty     string            `json:"difficulty,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Patient        *Patient          `json:"patient,omitempty"`
	Paramedic      string            `json:"paramedic,omitempty"`
	Story          string            `json:"story,omitempty"`
	Exam           *Exam             `json:"exam,omitempty"`
	Labs           map[string]string `json:"labs,omitempty"`
	Imaging        map[string]string `json:"imaging,omitempty"`
	Procedures     map[string]string `json:"procedures,omitempty"`
	Drugs          []Drug            `json:"drugs,omitempty"`
	Consults       []string          `json:"consults,omitempty"`
	Disposition    string            `json:"disposition,omitempty"`
	FinalDiagnosis string            `json:"final_diagnosis"`
	Scoring        *ScoringOverrides `json:"scoring,omitempty"`
}

// DrugOption is the learner-facing part of a Drug.
type DrugOption struct {
	Name  string   `json:"name"`
	Doses []string `json:"doses,omitempty"`
}

// CaseView is what a learner sees when an attempt starts: options, never answers.
type CaseView struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Difficulty string       `json:"difficulty,omitempty"`
	Tags       []string     `json:"tags,omitempty"`
	Patient    *Patient     `json:"patient,omitempty"`
	Paramedic  string       `json:"paramedic,omitempty"`
	Labs       []string     `json:"labs"`
	Imaging    []string     `json:"imaging"`
	Procedures []string     `json:"procedures"`
	Drugs      []DrugOption `json:"drugs"`
	Consults   []string     `json:"consults,omitempty"`
}

// View strips answers, the final diagnosis and scoring from the case.
func (c Case) View() CaseView {
	drugs := make([]DrugOption, 0, len(c.Drugs))
	for _, d := range c.Drugs {
		drugs = append(drugs, DrugOption{Name: d.Name, Doses: d.Doses})
	}
	return CaseView{
		ID:         c.ID,
		Title:      c.Title,
		Difficulty: c.Difficulty,
		Tags:       c.Tags,
		Patient:    c.Patient,
		Paramedic:  c.Paramedic,
		Labs:       optionKeys(c.Labs),
		Imaging:    optionKeys(c.Imaging),
		Procedures: optionKeys(c.Procedures),
		Drugs:      drugs,
		Consults:   c.Consults,
	}
}

func optionKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != DefaultAnswerKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// CasesData is the document format of a case bundle.
type CasesData struct {
	FeaturedCaseID string `json:"featured_case_id,omitempty"`
	Cases          []Case `json:"cases"`
}

// FeaturedID returns the featured case id, falling back to the first case.
func (d CasesData) FeaturedID() string {
	if d.FeaturedCaseID != "" {
		return d.FeaturedCaseID
	}
	if len(d.Cases) > 0 {
		return d.Cases[0].ID
	}
	return ""
}

// Section names an action area of the case screen.
type Section string

const (
	SectionLabs       Section = "labs"
	SectionImaging    Section = "imaging"
	SectionProcedures Section = "procedures"
	SectionDrugs      Section = "drugs"
	SectionAnamnez    Section = "anamnez"
	SectionMuayene    Section = "muayene"
	SectionHikaye     Section = "hikaye"
)

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	switch s {
	case SectionLabs, SectionImaging, SectionProcedures, SectionDrugs,
		SectionAnamnez, SectionMuayene, SectionHikaye:
		return true
	}
	return false
}

// IsRequest reports whether the section orders an investigation or procedure.
func (s Section) IsRequest() bool {
	return s == SectionLabs || s == SectionImaging || s == SectionProcedures
}

// IsHistory reports whether the section records an anamnesis, exam or story choice.
func (s Section) IsHistory() bool {
	return s == SectionAnamnez || s == SectionMuayene || s == SectionHikaye
}

// ActionRecord is one learner action. It is never modified after creation.
type ActionRecord struct {
	ID        string    `json:"id"`
	Section   Section   `json:"section"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
	Result    string    `json:"result,omitempty"`
}

// SelectionState groups the actions of an attempt. A record may appear in more than one bucket,
// e.g. an ordered procedure also yields a result.
type SelectionState struct {
	Choices  []ActionRecord `json:"secimler"`
	Requests []ActionRecord `json:"istekler"`
	Results  []ActionRecord `json:"sonuclar"`
}

// FlowEntry is a free-form step of the attempt in the order it happened.
type FlowEntry struct {
	Step   string    `json:"step"`
	Choice string    `json:"choice"`
	At     time.Time `json:"at"`
}
