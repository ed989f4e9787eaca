package scoring

import "case-trainer-service/internal/domain"

// scope is where a rule key is looked up among the performed actions.
type scope int

const (
	scopeHistory scope = iota
	scopeLabs
	scopeImaging
	scopeAnyRequest
	scopeProcedures
	scopeDrugs
	scopeAnyTreatment
	scopeDiagnosis
)

type ruleTarget struct {
	category domain.Category
	scope    scope
}

// ruleTypes maps every known (normalized) rule type to its category and lookup scope.
// Types missing from the table fall back to the request category.
var ruleTypes = map[string]ruleTarget{
	"exam":         {domain.CategoryExam, scopeHistory},
	"examination":  {domain.CategoryExam, scopeHistory},
	"physical":     {domain.CategoryExam, scopeHistory},
	"vital":        {domain.CategoryExam, scopeHistory},
	"vitals":       {domain.CategoryExam, scopeHistory},
	"muayene":      {domain.CategoryExam, scopeHistory},
	"fizikmuayene": {domain.CategoryExam, scopeHistory},
	"history":      {domain.CategoryExam, scopeHistory},
	"anamnesis":    {domain.CategoryExam, scopeHistory},
	"anamnez":      {domain.CategoryExam, scopeHistory},
	"hikaye":       {domain.CategoryExam, scopeHistory},
	"story":        {domain.CategoryExam, scopeHistory},

	"lab":         {domain.CategoryRequest, scopeLabs},
	"labs":        {domain.CategoryRequest, scopeLabs},
	"laboratory":  {domain.CategoryRequest, scopeLabs},
	"tetkik":      {domain.CategoryRequest, scopeLabs},
	"imaging":     {domain.CategoryRequest, scopeImaging},
	"radiology":   {domain.CategoryRequest, scopeImaging},
	"goruntuleme": {domain.CategoryRequest, scopeImaging},
	"request":     {domain.CategoryRequest, scopeAnyRequest},
	"test":        {domain.CategoryRequest, scopeAnyRequest},

	"drug":       {domain.CategoryTreatment, scopeDrugs},
	"drugs":      {domain.CategoryTreatment, scopeDrugs},
	"medication": {domain.CategoryTreatment, scopeDrugs},
	"ilac":       {domain.CategoryTreatment, scopeDrugs},
	"procedure":  {domain.CategoryTreatment, scopeProcedures},
	"procedures": {domain.CategoryTreatment, scopeProcedures},
	"prosedur":   {domain.CategoryTreatment, scopeProcedures},
	"islem":      {domain.CategoryTreatment, scopeProcedures},
	"treatment":  {domain.CategoryTreatment, scopeAnyTreatment},
	"tedavi":     {domain.CategoryTreatment, scopeAnyTreatment},

	"diagnosis": {domain.CategoryDiagnosis, scopeDiagnosis},
	"dx":        {domain.CategoryDiagnosis, scopeDiagnosis},
	"tani":      {domain.CategoryDiagnosis, scopeDiagnosis},
}

func targetFor(ruleType string) ruleTarget {
	if t, ok := ruleTypes[Normalize(ruleType)]; ok {
		return t
	}
	return ruleTarget{domain.CategoryRequest, scopeAnyRequest}
}

// CategoryFor maps a rule type to its scoring category.
func CategoryFor(ruleType string) domain.Category {
	return targetFor(ruleType).category
}
