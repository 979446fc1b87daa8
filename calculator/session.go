package calculator

import (
	"github.com/giygas/tbdose-api/drugtable/entities"
)

// Session holds the latest successful calculation for one caller.
// It is not safe for concurrent use; HTTP handlers create one per request.
type Session struct {
	table          []entities.DrugDefinition
	weightKg       float64
	results        []DoseResult
	calculatedOnce bool
}

// NewSession creates a session over a read-only drug table
func NewSession(table []entities.DrugDefinition) *Session {
	return &Session{
		table:   table,
		results: []DoseResult{},
	}
}

// Calculate recomputes all results for weightKg.
// On an invalid weight it returns false and keeps the previous results.
func (s *Session) Calculate(weightKg float64) bool {
	results, err := Calculate(weightKg, s.table)
	if err != nil {
		return false
	}

	s.weightKg = weightKg
	s.results = results
	s.calculatedOnce = true
	return true
}

// Results returns a copy of the latest results, empty before the first success
func (s *Session) Results() []DoseResult {
	return cloneResults(s.results)
}

// FirstLineResults returns the first-line subset of Results
func (s *Session) FirstLineResults() []DoseResult {
	return cloneResults(FilterByCategory(s.results, entities.CategoryFirstLine))
}

// SecondLineResults returns the second-line subset of Results
func (s *Session) SecondLineResults() []DoseResult {
	return cloneResults(FilterByCategory(s.results, entities.CategorySecondLine))
}

// HasCalculatedOnce reports whether any calculation has succeeded
func (s *Session) HasCalculatedOnce() bool {
	return s.calculatedOnce
}

// Weight returns the weight of the latest successful calculation
func (s *Session) Weight() float64 {
	return s.weightKg
}

func cloneResults(results []DoseResult) []DoseResult {
	out := make([]DoseResult, len(results))
	for i, r := range results {
		out[i] = r.Clone()
	}
	return out
}
