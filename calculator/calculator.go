// Package calculator computes weight-based doses and tablet counts for the
// anti-tuberculosis drugs of the DDC dosing table.
//
// Each drug is resolved in strict priority order: a fixed dose wins, then the
// weight-band table when the weight falls in a band, then the per-kg maximum
// capped at the drug's ceiling.
package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/giygas/tbdose-api/drugtable/entities"
)

// MaxWeightKg is the highest accepted body weight
const MaxWeightKg = 200.0

// ErrInvalidWeight is returned for weights outside (0, MaxWeightKg]
var ErrInvalidWeight = errors.New("invalid weight")

// TabletCount is the number of tablets of one strength, in half-tablet steps
type TabletCount struct {
	SizeMg float64 `json:"sizeMg"`
	Count  float64 `json:"count"`
}

// DoseResult is the dose recommendation for one drug at one weight.
// CalculatedDoseMinMg and CalculatedDoseMaxMg always come from the per-kg
// factors and are 0 for fixed-dose drugs.
type DoseResult struct {
	Drug                entities.DrugDefinition `json:"drug"`
	CalculatedDoseMg    float64                 `json:"calculatedDoseMg"`
	CalculatedDoseMinMg float64                 `json:"calculatedDoseMinMg"`
	CalculatedDoseMaxMg float64                 `json:"calculatedDoseMaxMg"`
	FormattedDose       string                  `json:"formattedDose"`
	TabletBreakdown     []TabletCount           `json:"tabletBreakdown"`
	UsedWeightBand      bool                    `json:"usedWeightBand"`
	WeightBand          entities.WeightBand     `json:"weightBand,omitempty"`
}

// Clone returns a deep copy of the result
func (r DoseResult) Clone() DoseResult {
	c := r
	c.Drug = r.Drug.Clone()
	c.TabletBreakdown = append(make([]TabletCount, 0, len(r.TabletBreakdown)), r.TabletBreakdown...)
	return c
}

// ValidWeight reports whether weightKg is inside (0, MaxWeightKg]
func ValidWeight(weightKg float64) bool {
	return !math.IsNaN(weightKg) && weightKg > 0 && weightKg <= MaxWeightKg
}

// ResolveWeightBand returns the band for a weight.
// Bands are inclusive on both ends, so weights in the gaps (49, 50) and
// (69, 70) resolve to no band, as do weights below 35.
func ResolveWeightBand(weightKg float64) (entities.WeightBand, bool) {
	switch {
	case weightKg >= 35 && weightKg <= 49:
		return entities.WeightBand35to49, true
	case weightKg >= 50 && weightKg <= 69:
		return entities.WeightBand50to69, true
	case weightKg >= 70:
		return entities.WeightBand70Plus, true
	default:
		return "", false
	}
}

// Calculate returns one DoseResult per drug, in table order.
// It returns ErrInvalidWeight, and no results, for weights outside (0, 200].
func Calculate(weightKg float64, table []entities.DrugDefinition) ([]DoseResult, error) {
	if !ValidWeight(weightKg) {
		return nil, fmt.Errorf("%w: %v kg (must be greater than 0 and at most %v)", ErrInvalidWeight, weightKg, MaxWeightKg)
	}

	band, hasBand := ResolveWeightBand(weightKg)

	results := make([]DoseResult, 0, len(table))
	for _, drug := range table {
		results = append(results, calculateDrug(weightKg, band, hasBand, drug))
	}

	return results, nil
}

// CalculateDrug returns the dose of a single drug
func CalculateDrug(weightKg float64, drug entities.DrugDefinition) (DoseResult, error) {
	if !ValidWeight(weightKg) {
		return DoseResult{}, fmt.Errorf("%w: %v kg (must be greater than 0 and at most %v)", ErrInvalidWeight, weightKg, MaxWeightKg)
	}

	band, hasBand := ResolveWeightBand(weightKg)
	return calculateDrug(weightKg, band, hasBand, drug), nil
}

func calculateDrug(weightKg float64, band entities.WeightBand, hasBand bool, drug entities.DrugDefinition) DoseResult {
	doseMin := math.Min(weightKg*drug.DoseMinPerKg, drug.MaxDoseMg)
	doseMax := math.Min(weightKg*drug.DoseMaxPerKg, drug.MaxDoseMg)

	var dose float64
	usedBand := false

	bandDose, inTable := drug.WeightBands[band]
	switch {
	case drug.FixedDose != nil:
		dose = drug.FixedDose.MaxMg
	case hasBand && inTable:
		dose = bandDose
		usedBand = true
	default:
		dose = doseMax
	}

	return DoseResult{
		Drug:                drug.Clone(),
		CalculatedDoseMg:    dose,
		CalculatedDoseMinMg: doseMin,
		CalculatedDoseMaxMg: doseMax,
		FormattedDose:       FormatDose(dose),
		TabletBreakdown:     TabletBreakdown(dose, drug.TabletSizesMg),
		UsedWeightBand:      usedBand,
		WeightBand:          band,
	}
}

// FormatDose renders a dose rounded to the nearest milligram, e.g. "600 mg"
func FormatDose(doseMg float64) string {
	return fmt.Sprintf("%d mg", int64(math.Round(doseMg)))
}

// TabletBreakdown counts tablets per size, rounded to the nearest half tablet
func TabletBreakdown(doseMg float64, sizesMg []float64) []TabletCount {
	counts := make([]TabletCount, 0, len(sizesMg))
	for _, size := range sizesMg {
		counts = append(counts, TabletCount{
			SizeMg: size,
			Count:  roundToHalf(doseMg / size),
		})
	}
	return counts
}

// roundToHalf rounds halves up, matching how the dose cards are printed
func roundToHalf(x float64) float64 {
	return math.Floor(x*2+0.5) / 2
}

// FilterByCategory returns the results of one category, keeping their order
func FilterByCategory(results []DoseResult, category entities.Category) []DoseResult {
	filtered := make([]DoseResult, 0, len(results))
	for _, r := range results {
		if r.Drug.Category == category {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
