// Package validation provides drug table and user input validation for the TB dose API.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/giygas/tbdose-api/calculator"
	"github.com/giygas/tbdose-api/drugtable/entities"
	"github.com/giygas/tbdose-api/interfaces"
)

// Pre-compiled regex patterns, compiled once at package initialization
var (
	drugIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

	// Weights are plain decimals; this rejects exponents, hex and signs before ParseFloat sees them
	weightRegex = regexp.MustCompile(`^([0-9]{1,4}([.,][0-9]{0,6})?|[.,][0-9]{1,6})$`)
)

// DataValidatorImpl implements the interfaces.InputValidator interface
type DataValidatorImpl struct{}

// Compile-time check to ensure DataValidatorImpl implements InputValidator
var _ interfaces.InputValidator = (*DataValidatorImpl)(nil)

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.InputValidator {
	return &DataValidatorImpl{}
}

// ParseWeight parses a body weight in kilograms.
// A decimal comma is accepted. Errors wrap calculator.ErrInvalidWeight.
func (v *DataValidatorImpl) ParseWeight(input string) (float64, error) {
	return ParseWeight(input)
}

// ValidateDrugID validates a drug identifier
func (v *DataValidatorImpl) ValidateDrugID(input string) error {
	return ValidateDrugID(input)
}

// ValidateCategory validates a category filter, empty meaning all categories
func (v *DataValidatorImpl) ValidateCategory(input string) (entities.Category, error) {
	return ValidateCategory(input)
}

// ParseWeight parses a body weight in kilograms
func ParseWeight(input string) (float64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: weight cannot be empty", calculator.ErrInvalidWeight)
	}

	if !weightRegex.MatchString(trimmed) {
		return 0, fmt.Errorf("%w: '%s' is not a number", calculator.ErrInvalidWeight, input)
	}

	weight, err := strconv.ParseFloat(strings.Replace(trimmed, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: '%s' is not a number", calculator.ErrInvalidWeight, input)
	}

	if !calculator.ValidWeight(weight) {
		return 0, fmt.Errorf("%w: weight must be greater than 0 and at most %v kg, got %v",
			calculator.ErrInvalidWeight, calculator.MaxWeightKg, weight)
	}

	return weight, nil
}

// ValidateDrugID validates a drug identifier
func ValidateDrugID(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("drug id cannot be empty")
	}

	if !drugIDRegex.MatchString(input) {
		return fmt.Errorf("drug id must be 1-64 lowercase letters, digits or hyphens")
	}

	return nil
}

// ValidateCategory validates a category filter, empty meaning all categories
func ValidateCategory(input string) (entities.Category, error) {
	switch c := entities.Category(strings.ToLower(strings.TrimSpace(input))); c {
	case "", entities.CategoryFirstLine, entities.CategorySecondLine:
		return c, nil
	default:
		return "", fmt.Errorf("category must be %s or %s, got: %s",
			entities.CategoryFirstLine, entities.CategorySecondLine, input)
	}
}

// ValidateTable checks the whole table and reports every problem found
func ValidateTable(drugs []entities.DrugDefinition) error {
	if len(drugs) == 0 {
		return fmt.Errorf("drug table is empty")
	}

	var errs []error
	seen := make(map[string]int, len(drugs))

	for i := range drugs {
		if first, ok := seen[drugs[i].ID]; ok {
			errs = append(errs, fmt.Errorf("row %d: duplicate id %q (first seen at row %d)", i+1, drugs[i].ID, first))
		} else {
			seen[drugs[i].ID] = i + 1
		}

		if err := ValidateDrug(&drugs[i]); err != nil {
			errs = append(errs, fmt.Errorf("row %d (%s): %w", i+1, drugs[i].ID, err))
		}
	}

	return errors.Join(errs...)
}

// ValidateDrug checks a single drug definition
func ValidateDrug(d *entities.DrugDefinition) error {
	if d == nil {
		return fmt.Errorf("drug is nil")
	}

	var errs []error

	if err := ValidateDrugID(d.ID); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, fmt.Errorf("name cannot be empty"))
	}

	switch d.Type {
	case entities.DrugTypeOral, entities.DrugTypeInjectable:
	default:
		errs = append(errs, fmt.Errorf("invalid type: %q", d.Type))
	}

	switch d.Category {
	case entities.CategoryFirstLine, entities.CategorySecondLine:
	default:
		errs = append(errs, fmt.Errorf("invalid category: %q", d.Category))
	}

	if d.DoseMinPerKg < 0 || d.DoseMaxPerKg < 0 {
		errs = append(errs, fmt.Errorf("per-kg factors cannot be negative"))
	}
	if d.DoseMinPerKg > d.DoseMaxPerKg {
		errs = append(errs, fmt.Errorf("dose min per kg %v is greater than max %v", d.DoseMinPerKg, d.DoseMaxPerKg))
	}

	if d.MaxDoseMg <= 0 {
		errs = append(errs, fmt.Errorf("max dose must be positive, got: %v", d.MaxDoseMg))
	}

	if d.FixedDose != nil && len(d.WeightBands) > 0 {
		errs = append(errs, fmt.Errorf("drug cannot have both a fixed dose and a weight-band table"))
	}

	if d.FixedDose != nil {
		if d.FixedDose.MinMg <= 0 || d.FixedDose.MinMg > d.FixedDose.MaxMg {
			errs = append(errs, fmt.Errorf("invalid fixed dose range %v-%v", d.FixedDose.MinMg, d.FixedDose.MaxMg))
		}
	}

	if len(d.WeightBands) > 0 {
		for _, band := range entities.WeightBands {
			dose, ok := d.WeightBands[band]
			if !ok {
				errs = append(errs, fmt.Errorf("weight-band table is missing band %s", band))
				continue
			}
			if dose <= 0 {
				errs = append(errs, fmt.Errorf("band %s dose must be positive, got: %v", band, dose))
			}
		}
		if d.DoseMaxPerKg == 0 {
			errs = append(errs, fmt.Errorf("weight-band drug needs per-kg factors for weights below 35 kg"))
		}
	}

	if d.FixedDose == nil && len(d.WeightBands) == 0 && d.DoseMaxPerKg == 0 {
		errs = append(errs, fmt.Errorf("drug has no dosing rule"))
	}

	for _, size := range d.TabletSizesMg {
		if size <= 0 {
			errs = append(errs, fmt.Errorf("tablet size must be positive, got: %v", size))
		}
	}

	if d.Type == entities.DrugTypeInjectable && len(d.TabletSizesMg) > 0 {
		errs = append(errs, fmt.Errorf("injectable drug cannot list tablet sizes"))
	}

	return errors.Join(errs...)
}
