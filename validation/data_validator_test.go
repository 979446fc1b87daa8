package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/giygas/tbdose-api/calculator"
	"github.com/giygas/tbdose-api/drugtable/entities"
)

func validBandDrug() entities.DrugDefinition {
	return entities.DrugDefinition{
		ID:           "rifampicin",
		Name:         "Rifampicin",
		Abbreviation: "R",
		Type:         entities.DrugTypeOral,
		Category:     entities.CategoryFirstLine,
		DoseMinPerKg: 8,
		DoseMaxPerKg: 12,
		WeightBands: map[entities.WeightBand]float64{
			entities.WeightBand35to49: 450,
			entities.WeightBand50to69: 600,
			entities.WeightBand70Plus: 600,
		},
		MaxDoseMg:     600,
		TabletSizesMg: []float64{300, 450},
	}
}

func validFixedDrug() entities.DrugDefinition {
	return entities.DrugDefinition{
		ID:            "levofloxacin-iv",
		Name:          "Levofloxacin",
		Type:          entities.DrugTypeInjectable,
		Category:      entities.CategorySecondLine,
		FixedDose:     &entities.FixedDose{MinMg: 750, MaxMg: 1000},
		MaxDoseMg:     1000,
		TabletSizesMg: []float64{},
	}
}

func TestParseWeight(t *testing.T) {
	validator := NewDataValidator()

	valid := map[string]float64{
		"60":      60,
		" 60,5 ":  60.5,
		"0.5":     0.5,
		"200":     200,
		"34.9":    34.9,
		"199.999": 199.999,
		".5":      0.5,
		",5":      0.5,
		"60.":     60,
		"60.1234": 60.1234,
	}
	for input, want := range valid {
		got, err := validator.ParseWeight(input)
		if err != nil {
			t.Errorf("ParseWeight(%q) unexpected error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseWeight(%q) = %v, want %v", input, got, want)
		}
	}

	invalid := []string{"", "   ", "abc", "0", "0.0", "-1", "200.1", "1000", "1e2", "0x10", "NaN", "Inf", "60kg", "6 0", ".", ",", "60..5", "1.2345678"}
	for _, input := range invalid {
		_, err := validator.ParseWeight(input)
		if err == nil {
			t.Errorf("ParseWeight(%q) expected error", input)
			continue
		}
		if !errors.Is(err, calculator.ErrInvalidWeight) {
			t.Errorf("ParseWeight(%q) error %v does not wrap ErrInvalidWeight", input, err)
		}
	}
}

func TestValidateDrugID(t *testing.T) {
	for _, id := range []string{"isoniazid", "levofloxacin-oral", "a", "drug-2"} {
		if err := ValidateDrugID(id); err != nil {
			t.Errorf("ValidateDrugID(%q) unexpected error: %v", id, err)
		}
	}

	for _, id := range []string{"", " ", "Isoniazid", "-leading", "bad_id", "../etc", strings.Repeat("a", 65), "<script>"} {
		if err := ValidateDrugID(id); err == nil {
			t.Errorf("ValidateDrugID(%q) expected error", id)
		}
	}
}

func TestValidateCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    entities.Category
		wantErr bool
	}{
		{"", "", false},
		{"first-line", entities.CategoryFirstLine, false},
		{" Second-Line ", entities.CategorySecondLine, false},
		{"third-line", "", true},
	}

	for _, tt := range tests {
		got, err := ValidateCategory(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateCategory(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ValidateCategory(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateDrug(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *entities.DrugDefinition)
		base    func() entities.DrugDefinition
		wantErr string
	}{
		{"valid band drug", func(d *entities.DrugDefinition) {}, validBandDrug, ""},
		{"valid fixed drug", func(d *entities.DrugDefinition) {}, validFixedDrug, ""},
		{"bad type", func(d *entities.DrugDefinition) { d.Type = "inhaled" }, validBandDrug, "invalid type"},
		{"bad category", func(d *entities.DrugDefinition) { d.Category = "third-line" }, validBandDrug, "invalid category"},
		{"empty name", func(d *entities.DrugDefinition) { d.Name = " " }, validBandDrug, "name cannot be empty"},
		{"min above max", func(d *entities.DrugDefinition) { d.DoseMinPerKg = 20 }, validBandDrug, "greater than max"},
		{"zero max dose", func(d *entities.DrugDefinition) { d.MaxDoseMg = 0 }, validBandDrug, "max dose must be positive"},
		{"missing band", func(d *entities.DrugDefinition) { delete(d.WeightBands, entities.WeightBand70Plus) }, validBandDrug, "missing band 70+"},
		{"band without per-kg", func(d *entities.DrugDefinition) { d.DoseMinPerKg, d.DoseMaxPerKg = 0, 0 }, validBandDrug, "needs per-kg factors"},
		{"fixed and bands", func(d *entities.DrugDefinition) {
			d.WeightBands = map[entities.WeightBand]float64{entities.WeightBand35to49: 1, entities.WeightBand50to69: 1, entities.WeightBand70Plus: 1}
		}, validFixedDrug, "both a fixed dose"},
		{"inverted fixed range", func(d *entities.DrugDefinition) { d.FixedDose.MinMg = 2000 }, validFixedDrug, "invalid fixed dose range"},
		{"injectable with tablets", func(d *entities.DrugDefinition) { d.TabletSizesMg = []float64{500} }, validFixedDrug, "injectable drug cannot list tablet sizes"},
		{"zero tablet size", func(d *entities.DrugDefinition) { d.TabletSizesMg = []float64{0} }, validBandDrug, "tablet size must be positive"},
		{"no rule", func(d *entities.DrugDefinition) { d.FixedDose = nil }, validFixedDrug, "no dosing rule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.base()
			tt.mutate(&d)
			err := ValidateDrug(&d)

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDrugNil(t *testing.T) {
	if err := ValidateDrug(nil); err == nil {
		t.Error("expected error for nil drug")
	}
}

func TestValidateTableReportsEveryProblem(t *testing.T) {
	dup := validBandDrug()
	broken := validFixedDrug()
	broken.Category = "unknown"
	broken.MaxDoseMg = -1

	err := ValidateTable([]entities.DrugDefinition{validBandDrug(), dup, broken})
	if err == nil {
		t.Fatal("expected an error")
	}

	msg := err.Error()
	for _, want := range []string{"duplicate id", "invalid category", "max dose must be positive"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestValidateTableEmpty(t *testing.T) {
	if err := ValidateTable(nil); err == nil {
		t.Error("expected error for empty table")
	}
}

func TestValidateTableValid(t *testing.T) {
	if err := ValidateTable([]entities.DrugDefinition{validBandDrug(), validFixedDrug()}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
