package entities

// DrugType is the administration route of a drug
type DrugType string

const (
	DrugTypeOral       DrugType = "oral"
	DrugTypeInjectable DrugType = "injectable"
)

// Category is the treatment-priority class of an anti-tuberculosis drug
type Category string

const (
	CategoryFirstLine  Category = "first-line"
	CategorySecondLine Category = "second-line"
)

// WeightBand is a key of the DDC weight-band dose table
type WeightBand string

const (
	WeightBand35to49 WeightBand = "35-49"
	WeightBand50to69 WeightBand = "50-69"
	WeightBand70Plus WeightBand = "70+"
)

// WeightBands lists the band keys in ascending weight order
var WeightBands = []WeightBand{WeightBand35to49, WeightBand50to69, WeightBand70Plus}

// DosingRule names the rule shape a drug definition carries
type DosingRule string

const (
	DosingRulePerKg      DosingRule = "per-kg"
	DosingRuleWeightBand DosingRule = "weight-band"
	DosingRuleFixed      DosingRule = "fixed"
)

// FixedDose is a weight-independent dose range in milligrams
type FixedDose struct {
	MinMg float64 `json:"minMg"`
	MaxMg float64 `json:"maxMg"`
}

// DrugDefinition is one row of the static dosing table.
// Weight-band drugs also carry per-kg factors, used below 35 kg.
type DrugDefinition struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Abbreviation  string                 `json:"abbreviation"`
	Type          DrugType               `json:"type"`
	Category      Category               `json:"category"`
	DoseMinPerKg  float64                `json:"doseMinPerKg"`
	DoseMaxPerKg  float64                `json:"doseMaxPerKg"`
	WeightBands   map[WeightBand]float64 `json:"weightBands,omitempty"`
	FixedDose     *FixedDose             `json:"fixedDose,omitempty"`
	MaxDoseMg     float64                `json:"maxDoseMg"`
	TabletSizesMg []float64              `json:"tabletSizesMg"`
	EGFRNote      string                 `json:"eGfrNote"`
}

// Rule returns the dosing rule shape of the definition
func (d DrugDefinition) Rule() DosingRule {
	switch {
	case d.FixedDose != nil:
		return DosingRuleFixed
	case len(d.WeightBands) > 0:
		return DosingRuleWeightBand
	default:
		return DosingRulePerKg
	}
}

// Clone returns a deep copy so callers never share the table's slices or maps
func (d DrugDefinition) Clone() DrugDefinition {
	c := d
	if d.WeightBands != nil {
		c.WeightBands = make(map[WeightBand]float64, len(d.WeightBands))
		for k, v := range d.WeightBands {
			c.WeightBands[k] = v
		}
	}
	if d.FixedDose != nil {
		fd := *d.FixedDose
		c.FixedDose = &fd
	}
	c.TabletSizesMg = append(make([]float64, 0, len(d.TabletSizesMg)), d.TabletSizesMg...)
	return c
}
