package drugtable

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/giygas/tbdose-api/drugtable/entities"
	"github.com/giygas/tbdose-api/logging"
	"golang.org/x/text/unicode/norm"
)

// Column names of the table header
const (
	colID           = "id"
	colName         = "name"
	colAbbreviation = "abbreviation"
	colType         = "type"
	colCategory     = "category"
	colDoseMinPerKg = "dose_min_per_kg"
	colDoseMaxPerKg = "dose_max_per_kg"
	colBand35to49   = "band_35_49"
	colBand50to69   = "band_50_69"
	colBand70Plus   = "band_70_plus"
	colFixedDoseMin = "fixed_dose_min"
	colFixedDoseMax = "fixed_dose_max"
	colMaxDoseMg    = "max_dose_mg"
	colTabletSizes  = "tablet_sizes_mg"
	colEGFRNote     = "egfr_note"
)

var requiredColumns = []string{
	colID, colName, colAbbreviation, colType, colCategory,
	colDoseMinPerKg, colDoseMaxPerKg,
	colBand35to49, colBand50to69, colBand70Plus,
	colFixedDoseMin, colFixedDoseMax,
	colMaxDoseMg, colTabletSizes, colEGFRNote,
}

var bandColumns = map[entities.WeightBand]string{
	entities.WeightBand35to49: colBand35to49,
	entities.WeightBand50to69: colBand50to69,
	entities.WeightBand70Plus: colBand70Plus,
}

// ParseStats counts what the parser skipped
type ParseStats struct {
	TotalLines    int
	EmptyLines    int
	CommentLines  int
	RecordsParsed int
}

// ParseTable reads a tab separated drug table.
// Empty lines and lines starting with '#' are skipped. Unlike the bulk exports the
// table is small and authoritative, so any malformed row fails the whole parse.
func ParseTable(r io.Reader) ([]entities.DrugDefinition, ParseStats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1*1024*1024)

	var (
		stats   ParseStats
		columns map[string]int
		drugs   []entities.DrugDefinition
	)

	for scanner.Scan() {
		stats.TotalLines++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			stats.EmptyLines++
			continue
		}
		if strings.HasPrefix(line, "#") {
			stats.CommentLines++
			continue
		}

		fields := strings.Split(line, "\t")

		if columns == nil {
			header, err := parseHeader(fields)
			if err != nil {
				return nil, stats, fmt.Errorf("line %d: %w", stats.TotalLines, err)
			}
			columns = header
			continue
		}

		if len(fields) < len(columns) {
			return nil, stats, fmt.Errorf("line %d: expected %d columns, got %d", stats.TotalLines, len(columns), len(fields))
		}

		drug, err := parseRow(fields, columns)
		if err != nil {
			return nil, stats, fmt.Errorf("line %d: %w", stats.TotalLines, err)
		}

		drugs = append(drugs, drug)
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scanner error: %w", err)
	}

	if columns == nil {
		return nil, stats, fmt.Errorf("table has no header row")
	}

	stats.RecordsParsed = len(drugs)

	if stats.EmptyLines > 0 || stats.CommentLines > 0 {
		logging.Debug("Drug table skip statistics",
			"empty_lines", stats.EmptyLines,
			"comment_lines", stats.CommentLines,
			"total_lines", stats.TotalLines,
			"records_parsed", stats.RecordsParsed)
	}

	return drugs, stats, nil
}

func parseHeader(fields []string) (map[string]int, error) {
	columns := make(map[string]int, len(fields))
	for i, f := range fields {
		columns[strings.ToLower(strings.TrimSpace(f))] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing columns: %v", missing)
	}

	return columns, nil
}

func parseRow(fields []string, columns map[string]int) (entities.DrugDefinition, error) {
	cell := func(name string) string {
		return strings.TrimSpace(fields[columns[name]])
	}

	drug := entities.DrugDefinition{
		ID:           strings.ToLower(cell(colID)),
		Name:         norm.NFC.String(cell(colName)),
		Abbreviation: norm.NFC.String(cell(colAbbreviation)),
		Type:         entities.DrugType(strings.ToLower(cell(colType))),
		Category:     entities.Category(strings.ToLower(cell(colCategory))),
		EGFRNote:     norm.NFC.String(cell(colEGFRNote)),
	}

	var err error
	if drug.DoseMinPerKg, _, err = parseNumber(cell(colDoseMinPerKg)); err != nil {
		return drug, fmt.Errorf("%s: %w", colDoseMinPerKg, err)
	}
	if drug.DoseMaxPerKg, _, err = parseNumber(cell(colDoseMaxPerKg)); err != nil {
		return drug, fmt.Errorf("%s: %w", colDoseMaxPerKg, err)
	}

	maxDose, ok, err := parseNumber(cell(colMaxDoseMg))
	if err != nil {
		return drug, fmt.Errorf("%s: %w", colMaxDoseMg, err)
	}
	if !ok {
		return drug, fmt.Errorf("%s is required", colMaxDoseMg)
	}
	drug.MaxDoseMg = maxDose

	for _, band := range entities.WeightBands {
		dose, ok, err := parseNumber(cell(bandColumns[band]))
		if err != nil {
			return drug, fmt.Errorf("%s: %w", bandColumns[band], err)
		}
		if !ok {
			continue
		}
		if drug.WeightBands == nil {
			drug.WeightBands = make(map[entities.WeightBand]float64, len(entities.WeightBands))
		}
		drug.WeightBands[band] = dose
	}

	fixedMin, hasMin, err := parseNumber(cell(colFixedDoseMin))
	if err != nil {
		return drug, fmt.Errorf("%s: %w", colFixedDoseMin, err)
	}
	fixedMax, hasMax, err := parseNumber(cell(colFixedDoseMax))
	if err != nil {
		return drug, fmt.Errorf("%s: %w", colFixedDoseMax, err)
	}
	if hasMin != hasMax {
		return drug, fmt.Errorf("%s and %s must be set together", colFixedDoseMin, colFixedDoseMax)
	}
	if hasMin {
		drug.FixedDose = &entities.FixedDose{MinMg: fixedMin, MaxMg: fixedMax}
	}

	drug.TabletSizesMg, err = parseTabletSizes(cell(colTabletSizes))
	if err != nil {
		return drug, fmt.Errorf("%s: %w", colTabletSizes, err)
	}

	return drug, nil
}

// parseNumber returns ok=false for an empty cell
func parseNumber(value string) (float64, bool, error) {
	if value == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number '%s'", value)
	}
	return f, true, nil
}

func parseTabletSizes(value string) ([]float64, error) {
	sizes := make([]float64, 0, 2)
	if value == "" {
		return sizes, nil
	}
	for part := range strings.SplitSeq(value, ",") {
		size, ok, err := parseNumber(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("empty tablet size in '%s'", value)
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}
