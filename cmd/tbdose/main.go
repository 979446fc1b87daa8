// Command tbdose calculates anti-tuberculosis drug doses from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/giygas/tbdose-api/calculator"
	"github.com/giygas/tbdose-api/drugtable"
	"github.com/giygas/tbdose-api/drugtable/entities"
	"github.com/giygas/tbdose-api/logging"
	"github.com/giygas/tbdose-api/validation"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tbdose",
		Short:        "Anti-tuberculosis drug dose calculator",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logging.InitLoggerWithOptions(logging.Options{
				ConsoleLevel: level,
				Console:      cmd.ErrOrStderr(),
			})
		},
	}

	encoding := os.Getenv("DRUG_TABLE_ENCODING")
	if encoding == "" {
		encoding = drugtable.EncodingUTF8
	}

	rootCmd.PersistentFlags().String("table", os.Getenv("DRUG_TABLE_FILE"), "Path to a drug table TSV file (default: embedded table)")
	rootCmd.PersistentFlags().String("encoding", encoding, "Drug table file encoding")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print debug logs to stderr")

	rootCmd.AddCommand(calcCmd())
	rootCmd.AddCommand(drugsCmd())

	return rootCmd
}

func loadTable(cmd *cobra.Command) (entities.Table, error) {
	path, _ := cmd.Flags().GetString("table")
	encoding, _ := cmd.Flags().GetString("encoding")

	table, err := drugtable.NewLoader(path, strings.ToLower(encoding)).Load()
	if err != nil {
		return entities.Table{}, fmt.Errorf("loading drug table: %w", err)
	}
	return table, nil
}

type calcOutput struct {
	WeightKg   float64                 `json:"weight_kg"`
	WeightBand *entities.WeightBand    `json:"weight_band"`
	Category   entities.Category       `json:"category,omitempty"`
	Results    []calculator.DoseResult `json:"results"`
}

func calcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate the dose of every drug for a body weight",
		Example: `  tbdose calc --weight 60
  tbdose calc --weight 49,5 --category first-line --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawWeight, _ := cmd.Flags().GetString("weight")
			rawCategory, _ := cmd.Flags().GetString("category")
			asJSON, _ := cmd.Flags().GetBool("json")

			weight, err := validation.ParseWeight(rawWeight)
			if err != nil {
				return err
			}

			category, err := validation.ValidateCategory(rawCategory)
			if err != nil {
				return err
			}

			table, err := loadTable(cmd)
			if err != nil {
				return err
			}

			session := calculator.NewSession(table.Drugs)
			if !session.Calculate(weight) {
				return fmt.Errorf("%w: %v kg", calculator.ErrInvalidWeight, weight)
			}

			results := session.Results()
			if category != "" {
				results = calculator.FilterByCategory(results, category)
			}

			var band *entities.WeightBand
			bandLabel := ""
			if b, ok := calculator.ResolveWeightBand(weight); ok {
				band = &b
				bandLabel = string(b)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), calcOutput{
					WeightKg:   session.Weight(),
					WeightBand: band,
					Category:   category,
					Results:    results,
				})
			}
			return writeDoseTable(cmd.OutOrStdout(), session.Weight(), bandLabel, results)
		},
	}

	cmd.Flags().String("weight", "", "Body weight in kilograms (a decimal comma is accepted)")
	cmd.Flags().String("category", "", "Only show first-line or second-line drugs")
	cmd.Flags().Bool("json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("weight")

	return cmd
}

func drugsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drugs",
		Short: "List the drugs of the dosing table",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			table, err := loadTable(cmd)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), table.Drugs)
			}
			return writeDrugTable(cmd.OutOrStdout(), table.Drugs)
		},
	}

	cmd.Flags().Bool("json", false, "Print JSON instead of a table")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeDoseTable(w io.Writer, weight float64, band string, results []calculator.DoseResult) error {
	if band == "" {
		band = "none"
	}
	fmt.Fprintf(w, "Weight: %s kg (band: %s)\n\n", formatNumber(weight), band)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DRUG\tABBR\tCATEGORY\tDOSE\tRULE\tTABLETS")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Drug.Name, r.Drug.Abbreviation, r.Drug.Category,
			r.FormattedDose, ruleLabel(r), tabletsLabel(r.TabletBreakdown))
	}
	return tw.Flush()
}

func writeDrugTable(w io.Writer, drugs []entities.DrugDefinition) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tABBR\tTYPE\tCATEGORY\tMAX DOSE\tTABLETS (mg)")
	for _, d := range drugs {
		sizes := make([]string, 0, len(d.TabletSizesMg))
		for _, s := range d.TabletSizesMg {
			sizes = append(sizes, formatNumber(s))
		}
		tablets := strings.Join(sizes, ", ")
		if tablets == "" {
			tablets = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Name, d.Abbreviation, d.Type, d.Category,
			calculator.FormatDose(d.MaxDoseMg), tablets)
	}
	return tw.Flush()
}

func ruleLabel(r calculator.DoseResult) string {
	switch {
	case r.Drug.FixedDose != nil:
		return string(entities.DosingRuleFixed)
	case r.UsedWeightBand:
		return string(entities.DosingRuleWeightBand) + " " + string(r.WeightBand)
	default:
		return string(entities.DosingRulePerKg)
	}
}

func tabletsLabel(counts []calculator.TabletCount) string {
	if len(counts) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s x %s mg", formatNumber(c.Count), formatNumber(c.SizeMg)))
	}
	return strings.Join(parts, " | ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
