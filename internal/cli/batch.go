package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "bondval/internal/errors"
	"bondval/internal/models"
	"bondval/internal/portfolio"
)

// addBatchCommands adds CSV batch valuation.
func addBatchCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newBatchCmd(app))
}

func newBatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file.csv>",
		Short: "Value every term sheet in a CSV file",
		Long: `Value many bonds at once. The input needs a header row with any of:

  id, label, kind, face_value, coupon_rate, yield_rate, spread,
  coupon_period_days, maturity_days, days_per_year

Blank kind defaults to fixed, blank face_value to 100 and blank
days_per_year to 360. Rows that fail are reported and do not stop the run.

Examples:
  bondval batch book.csv
  bondval batch book.csv --out valued.csv --workers 8`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{storeAnnotation: "optional"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			f, err := os.Open(args[0])
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInputValidation, err.Error())
			}
			rows, err := portfolio.ReadRows(f)
			f.Close()
			if err != nil {
				return err
			}

			workers, _ := cmd.Flags().GetInt("workers")
			if !cmd.Flags().Changed("workers") {
				workers = app.Config.Curve.Workers
			}
			opts := portfolio.Options{Workers: workers}
			if app.Store != nil {
				opts.Sink = func(vs []models.Valuation) error {
					return app.Store.SaveValuations(cmd.Context(), vs)
				}
			}

			report, err := portfolio.Value(cmd.Context(), rows, opts)
			app.Metrics.RecordLatency("batch", report.Elapsed.Seconds())
			for _, res := range report.Results {
				if res.Err != nil {
					app.Metrics.RecordValuation(res.Kind, "error")
					app.Metrics.RecordError(errorType(res.Err))
					continue
				}
				app.Metrics.RecordValuation(res.Kind, "ok")
				app.Metrics.RecordLastPrice(res.Kind, res.Measures.DirtyPrice)
			}
			for _, rowErr := range report.Errors() {
				app.Logger.Warn().Err(rowErr).Msg("Row not valued")
			}
			if err != nil {
				return err
			}

			if out, _ := cmd.Flags().GetString("out"); out != "" {
				if err := writeBatchCSV(out, report); err != nil {
					return err
				}
				output.Success("✓ Wrote %d rows to %s", len(report.Results), out)
			} else if output.IsJSON() {
				return output.JSON(report.ResultRows())
			} else {
				printBatch(output, report)
			}

			if report.Failed > 0 {
				output.Warning("%d of %d rows failed", report.Failed, len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "", "Write results as CSV to this file")
	cmd.Flags().Int("workers", 0, "Worker count (default from config)")
	return cmd
}

func writeBatchCSV(path string, report *portfolio.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(err, "create output file")
	}
	if err := report.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printBatch(output *Output, report *portfolio.Report) {
	output.Heading("Batch Valuation (%d rows, %s)", len(report.Results), FormatDuration(report.Elapsed))
	table := NewTable(output, "Row", "ID", "Kind", "Dirty", "Clean", "Mod. Duration", "Convexity").AlignRight(0, 3, 4, 5, 6)
	for _, r := range report.ResultRows() {
		if r.Error != "" {
			table.AddRow(fmt.Sprintf("%d", r.Row), TruncateString(r.ID, 20), r.Kind, output.Signed(-1, "error"), "", "", "")
			continue
		}
		table.AddRow(
			fmt.Sprintf("%d", r.Row),
			TruncateString(r.ID, 20),
			r.Kind,
			FormatAmount(r.DirtyPrice),
			FormatAmount(r.CleanPrice),
			FormatAmount(r.ModifiedDuration),
			FormatAmount(r.Convexity),
		)
	}
	table.Render()

	for _, err := range report.Errors() {
		output.Error("  %v", err)
	}
}
