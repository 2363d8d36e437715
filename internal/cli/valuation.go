package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bondval/internal/bond"
	"bondval/internal/config"
	"bondval/internal/logging"
	"bondval/internal/models"
)

// addValuationCommands adds the single-instrument commands.
func addValuationCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newCalendarCmd(app))
	rootCmd.AddCommand(newMeasuresCmd(app))
	rootCmd.AddCommand(newCurveCmd(app))
}

func addTermSheetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("kind", "k", "", "Bond kind (zero, fixed, floating)")
	cmd.Flags().Float64("face", 0, "Face value")
	cmd.Flags().Float64("coupon", 0, "Yearly coupon rate, e.g. 0.05")
	cmd.Flags().Float64("yield", 0, "Yearly yield rate, e.g. 0.1007")
	cmd.Flags().Float64("spread", 0, "Spread added to the yield")
	cmd.Flags().Int("period", 0, "Coupon period in days (0 means a single period to maturity)")
	cmd.Flags().Int("maturity", 0, "Days to maturity")
	cmd.Flags().Int("days-per-year", 0, "Day-count basis")
	cmd.Flags().String("label", "", "Label recorded with the valuation")
}

// termSheetFromFlags starts from the configured defaults and applies every
// flag the user set.
func termSheetFromFlags(cmd *cobra.Command, cfg *config.Config) (bond.TermSheet, bond.Kind, error) {
	t := cfg.Defaults.TermSheet
	kind := cfg.DefaultKind()
	flags := cmd.Flags()

	if flags.Changed("kind") {
		s, _ := flags.GetString("kind")
		k, err := bond.ParseKind(s)
		if err != nil {
			return t, kind, err
		}
		kind = k
	}
	if flags.Changed("face") {
		t.FaceValue, _ = flags.GetFloat64("face")
	}
	if flags.Changed("coupon") {
		t.CouponRate, _ = flags.GetFloat64("coupon")
	}
	if flags.Changed("yield") {
		t.YieldRate, _ = flags.GetFloat64("yield")
	}
	if flags.Changed("spread") {
		t.Spread, _ = flags.GetFloat64("spread")
	}
	if flags.Changed("period") {
		t.CouponPeriodDays, _ = flags.GetInt("period")
	}
	if flags.Changed("maturity") {
		t.MaturityDays, _ = flags.GetInt("maturity")
	}
	if flags.Changed("days-per-year") {
		t.DaysPerYear, _ = flags.GetInt("days-per-year")
	}
	return t, kind, nil
}

// instrument builds the instrument described by the flags.
func (a *App) instrument(cmd *cobra.Command) (*bond.Instrument, error) {
	t, kind, err := termSheetFromFlags(cmd, a.Config)
	if err != nil {
		a.Metrics.RecordError(errorType(err))
		return nil, err
	}
	inst, err := bond.New(t, kind)
	if err != nil {
		a.Metrics.RecordValuation(kind.String(), "error")
		a.Metrics.RecordError(errorType(err))
		return nil, err
	}
	return inst, nil
}

// value computes the measures, records metrics and saves the valuation.
func (a *App) value(ctx context.Context, cmd *cobra.Command, inst *bond.Instrument) (bond.Measures, error) {
	kind := inst.Kind().String()
	start := time.Now()
	m, err := inst.Measures()
	a.observe("measures", kind, start, err)
	if err != nil {
		return m, err
	}

	a.Metrics.RecordValuation(kind, "ok")
	a.Metrics.RecordLastPrice(kind, m.DirtyPrice)

	label, _ := cmd.Flags().GetString("label")
	v := models.NewValuation(label, inst, m)
	logger := logging.WithInstrument(a.Logger, v.ID, kind)
	logging.LogValuation(logger, kind, m.DirtyPrice, m.CleanPrice, m.ModifiedDuration, time.Since(start))

	if a.Store != nil {
		if err := a.Store.SaveValuation(ctx, &v); err != nil {
			logger.Warn().Err(err).Msg("Failed to record valuation")
		}
	}
	return m, nil
}

func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Show the payment calendar and risk measures",
		Long: `Value a bond: the payment calendar followed by dirty price, accrued
interest, clean price, Macaulay and modified duration and convexity.

Examples:
  bondval price
  bondval price --kind zero --maturity 720 --yield 0.06
  bondval price --kind floating --coupon 0.04 --yield 0.055 --period 90 --maturity 1095`,
		Annotations: map[string]string{storeAnnotation: "optional"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			inst, err := app.instrument(cmd)
			if err != nil {
				return err
			}
			m, err := app.value(cmd.Context(), cmd, inst)
			if err != nil {
				return err
			}

			cal := inst.Calendar()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"kind":     inst.Kind(),
					"terms":    inst.Terms(),
					"calendar": cal,
					"measures": m.Rows(),
				})
			}

			printTerms(output, inst)
			output.Println()
			printCalendar(output, cal)
			output.Println()
			printMeasures(output, m)
			return nil
		},
	}
	addTermSheetFlags(cmd)
	return cmd
}

func newCalendarCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the payment calendar",
		Long:  "Show every cash flow with its gross present value, accrued interest and net present value.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			inst, err := app.instrument(cmd)
			if err != nil {
				return err
			}

			start := time.Now()
			cal := inst.Calendar()
			app.observe("calendar", inst.Kind().String(), start, nil)

			if output.IsJSON() {
				return output.JSON(cal)
			}
			printCalendar(output, cal)
			return nil
		},
	}
	addTermSheetFlags(cmd)
	return cmd
}

func newMeasuresCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "measures",
		Short:       "Show price, duration and convexity",
		Annotations: map[string]string{storeAnnotation: "optional"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			inst, err := app.instrument(cmd)
			if err != nil {
				return err
			}
			m, err := app.value(cmd.Context(), cmd, inst)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(m.Rows())
			}
			printMeasures(output, m)
			return nil
		},
	}
	addTermSheetFlags(cmd)
	return cmd
}

func newCurveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Show the price/yield curve",
		Long: `Reprice the bond over evenly spaced yields. Cash flows stay as sized at the
term sheet's yield; only the discount rate moves.

Examples:
  bondval curve
  bondval curve --low 0.01 --high 0.15 --samples 15
  bondval curve --samples 10000 --parallel`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			inst, err := app.instrument(cmd)
			if err != nil {
				return err
			}

			low, high, samples, workers := curveSettings(cmd, app.Config)
			parallel, _ := cmd.Flags().GetBool("parallel")

			start := time.Now()
			var points []bond.CurvePoint
			if parallel {
				points, err = inst.CurveParallel(cmd.Context(), low, high, samples, workers)
			} else {
				points, err = inst.Curve(low, high, samples)
			}
			app.observe("curve", inst.Kind().String(), start, err)
			logging.LogCurve(app.Logger, low, high, samples, time.Since(start), err)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(points)
			}

			output.Heading("Price/Yield Curve (%s, %d samples)", inst.Kind(), samples)
			table := NewTable(output, "Yield", "Dirty Price").AlignRight(0, 1)
			for _, p := range points {
				table.AddRow(FormatRate(p.Yield), FormatAmount(p.Price))
			}
			table.Render()
			return nil
		},
	}
	addTermSheetFlags(cmd)
	cmd.Flags().Float64("low", 0, "Lowest yield (default from config)")
	cmd.Flags().Float64("high", 0, "Highest yield (default from config)")
	cmd.Flags().Int("samples", 0, "Number of yields, both ends included (default from config)")
	cmd.Flags().Bool("parallel", false, "Reprice on a pool of workers")
	cmd.Flags().Int("workers", 0, "Worker count for --parallel (default from config)")
	return cmd
}

func curveSettings(cmd *cobra.Command, cfg *config.Config) (low, high float64, samples, workers int) {
	low, high = cfg.Curve.Low, cfg.Curve.High
	samples, workers = cfg.Curve.Samples, cfg.Curve.Workers

	flags := cmd.Flags()
	if flags.Changed("low") {
		low, _ = flags.GetFloat64("low")
	}
	if flags.Changed("high") {
		high, _ = flags.GetFloat64("high")
	}
	if flags.Changed("samples") {
		samples, _ = flags.GetInt("samples")
	}
	if flags.Changed("workers") {
		workers, _ = flags.GetInt("workers")
	}
	return low, high, samples, workers
}

func printTerms(output *Output, inst *bond.Instrument) {
	t := inst.Terms()
	output.Heading("%s Bond", kindTitle(inst.Kind()))
	output.Printf("  Face Value:     %s\n", FormatAmount(t.FaceValue))
	if inst.Kind() != bond.ZeroCoupon {
		output.Printf("  Coupon Rate:    %s\n", FormatRate(t.CouponRate))
	}
	output.Printf("  Yield Rate:     %s\n", FormatRate(t.YieldRate))
	if t.Spread != 0 {
		output.Printf("  Spread:         %s\n", FormatBasisPoints(t.Spread))
	}
	output.Printf("  Coupon Period:  %s\n", FormatDays(t.CouponPeriodDays))
	output.Printf("  Maturity:       %s\n", FormatDays(t.MaturityDays))
	output.Printf("  Day Count:      %d\n", t.DaysPerYear)
}

func kindTitle(k bond.Kind) string {
	switch k {
	case bond.ZeroCoupon:
		return "Zero-Coupon"
	case bond.FixedCoupon:
		return "Fixed-Coupon"
	case bond.FloatingCoupon:
		return "Floating-Coupon"
	}
	return string(k)
}

func printCalendar(output *Output, cal bond.Calendar) {
	output.Heading("Payment Calendar")
	table := NewTable(output, "#", "Days", "Cash Flow", "Gross PV", "Accrued", "Net PV").AlignRight(0, 1, 2, 3, 4, 5)
	for i, r := range cal.Rows {
		table.AddRow(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", r.Days),
			FormatAmount(r.Flow),
			FormatAmount(r.GrossPV),
			FormatAmount(r.Accrued),
			FormatAmount(r.NetPV),
		)
	}
	t := cal.Total
	table.AddRow(
		"Total",
		fmt.Sprintf("%d", t.Days),
		FormatAmount(t.Flow),
		FormatAmount(t.GrossPV),
		FormatAmount(t.Accrued),
		FormatAmount(t.NetPV),
	)
	table.Render()
}

func printMeasures(output *Output, m bond.Measures) {
	output.Heading("Measures")
	table := NewTable(output, "Measure", "Value").AlignRight(1)
	for _, row := range m.Rows() {
		table.AddRow(row.Name, FormatAmount(row.Value))
	}
	table.Render()
}
