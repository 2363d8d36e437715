package cli

import (
	"time"

	"github.com/spf13/cobra"

	"bondval/internal/bond"
	"bondval/internal/store"
)

// addHistoryCommands adds valuation history commands.
func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Recorded valuations",
		Long:  "List, show and clear the valuations recorded by price, measures and batch.",
	}

	cmd.AddCommand(newHistoryListCmd(app))
	cmd.AddCommand(newHistoryShowCmd(app))
	cmd.AddCommand(newHistoryClearCmd(app))

	rootCmd.AddCommand(cmd)
}

func addHistoryFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("kind", "k", "", "Only this bond kind")
	cmd.Flags().String("label", "", "Only this label")
	cmd.Flags().Duration("since", 0, "Only valuations newer than this, e.g. 24h")
}

func historyFilter(cmd *cobra.Command) (store.ValuationFilter, error) {
	var filter store.ValuationFilter
	flags := cmd.Flags()

	if s, _ := flags.GetString("kind"); s != "" {
		kind, err := bond.ParseKind(s)
		if err != nil {
			return filter, err
		}
		filter.Kind = kind
	}
	filter.Label, _ = flags.GetString("label")
	if since, _ := flags.GetDuration("since"); since > 0 {
		filter.Since = time.Now().Add(-since)
	}
	return filter, nil
}

func newHistoryListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "list",
		Short:       "List recorded valuations, newest first",
		Annotations: map[string]string{storeAnnotation: "required"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ds, err := app.requireStore()
			if err != nil {
				return err
			}
			filter, err := historyFilter(cmd)
			if err != nil {
				return err
			}
			filter.Limit, _ = cmd.Flags().GetInt("limit")

			valuations, err := ds.GetValuations(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(valuations)
			}
			if len(valuations) == 0 {
				output.Dim("No valuations recorded")
				return nil
			}

			table := NewTable(output, "ID", "Time", "Label", "Kind", "Dirty", "Clean", "Mod. Duration").AlignRight(4, 5, 6)
			for _, v := range valuations {
				table.AddRow(
					v.ID,
					FormatDateTime(v.CreatedAt),
					TruncateString(v.Label, 20),
					v.Kind.String(),
					FormatAmount(v.Measures.DirtyPrice),
					FormatAmount(v.Measures.CleanPrice),
					FormatAmount(v.Measures.ModifiedDuration),
				)
			}
			table.Render()
			return nil
		},
	}
	addHistoryFilterFlags(cmd)
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of valuations (0 for all)")
	return cmd
}

func newHistoryShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "show <id>",
		Short:       "Show a recorded valuation",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{storeAnnotation: "required"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ds, err := app.requireStore()
			if err != nil {
				return err
			}

			v, err := ds.GetValuation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(v)
			}

			output.Heading("Valuation %s", v.ID)
			output.Printf("  Recorded:       %s\n", FormatDateTime(v.CreatedAt))
			if v.Label != "" {
				output.Printf("  Label:          %s\n", v.Label)
			}
			output.Printf("  Kind:           %s\n", v.Kind)
			output.Printf("  Face Value:     %s\n", FormatAmount(v.Terms.FaceValue))
			output.Printf("  Coupon Rate:    %s\n", FormatRate(v.Terms.CouponRate))
			output.Printf("  Yield Rate:     %s\n", FormatRate(v.Terms.YieldRate))
			output.Printf("  Spread:         %s\n", FormatBasisPoints(v.Terms.Spread))
			output.Printf("  Coupon Period:  %s\n", FormatDays(v.Terms.CouponPeriodDays))
			output.Printf("  Maturity:       %s\n", FormatDays(v.Terms.MaturityDays))
			output.Printf("  Day Count:      %d\n", v.Terms.DaysPerYear)
			output.Println()
			printMeasures(output, v.Measures)
			return nil
		},
	}
}

func newHistoryClearCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "clear",
		Short:       "Delete recorded valuations",
		Long:        "Delete recorded valuations matching the filters, or all of them when no filter is given.",
		Annotations: map[string]string{storeAnnotation: "required"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ds, err := app.requireStore()
			if err != nil {
				return err
			}
			filter, err := historyFilter(cmd)
			if err != nil {
				return err
			}

			n, err := ds.DeleteValuations(cmd.Context(), filter)
			if err != nil {
				return err
			}
			app.Logger.Info().Int64("deleted", n).Msg("History cleared")

			if output.IsJSON() {
				return output.JSON(map[string]int64{"deleted": n})
			}
			output.Success("✓ Deleted %d valuations", n)
			return nil
		},
	}
	addHistoryFilterFlags(cmd)
	return cmd
}
