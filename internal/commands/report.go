package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/internal/config"
)

func newForecastCmd(app *config.Application) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print a month's forecast as JSON",
		Example: `  staffing-engine forecast --month 2025-11
  staffing-engine forecast --month 2025-11 --snapshot "board plan"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ym := generic.Today(generic.SystemClock{}).YearMonth()
			if month != "" {
				parsed, err := generic.ParseYearMonth(month)
				if err != nil {
					return err
				}
				ym = parsed
			}

			e, err := openEngine(app)
			if err != nil {
				return err
			}
			defer e.Close()

			name, _ := cmd.Flags().GetString("snapshot")
			if name != "" {
				snap, err := e.forecasts.SaveSnapshot(cmd.Context(), ym, name)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), snap)
			}

			result, err := e.forecasts.Forecast(cmd.Context(), ym)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	cmd.Flags().String("snapshot", "", "save the forecast under this name instead of only printing it")
	return cmd
}

func newOvertimeCmd(app *config.Application) *cobra.Command {
	var start, end, actor string
	var submit bool

	cmd := &cobra.Command{
		Use:   "overtime",
		Short: "Print a pay period's overtime as JSON",
		Example: `  staffing-engine overtime --start 2025-11-01 --end 2025-11-15
  staffing-engine overtime --start 2025-11-01 --end 2025-11-15 --submit --actor payroll@warp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := generic.ParseDate(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			to, err := generic.ParseDate(end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			period, err := generic.NewPeriod(from, to)
			if err != nil {
				return err
			}

			e, err := openEngine(app)
			if err != nil {
				return err
			}
			defer e.Close()

			if submit {
				sub, err := e.overtime.Submit(cmd.Context(), period, actor)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), sub)
			}

			report, err := e.overtime.Report(cmd.Context(), period)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day of the pay period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day of the pay period (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&submit, "submit", false, "submit the period to payroll")
	cmd.Flags().StringVar(&actor, "actor", "cli", "who is submitting")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
