// Command advtax analyzes advance tax estimate files from the command line.
//
//	advtax analyze estimate.yaml --as-of 2024-10-01
//	advtax analyze estimate.json --format json
//	advtax due-dates 2024-25
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/warp/advance-tax/advancetax"
	"github.com/warp/advance-tax/api"
	"github.com/warp/advance-tax/factory"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd(advancetax.SystemClock).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(clock advancetax.Clock) *cobra.Command {
	root := &cobra.Command{
		Use:          "advtax",
		Short:        "Advance tax schedule and interest calculator",
		Long:         "Computes the installment schedule, deferment interest and default interest of an advance tax estimate.",
		SilenceUsage: true,
	}

	root.AddCommand(analyzeCmd(clock), dueDatesCmd(clock), versionCmd())
	return root
}

func analyzeCmd(clock advancetax.Clock) *cobra.Command {
	var (
		format string
		asOf   string
	)

	cmd := &cobra.Command{
		Use:   "analyze [estimate-file]",
		Short: "Analyze an estimate file (.json, .yaml or .yml)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := factory.NewEstimateFactory().LoadFromFile(args[0])
			if err != nil {
				return err
			}

			today := clock()
			if asOf != "" {
				if today, err = advancetax.ParseDate(asOf); err != nil {
					return err
				}
				// The flag overrides the document's own as_of.
				doc.AsOf = asOf
			}

			input, err := doc.ToInput(today)
			if err != nil {
				return err
			}
			result := advancetax.Analyze(input)

			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), api.NewAnalysisDTO(result))
			case "table":
				_, err := io.WriteString(cmd.OutOrStdout(), renderAnalysis(result))
				return err
			default:
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date YYYY-MM-DD (default: today)")
	return cmd
}

func dueDatesCmd(clock advancetax.Clock) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "due-dates [financial-year]",
		Short: "Print the installment calendar of a financial year (default: current)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fy := advancetax.FinancialYearFor(clock())
			if len(args) == 1 {
				parsed, err := advancetax.ParseFinancialYear(args[0])
				if err != nil {
					return err
				}
				fy = parsed
			}

			dates := advancetax.DueDates(fy)
			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), api.NewDueDatesResponse(fy))
			case "table":
				_, err := io.WriteString(cmd.OutOrStdout(), renderDueDates(fy, dates))
				return err
			default:
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "advtax %s (commit %s, built %s)\n", version, commit, date)
			if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
				fmt.Fprintln(cmd.OutOrStdout(), bi.Main.Path, bi.GoVersion)
			}
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
