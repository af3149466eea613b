package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/prstats/internal/report"
)

var (
	statsFrom   string
	statsTo     string
	statsFormat string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Compute review latency statistics",
	Long: `Fetch pull requests and reviews, update the local cache, and report
time to first review per pull request plus per-reviewer response times.

Dates are ISO-8601 (2024-01-01 or 2024-01-01T12:00:00Z) and bound the
pull request creation time inclusively. With only --from, the window
ends now. Timestamps without a zone are taken as UTC.`,
	Example: `  prstats stats
  prstats stats --from 2024-01-01
  prstats stats --from 2024-01-01 --to 2024-03-31 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsRun(cmd)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsFrom, "from", "", "Only PRs created on or after this date")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "Only PRs created on or before this date")
	statsCmd.Flags().StringVarP(&statsFormat, "format", "f", "table", "Output format: "+strings.Join(report.Formats, ", "))
	rootCmd.AddCommand(statsCmd)
}

func statsRun(cmd *cobra.Command) error {
	if !slices.Contains(report.Formats, statsFormat) {
		return fmt.Errorf("unknown format %q (want one of %s)", statsFormat, strings.Join(report.Formats, ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Machine-readable output owns stdout; progress moves to stderr.
	progress := ui
	if statsFormat != "table" {
		progress = ui.Progress()
	}

	svc, _, err := newStatsService(cmd.Context(), cfg, progress)
	if err != nil {
		return err
	}

	res, err := svc.GetStats(cmd.Context(), statsFrom, statsTo)
	if err != nil {
		return err
	}
	return report.Render(ui, res, statsFormat)
}
