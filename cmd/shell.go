package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/prstats/internal/report"
	"github.com/joescharf/prstats/internal/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive get_stats() shell",
	Long: `Start an interactive shell that accepts:

  get_stats()
  get_stats(2024-01-01)
  get_stats(2024-01-01, 2024-03-31)
  help
  exit | quit

Running bare 'prstats' is the same as 'prstats shell'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return shellRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return shellRun(cmd)
	}
}

func shellRun(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, _, err := newStatsService(cmd.Context(), cfg, ui)
	if err != nil {
		return err
	}

	run := func(ctx context.Context, from, to string) error {
		res, err := svc.GetStats(ctx, from, to)
		if err != nil {
			return err
		}
		return report.Render(ui, res, "table")
	}

	return shell.New(os.Stdin, ui, run).Run(cmd.Context())
}
