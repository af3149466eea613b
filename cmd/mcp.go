package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/prstats/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio so agents can
query review statistics. Configure with:

  {
    "mcpServers": {
      "prstats": { "command": "prstats", "args": ["mcp"] }
    }
  }

Available tools: prstats_get_stats, prstats_cached_pr,
prstats_invalidate_reviews`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(cmd *cobra.Command) error {
	// stdout carries the protocol.
	ui = ui.Progress()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, s, err := newStatsService(cmd.Context(), cfg, ui)
	if err != nil {
		return err
	}

	return mcp.NewServer(svc, s, buildVersion).ServeStdio(cmd.Context())
}
