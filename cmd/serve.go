package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/prstats/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve review statistics over a JSON HTTP API",
	Long: `Start an HTTP server exposing the stats pipeline and the cache:

  GET    /api/v1/stats?from=&to=
  GET    /api/v1/prs/closed
  GET    /api/v1/prs/{number}
  DELETE /api/v1/prs/{number}/reviews

By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	viper.SetDefault("port", 8080)
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func serveAddr() string {
	return fmt.Sprintf(":%d", viper.GetInt("port"))
}

func serveRun(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, s, err := newStatsService(cmd.Context(), cfg, ui)
	if err != nil {
		return err
	}

	addr := serveAddr()
	ui.Info("Serving %s stats at http://localhost%s/api/v1/stats", cfg.RepoSlug(), addr)
	return api.NewServer(svc, s, newLogger(cfg)).ListenAndServe(cmd.Context(), addr)
}
