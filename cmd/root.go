package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/prstats/internal/config"
	"github.com/joescharf/prstats/internal/git"
	"github.com/joescharf/prstats/internal/github"
	"github.com/joescharf/prstats/internal/logger"
	"github.com/joescharf/prstats/internal/output"
	"github.com/joescharf/prstats/internal/stats"
	"github.com/joescharf/prstats/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
)

// detectGitRepo resolves owner/repo from the working directory, replaceable in tests.
var detectGitRepo = func() (string, string, error) {
	return git.DetectRepo(git.NewClient(), ".")
}

var rootCmd = &cobra.Command{
	Use:   "prstats",
	Short: "GitHub pull request review statistics",
	Long: `prstats fetches pull requests and reviews for one GitHub repository,
caches them in a local SQLite database, and reports how long pull
requests wait for their first review and how quickly each reviewer
responds.

Closed pull requests with cached reviews are served from the cache;
open pull requests are always refreshed from GitHub.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if dataStore != nil {
		_ = dataStore.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/prstats/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "prstats"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PRSTATS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())
	bindLegacyEnv(viper.GetViper())

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every known key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "prstats")

	v.SetDefault("db_path", filepath.Join(defaultConfigDir, "prstats.db"))
	v.SetDefault("github.token", "")
	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.per_page", config.DefaultPerPage)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// bindLegacyEnv accepts the unprefixed GITHUB_* names alongside PRSTATS_*.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("github.token", "PRSTATS_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("github.owner", "PRSTATS_GITHUB_OWNER", "GITHUB_OWNER")
	_ = v.BindEnv("github.repo", "PRSTATS_GITHUB_REPO", "GITHUB_REPO")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	// Store and GitHub client are built lazily so config/version run without them.
}

// loadConfig builds the validated runtime configuration, falling back to the
// origin remote of the current directory for owner and repo.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
		owner, repo, err := detectGitRepo()
		if err == nil {
			if cfg.GitHub.Owner == "" {
				cfg.GitHub.Owner = owner
			}
			if cfg.GitHub.Repo == "" {
				cfg.GitHub.Repo = repo
			}
			ui.VerboseLog("Detected repository %s from git remote", cfg.RepoSlug())
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// newLogger returns the structured diagnostic logger. Verbose mode lowers the level to debug.
func newLogger(cfg *config.Config) *slog.Logger {
	lc := cfg.Log
	if verbose {
		lc.Level = "debug"
	}
	return logger.NewLogger(lc, ui.ErrOut)
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// newStatsService wires config, store and GitHub client into the stats
// pipeline. Progress messages go to progress.
func newStatsService(ctx context.Context, cfg *config.Config, progress *output.UI) (*stats.Service, store.Store, error) {
	s, err := getStore()
	if err != nil {
		return nil, nil, err
	}

	gh, err := github.NewClient(ctx, cfg, newLogger(cfg))
	if err != nil {
		return nil, nil, err
	}

	return stats.NewService(s, gh, progress), s, nil
}
