// Package config holds the settings every component is constructed with.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/joescharf/prstats/internal/logger"
)

// DefaultPerPage is the page size requested from the GitHub API.
const DefaultPerPage = 100

// GitHub holds the remote repository and credential.
type GitHub struct {
	Token   string `mapstructure:"token"`
	Owner   string `mapstructure:"owner"`
	Repo    string `mapstructure:"repo"`
	BaseURL string `mapstructure:"base_url"`
	PerPage int    `mapstructure:"per_page"`
}

// Config is loaded once at startup and passed to component constructors.
type Config struct {
	GitHub GitHub        `mapstructure:"github"`
	DBPath string        `mapstructure:"db_path"`
	Log    logger.Config `mapstructure:"log"`
}

// FromViper builds a Config from the given viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.GitHub.Owner = strings.TrimSpace(cfg.GitHub.Owner)
	cfg.GitHub.Repo = strings.TrimSpace(cfg.GitHub.Repo)
	if cfg.GitHub.PerPage <= 0 {
		cfg.GitHub.PerPage = DefaultPerPage
	}
	return &cfg, nil
}

// Validate reports every missing setting the stats pipeline needs.
func (c *Config) Validate() error {
	var errs []error
	if c.GitHub.Token == "" {
		errs = append(errs, errors.New("github.token is not set (PRSTATS_GITHUB_TOKEN or GITHUB_TOKEN)"))
	}
	if c.GitHub.Owner == "" {
		errs = append(errs, errors.New("github.owner is not set (PRSTATS_GITHUB_OWNER or GITHUB_OWNER)"))
	}
	if c.GitHub.Repo == "" {
		errs = append(errs, errors.New("github.repo is not set (PRSTATS_GITHUB_REPO or GITHUB_REPO)"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is not set"))
	}
	return errors.Join(errs...)
}

// RepoSlug returns "owner/repo".
func (c *Config) RepoSlug() string {
	return c.GitHub.Owner + "/" + c.GitHub.Repo
}
