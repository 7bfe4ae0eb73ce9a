// Package commands implements the docsite CLI subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/plugins"
)

// Global carries shared state into subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docsite.yml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Build the documentation site"`
	Validate ValidateCmd `cmd:"" help:"Validate the configuration without building"`
	Init     InitCmd     `cmd:"" help:"Write a starter configuration file"`
	Nav      NavCmd      `cmd:"" help:"Print the resolved navigation tree"`
	Serve    ServeCmd    `cmd:"" help:"Serve the site with rebuild on change"`
}

// AfterApply runs after flag parsing; set up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadValidated loads the configuration and validates it against the
// plugin registry.
func loadValidated(path string, registry *plugins.Registry) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.ValidateConfig(cfg, registry); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
