package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docsite/internal/plugins"
	"git.home.luguber.info/inful/docsite/internal/site"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Output directory (defaults to the configured site_dir)"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	registry := plugins.NewRegistry()
	cfg, err := loadValidated(root.Config, registry)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gen := site.NewGenerator(cfg, registry, b.Output)
	report, err := gen.Build(ctx)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	fmt.Printf("Built %q: %d pages rendered, %d reused in %s -> %s\n",
		cfg.SiteName, report.PagesRendered, report.PagesReused,
		report.Duration.Round(time.Millisecond), gen.OutputDir())
	for _, warning := range report.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	return nil
}
