package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docsite/internal/plugins"
	"git.home.luguber.info/inful/docsite/internal/serve"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr         string        `short:"a" help:"HTTP listen address" default:":8000"`
	RebuildEvery time.Duration `help:"Also rebuild periodically (0 disables)" default:"0"`
	StorePath    string        `help:"Build history database path (defaults to .docsite/builds.db)"`
	NatsURL      string        `name:"nats-url" help:"Publish build reports to this NATS server"`
	NatsSubject  string        `name:"nats-subject" help:"NATS subject for build reports" default:"docsite.builds"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	registry := plugins.NewRegistry()
	cfg, err := loadValidated(root.Config, registry)
	if err != nil {
		return err
	}

	srv, err := serve.New(cfg, registry, serve.Options{
		Addr:         s.Addr,
		RebuildEvery: s.RebuildEvery,
		StorePath:    s.StorePath,
		NATSURL:      s.NatsURL,
		NATSSubject:  s.NatsSubject,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return srv.Run(ctx)
}
