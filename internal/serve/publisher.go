package serve

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docsite/internal/site"
)

// publisher emits build reports on a NATS subject so external tooling can
// react to site builds. It is optional; a nil publisher is a no-op.
type publisher struct {
	conn    *nats.Conn
	subject string
}

func newPublisher(url, subject string) (*publisher, error) {
	if url == "" {
		return nil, nil
	}
	if subject == "" {
		subject = "docsite.builds"
	}
	conn, err := nats.Connect(url, nats.Name("docsite"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("Build event publication enabled", "url", url, "subject", subject)
	return &publisher{conn: conn, subject: subject}, nil
}

// Publish sends one build report. Failures are logged, not fatal; a build
// is not invalidated by a broken event bus.
func (p *publisher) Publish(report *site.BuildReport) {
	if p == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		slog.Warn("Failed to marshal build report", "error", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		slog.Warn("Failed to publish build report", "subject", p.subject, "error", err)
	}
}

func (p *publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}
