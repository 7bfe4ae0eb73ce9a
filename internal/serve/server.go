// Package serve runs the preview server: it serves the built site over
// HTTP, rebuilds on source or configuration changes and exposes build
// history and metrics endpoints.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/eventstore"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/plugins"
	"git.home.luguber.info/inful/docsite/internal/site"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Options tune the preview server.
type Options struct {
	// Addr is the HTTP listen address (default ":8000").
	Addr string
	// RebuildEvery schedules periodic rebuilds; zero disables them.
	RebuildEvery time.Duration
	// QuietWindow and MaxDelay tune change debouncing.
	QuietWindow time.Duration
	MaxDelay    time.Duration
	// StorePath overrides the build history database location.
	StorePath string
	// NATSURL enables build report publication when set.
	NATSURL     string
	NATSSubject string
}

// Server is the preview server.
type Server struct {
	cfg      *config.Config
	registry *plugins.Registry
	opts     Options

	store    eventstore.Store
	promReg  *prom.Registry
	recorder metrics.Recorder
	pub      *publisher

	mu       sync.RWMutex
	gen      *site.Generator
	last     *site.BuildReport
	building bool
}

// New wires the server from a validated configuration.
func New(cfg *config.Config, registry *plugins.Registry, opts Options) (*Server, error) {
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	storePath := opts.StorePath
	if storePath == "" {
		storePath = filepath.Join(cfg.BaseDir(), ".docsite", "builds.db")
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	store, err := eventstore.NewSQLiteStore(storePath)
	if err != nil {
		return nil, fmt.Errorf("open build store: %w", err)
	}

	pub, err := newPublisher(opts.NATSURL, opts.NATSSubject)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	promReg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(promReg)

	s := &Server{
		cfg:      cfg,
		registry: registry,
		opts:     opts,
		store:    store,
		promReg:  promReg,
		recorder: recorder,
		pub:      pub,
	}
	s.gen = site.NewGenerator(cfg, registry, "").WithRecorder(recorder)
	return s, nil
}

// Run builds once, then serves until the context ends.
func (s *Server) Run(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	defer s.pub.Close()

	if _, err := s.buildOnce(ctx); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	debounce := newDebouncer(s.opts.QuietWindow, s.opts.MaxDelay)
	w, err := newWatcher(s.cfg.ResolvedDocsDir(), s.cfg.Path(), debounce)
	if err != nil {
		return err
	}
	go debounce.Run(ctx)
	go w.Run(ctx)
	go s.rebuildLoop(ctx, debounce.Triggers())

	if s.opts.RebuildEvery > 0 {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(s.opts.RebuildEvery),
			gocron.NewTask(func() { debounce.Notify() }),
			gocron.WithName("periodic-rebuild"),
		)
		if err != nil {
			return fmt.Errorf("schedule periodic rebuild: %w", err)
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
		slog.Info("Periodic rebuild scheduled", "every", s.opts.RebuildEvery)
	}

	httpServer := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Preview server listening", "addr", s.opts.Addr, "site", s.gen.OutputDir())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// rebuildLoop rebuilds on every debounced trigger.
func (s *Server) rebuildLoop(ctx context.Context, triggers <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-triggers:
			if _, err := s.buildOnce(ctx); err != nil {
				slog.Error("Rebuild failed", "error", err)
			}
		}
	}
}

// buildOnce reloads the configuration from disk when it was loaded from a
// file, rebuilds the site and records the outcome.
func (s *Server) buildOnce(ctx context.Context) (*site.BuildReport, error) {
	s.mu.Lock()
	if s.building {
		s.mu.Unlock()
		return nil, nil
	}
	s.building = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.building = false
		s.mu.Unlock()
	}()

	if path := s.cfg.Path(); path != "" {
		fresh, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("reload configuration: %w", err)
		}
		if err := config.ValidateConfig(fresh, s.registry); err != nil {
			return nil, fmt.Errorf("configuration invalid: %w", err)
		}
		s.mu.Lock()
		s.cfg = fresh
		s.gen = site.NewGenerator(fresh, s.registry, "").WithRecorder(s.recorder)
		s.mu.Unlock()
	}

	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	report, buildErr := gen.Build(ctx)
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	s.persist(ctx, report)
	s.pub.Publish(report)
	return report, buildErr
}

func (s *Server) persist(ctx context.Context, report *site.BuildReport) {
	payload, err := json.Marshal(report)
	if err != nil {
		slog.Warn("Failed to marshal build report", "error", err)
		payload = nil
	}
	rec := eventstore.Record{
		BuildID:       report.BuildID,
		Outcome:       string(report.Outcome),
		StartTime:     report.StartTime,
		Duration:      report.Duration,
		PagesRendered: report.PagesRendered,
		PagesReused:   report.PagesReused,
		Report:        payload,
	}
	if err := s.store.Append(ctx, rec); err != nil {
		slog.Warn("Failed to persist build record", "build_id", report.BuildID, "error", err)
	}
}
