// Package site assembles the static site: it resolves the navigation,
// loads and converts page sources, runs the configured plugins in declared
// order and renders everything through the selected theme. Output lands in
// a staging directory that is promoted atomically on success.
package site

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/plugins"
)

// Generator builds one site from a validated configuration.
type Generator struct {
	cfg       *config.Config
	registry  *plugins.Registry
	outputDir string
	recorder  metrics.Recorder
}

// NewGenerator creates a generator writing to outputDir. An empty
// outputDir uses the configuration's site_dir resolved against the config
// file's directory.
func NewGenerator(cfg *config.Config, registry *plugins.Registry, outputDir string) *Generator {
	if outputDir == "" {
		outputDir = cfg.SiteDir
		if !filepath.IsAbs(outputDir) {
			outputDir = filepath.Join(cfg.BaseDir(), outputDir)
		}
	}
	return &Generator{cfg: cfg, registry: registry, outputDir: outputDir, recorder: metrics.Noop{}}
}

// WithRecorder attaches a metrics recorder (fluent helper).
func (g *Generator) WithRecorder(r metrics.Recorder) *Generator {
	if r != nil {
		g.recorder = r
	}
	return g
}

// OutputDir returns the final output location.
func (g *Generator) OutputDir() string { return g.outputDir }

// Build runs the full stage pipeline. The returned report is non-nil even
// on failure.
func (g *Generator) Build(ctx context.Context) (*BuildReport, error) {
	buildID := uuid.New().String()
	report := newBuildReport(buildID)

	slog.Info("Starting site build",
		"build_id", buildID,
		"site", g.cfg.SiteName,
		"output", g.outputDir)

	resolved, err := g.registry.ResolveAll(g.cfg.Plugins)
	if err != nil {
		report.recordStageError(newStageError(StageErrorFatal, StagePrepareOutput, err))
		report.finish()
		return report, err
	}

	renderer := markdown.NewRenderer(g.cfg.MarkdownExtensions)
	for _, unknown := range renderer.Unknown() {
		report.AddWarning(fmt.Sprintf("unknown markdown extension: %s", unknown))
		slog.Warn("Unknown markdown extension", "name", unknown)
	}

	bs := &BuildState{
		Generator: g,
		Report:    report,
		Recorder:  g.recorder,
		Plugins:   resolved,
		Renderer:  renderer,
		PluginCtx: plugins.BuildContext{
			Config:  g.cfg,
			BaseDir: g.cfg.BaseDir(),
			DocsDir: g.cfg.ResolvedDocsDir(),
		},
	}

	stages := []StageDef{
		{StagePrepareOutput, stagePrepareOutput},
		{StageResolveNav, stageResolveNav},
		{StageLoadPages, stageLoadPages},
		{StageGitInfo, stageGitInfo},
		{StageRunPlugins, stageRunPlugins},
		{StageRender, stageRender},
		{StageAssets, stageAssets},
		{StageFinalize, stageFinalize},
	}

	err = runStages(ctx, bs, stages)
	report.finish()
	g.recorder.ObserveBuild(report.Duration, string(report.Outcome))

	if err != nil {
		g.abortStaging(bs)
		slog.Error("Build failed", "build_id", buildID, "error", err)
		return report, err
	}

	slog.Info("Build complete",
		"build_id", buildID,
		"duration", report.Duration,
		"rendered", report.PagesRendered,
		"reused", report.PagesReused,
		"outcome", report.Outcome)
	return report, nil
}

// abortStaging removes a leftover staging directory after a failed build.
func (g *Generator) abortStaging(bs *BuildState) {
	if bs.stageDir == "" {
		return
	}
	if err := os.RemoveAll(bs.stageDir); err != nil {
		slog.Warn("Failed to remove staging directory", "path", bs.stageDir, "error", err)
	}
	bs.stageDir = ""
}

// configHash fingerprints the effective configuration so the page cache is
// invalidated by any config change.
func (g *Generator) configHash() string {
	data, err := g.cfg.Marshal()
	if err != nil {
		return fmt.Sprintf("unhashable-%d", time.Now().UnixNano())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
