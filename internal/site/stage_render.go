package site

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/plugins"
)

// stageRunPlugins applies every page-transforming plugin, in declared
// order, to every page that will be rendered this build.
func stageRunPlugins(ctx context.Context, bs *BuildState) error {
	for _, p := range bs.Plugins {
		transformer, ok := p.(plugins.PageTransformer)
		if !ok {
			continue
		}
		for _, page := range bs.Pages() {
			if bs.reused[page.Source] {
				continue
			}
			if err := transformer.TransformPage(ctx, &bs.PluginCtx, page); err != nil {
				return fmt.Errorf("plugin %s on %s: %w", p.Name(), page.Source, err)
			}
		}
	}
	return nil
}

// stageRender converts page markdown to HTML and writes the themed
// documents into the staging directory. Pages marked for reuse are copied
// from the previous output instead.
func stageRender(_ context.Context, bs *BuildState) error {
	theme := bs.PluginCtx.Config.ThemeType()
	if theme == "" {
		theme = config.ThemeMaterial
	}
	tr, err := newThemeRenderer(theme)
	if err != nil {
		return err
	}

	for _, page := range bs.Pages() {
		dest := filepath.Join(bs.stageDir, filepath.FromSlash(page.OutPath))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("create page dir: %w", err)
		}

		if bs.reused[page.Source] {
			// The load stage restored page.HTML from the cached body;
			// the finished document is copied from the previous output.
			prev := filepath.Join(bs.Generator.outputDir, filepath.FromSlash(page.OutPath))
			data, readErr := os.ReadFile(prev)
			if readErr != nil {
				return fmt.Errorf("reuse %s: %w", page.Source, readErr)
			}
			if err := os.WriteFile(dest, data, 0o644); err != nil {
				return fmt.Errorf("write reused page %s: %w", page.OutPath, err)
			}
			bs.NextCache.Bodies[page.Source] = string(page.HTML)
			bs.Report.PagesReused++
			slog.Debug("Page reused from previous build", "source", page.Source)
			continue
		}

		res, renderErr := bs.Renderer.Render(page.Markdown)
		if renderErr != nil {
			return fmt.Errorf("render %s: %w", page.Source, renderErr)
		}
		page.HTML = res.HTML
		page.Meta = res.Meta
		bs.NextCache.Bodies[page.Source] = string(res.HTML)
		if title, ok := res.Meta["title"].(string); ok && title != "" {
			page.Title = title
		}

		doc, docErr := tr.renderPage(bs, page)
		if docErr != nil {
			return docErr
		}
		if err := os.WriteFile(dest, doc, 0o644); err != nil {
			return fmt.Errorf("write page %s: %w", page.OutPath, err)
		}
		bs.Report.PagesRendered++
	}
	return nil
}
