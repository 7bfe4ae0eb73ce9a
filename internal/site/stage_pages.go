package site

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docsite/internal/gitinfo"
	"git.home.luguber.info/inful/docsite/internal/navtree"
	"git.home.luguber.info/inful/docsite/internal/plugins"
)

// stagePrepareOutput creates the staging directory next to the output
// directory and loads the previous build's page cache.
func stagePrepareOutput(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	stage := g.outputDir + "_stage"
	if err := os.RemoveAll(stage); err != nil {
		return fmt.Errorf("clear staging dir: %w", err)
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	bs.stageDir = stage
	bs.PluginCtx.StageDir = stage
	bs.ConfigHash = g.configHash()
	bs.PrevCache = loadCache(g.outputDir)
	bs.NextCache = &buildCache{
		ConfigHash: bs.ConfigHash,
		Pages:      make(map[string]string),
		Bodies:     make(map[string]string),
	}
	bs.reused = make(map[string]bool)
	return nil
}

// stageResolveNav builds the navigation tree and collects the virtual pages
// contributed by plugins, so the load stage can treat them like sources.
func stageResolveNav(_ context.Context, bs *BuildState) error {
	tree, err := navtree.Build(bs.PluginCtx.Config)
	if err != nil {
		return fmt.Errorf("resolve navigation: %w", err)
	}
	bs.Tree = tree

	bs.virtual = make(map[string][]byte)
	for _, p := range bs.Plugins {
		provider, ok := p.(plugins.PageProvider)
		if !ok {
			continue
		}
		pages, err := provider.VirtualPages(&bs.PluginCtx)
		if err != nil {
			return fmt.Errorf("plugin %s virtual pages: %w", p.Name(), err)
		}
		for source, content := range pages {
			bs.virtual[source] = content
		}
	}
	return nil
}

// stageLoadPages reads every page source in navigation order, converting
// non-markdown sources through the plugin that claims them. Sources whose
// fingerprint matches the previous build are marked for reuse and skip
// conversion entirely.
func stageLoadPages(ctx context.Context, bs *BuildState) error {
	for _, node := range bs.Tree.Pages() {
		source := node.Target

		raw, virtual := bs.virtual[source]
		if !virtual {
			data, err := os.ReadFile(filepath.Join(bs.PluginCtx.DocsDir, filepath.FromSlash(source)))
			if err != nil {
				return fmt.Errorf("read page source %s: %w", source, err)
			}
			raw = data
		}

		page := &plugins.Page{
			Source:  source,
			Title:   node.Label,
			OutPath: htmlPathFor(source),
		}

		fp := pageFingerprint(nil, raw)
		bs.NextCache.Pages[source] = fp
		if fp != "" && fp == bs.previousFingerprint(source) && previousOutputExists(bs, page.OutPath) {
			// Reuse needs the cached body too, so site hooks see the
			// page's own content rather than the full themed document.
			if body, ok := bs.previousBody(source); ok {
				bs.reused[source] = true
				page.HTML = body
				bs.PluginCtx.Pages = append(bs.PluginCtx.Pages, page)
				continue
			}
		}

		if !virtual && !isMarkdownSource(source) {
			converted, err := convertSource(ctx, bs, source, raw)
			if err != nil {
				return err
			}
			raw = converted
		}
		page.Markdown = raw
		bs.PluginCtx.Pages = append(bs.PluginCtx.Pages, page)
	}
	return nil
}

// stageGitInfo stamps each page with its last-commit time. Pages outside
// version control fall back to the source file's mtime; virtual pages get
// the build time.
func stageGitInfo(_ context.Context, bs *BuildState) error {
	resolver, err := gitinfo.Open(bs.PluginCtx.DocsDir)
	if err != nil {
		return newStageError(StageErrorWarning, StageGitInfo, err)
	}
	bs.Git = resolver

	now := time.Now()
	for _, page := range bs.Pages() {
		if _, virtual := bs.virtual[page.Source]; virtual {
			page.LastModified = now
			continue
		}
		abs := filepath.Join(bs.PluginCtx.DocsDir, filepath.FromSlash(page.Source))
		if when, ok := resolver.LastModified(abs); ok {
			page.LastModified = when
			continue
		}
		if info, statErr := os.Stat(abs); statErr == nil {
			page.LastModified = info.ModTime()
		} else {
			page.LastModified = now
		}
	}
	return nil
}

// convertSource finds the plugin claiming a non-markdown source.
func convertSource(ctx context.Context, bs *BuildState, source string, raw []byte) ([]byte, error) {
	for _, p := range bs.Plugins {
		conv, ok := p.(plugins.SourceConverter)
		if !ok || !conv.CanConvert(source) {
			continue
		}
		converted, err := conv.Convert(ctx, &bs.PluginCtx, source, raw)
		if err != nil {
			return nil, fmt.Errorf("plugin %s convert %s: %w", p.Name(), source, err)
		}
		return converted, nil
	}
	return nil, fmt.Errorf("no configured plugin can convert %s", source)
}

func isMarkdownSource(source string) bool {
	return strings.EqualFold(path.Ext(source), ".md")
}

// htmlPathFor maps a page source to its site-relative output path.
func htmlPathFor(source string) string {
	ext := path.Ext(source)
	if ext == "" {
		return source + ".html"
	}
	return strings.TrimSuffix(source, ext) + ".html"
}

func previousOutputExists(bs *BuildState, outPath string) bool {
	_, err := os.Stat(filepath.Join(bs.Generator.outputDir, filepath.FromSlash(outPath)))
	return err == nil
}
