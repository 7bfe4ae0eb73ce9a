package site

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/plugins"
)

// stageAssets copies every non-markdown file from the docs directory into
// the staged site, preserving relative paths. Stylesheets referenced by
// extra_css travel with everything else. Hidden directories are skipped.
func stageAssets(_ context.Context, bs *BuildState) error {
	docsDir := bs.PluginCtx.DocsDir
	err := filepath.WalkDir(docsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != docsDir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.EqualFold(filepath.Ext(name), ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(docsDir, path)
		if relErr != nil {
			return relErr
		}
		return copyAssetFile(path, filepath.Join(bs.stageDir, rel))
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("copy assets: %w", err)
	}
	return nil
}

func copyAssetFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// stageFinalize runs the site-level plugin hooks over the assembled pages,
// persists the page cache and promotes the staging directory into place.
func stageFinalize(ctx context.Context, bs *BuildState) error {
	for _, p := range bs.Plugins {
		hook, ok := p.(plugins.SiteHook)
		if !ok {
			continue
		}
		if err := hook.OnSiteAssembled(ctx, &bs.PluginCtx); err != nil {
			return fmt.Errorf("plugin %s site hook: %w", p.Name(), err)
		}
	}

	if err := bs.NextCache.save(bs.stageDir); err != nil {
		return newStageError(StageErrorWarning, StageFinalize, err)
	}

	return promoteStaging(bs)
}

// promoteStaging swaps the staged site into the output directory. The old
// output is moved aside first so a failed rename cannot leave a half-built
// site behind.
func promoteStaging(bs *BuildState) error {
	out := bs.Generator.outputDir
	old := out + "_old"

	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("clear previous backup: %w", err)
	}
	if _, err := os.Stat(out); err == nil {
		if err := os.Rename(out, old); err != nil {
			return fmt.Errorf("move previous output aside: %w", err)
		}
	}
	if err := os.Rename(bs.stageDir, out); err != nil {
		// Restore the previous output so callers keep a usable site.
		if _, statErr := os.Stat(old); statErr == nil {
			if restoreErr := os.Rename(old, out); restoreErr != nil {
				slog.Error("Failed to restore previous output", "path", out, "error", restoreErr)
			}
		}
		return fmt.Errorf("promote staging dir: %w", err)
	}
	bs.stageDir = ""
	if err := os.RemoveAll(old); err != nil {
		slog.Warn("Failed to remove previous output backup", "path", old, "error", err)
	}
	return nil
}
