package site

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/plugins"
)

const projectConfig = `site_name: WSIMOD
site_description: Simulation of the water cycle
repo_url: https://github.com/barneydobson/wsi
theme: material
extra_css:
  - css/styles.css
plugins:
  - search
  - apidoc:
      source_dirs:
        - src
  - notebook
  - bibtex:
      bib_file: docs/paper/paper.bib
  - coverage:
      page_name: coverage
      html_report_dir: htmlcov
markdown_extensions:
  - attr_list
  - tables
nav:
  - Home: index.md
  - About: paper/about.md
  - Tutorial: demo.py
  - Reference: reference.md
  - Coverage: coverage.md
  - Repository: https://github.com/barneydobson/wsi
`

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// setupProject lays out a complete documentation project and returns its
// loaded configuration.
func setupProject(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	writeProjectFile(t, root, "docsite.yml", projectConfig)
	writeProjectFile(t, root, "docs/index.md", "# Welcome\n\nA water cycle model.\n")
	writeProjectFile(t, root, "docs/paper/about.md",
		"# About\n\nThe model is described in [@dobson2022wsimod].\n")
	writeProjectFile(t, root, "docs/demo.py",
		"# %% [markdown]\n# # Tutorial\n# A quick demo.\n\n# %%\nprint(\"hello\")\n")
	writeProjectFile(t, root, "docs/reference.md", "# Reference\n\n::: wsimod.core\n")
	writeProjectFile(t, root, "docs/css/styles.css", "body { color: #222; }\n")
	writeProjectFile(t, root, "docs/paper/paper.bib", `@article{dobson2022wsimod,
  title = {Water Systems Integrated Modelling framework},
  author = {Dobson, Barnaby and Jovanovic, Tijana},
  year = {2022},
  journal = {Journal of Open Source Software}
}
`)
	writeProjectFile(t, root, "src/wsimod/core.py",
		"\"\"\"Core components.\"\"\"\n\n\ndef constants():\n    \"\"\"Return model constants.\"\"\"\n    return {}\n\n\nclass Model:\n    \"\"\"Top-level model object.\"\"\"\n\n    def run(self):\n        \"\"\"Execute a simulation.\"\"\"\n")
	writeProjectFile(t, root, "htmlcov/index.html", "<html><body>coverage 93%</body></html>")

	cfg, err := config.Load(filepath.Join(root, "docsite.yml"))
	require.NoError(t, err)
	return cfg
}

func buildProject(t *testing.T, cfg *config.Config) (*Generator, *BuildReport) {
	t.Helper()
	gen := NewGenerator(cfg, plugins.NewRegistry(), "")
	report, err := gen.Build(context.Background())
	require.NoError(t, err)
	return gen, report
}

func TestBuildFullProject(t *testing.T) {
	cfg := setupProject(t)
	gen, report := buildProject(t, cfg)

	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, 5, report.PagesRendered)
	require.Zero(t, report.PagesReused)

	out := gen.OutputDir()
	for _, rel := range []string{
		"index.html",
		"paper/about.html",
		"demo.html",
		"reference.html",
		"coverage.html",
		"coverage-report/index.html",
		"search/search_index.json",
		"css/styles.css",
	} {
		_, err := os.Stat(filepath.Join(out, filepath.FromSlash(rel)))
		require.NoError(t, err, "expected %s in output", rel)
	}

	// No staging directory left behind.
	_, err := os.Stat(out + "_stage")
	require.True(t, os.IsNotExist(err))
}

func TestBuildRendersCitations(t *testing.T) {
	cfg := setupProject(t)
	gen, _ := buildProject(t, cfg)

	data, err := os.ReadFile(filepath.Join(gen.OutputDir(), "paper", "about.html"))
	require.NoError(t, err)
	page := string(data)
	require.Contains(t, page, "Dobson et al., 2022")
	require.Contains(t, page, "References")
	require.NotContains(t, page, "[@dobson2022wsimod]")
}

func TestBuildExpandsAPIDirectives(t *testing.T) {
	cfg := setupProject(t)
	gen, _ := buildProject(t, cfg)

	data, err := os.ReadFile(filepath.Join(gen.OutputDir(), "reference.html"))
	require.NoError(t, err)
	page := string(data)
	require.Contains(t, page, "wsimod.core.Model")
	require.Contains(t, page, "Execute a simulation.")
	require.NotContains(t, page, ":::")
}

func TestBuildConvertsNotebookScripts(t *testing.T) {
	cfg := setupProject(t)
	gen, _ := buildProject(t, cfg)

	data, err := os.ReadFile(filepath.Join(gen.OutputDir(), "demo.html"))
	require.NoError(t, err)
	page := string(data)
	require.Contains(t, page, "A quick demo.")
	require.Contains(t, page, "print(&quot;hello&quot;)")
}

func TestBuildSearchIndexCoversAllPages(t *testing.T) {
	cfg := setupProject(t)
	gen, _ := buildProject(t, cfg)

	data, err := os.ReadFile(filepath.Join(gen.OutputDir(), "search", "search_index.json"))
	require.NoError(t, err)

	var index struct {
		Docs []struct {
			Location string `json:"location"`
			Title    string `json:"title"`
		} `json:"docs"`
	}
	require.NoError(t, json.Unmarshal(data, &index))
	require.Len(t, index.Docs, 5)

	locations := make([]string, 0, len(index.Docs))
	for _, d := range index.Docs {
		locations = append(locations, d.Location)
	}
	require.Contains(t, locations, "index.html")
	require.Contains(t, locations, "paper/about.html")
	require.Contains(t, locations, "coverage.html")
}

func TestBuildNavigationLinks(t *testing.T) {
	cfg := setupProject(t)
	gen, _ := buildProject(t, cfg)

	data, err := os.ReadFile(filepath.Join(gen.OutputDir(), "paper", "about.html"))
	require.NoError(t, err)
	page := string(data)

	// Links from a nested page climb back to the site root.
	require.Contains(t, page, `href="../index.html"`)
	require.Contains(t, page, `href="../coverage.html"`)
	require.Contains(t, page, `href="https://github.com/barneydobson/wsi"`)
	require.Contains(t, page, `href="../css/styles.css"`)
	require.Contains(t, page, `aria-current="page"`)
}

func TestRebuildReusesUnchangedPages(t *testing.T) {
	cfg := setupProject(t)
	gen, first := buildProject(t, cfg)
	require.Equal(t, 5, first.PagesRendered)

	_, second := buildProject(t, cfg)
	require.Zero(t, second.PagesRendered)
	require.Equal(t, 5, second.PagesReused)

	// Touching one source re-renders only that page.
	writeProjectFile(t, cfg.BaseDir(), "docs/index.md", "# Welcome\n\nUpdated intro.\n")
	_, third := buildProject(t, cfg)
	require.Equal(t, 1, third.PagesRendered)
	require.Equal(t, 4, third.PagesReused)

	data, err := os.ReadFile(filepath.Join(gen.OutputDir(), "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(data), "Updated intro.")
}

func TestRebuildSearchIndexMatchesPageBodies(t *testing.T) {
	cfg := setupProject(t)
	buildProject(t, cfg)
	gen, second := buildProject(t, cfg)
	require.Equal(t, 5, second.PagesReused)

	data, err := os.ReadFile(filepath.Join(gen.OutputDir(), "search", "search_index.json"))
	require.NoError(t, err)

	var index struct {
		Docs []struct {
			Location string `json:"location"`
			Text     string `json:"text"`
		} `json:"docs"`
	}
	require.NoError(t, json.Unmarshal(data, &index))
	require.Len(t, index.Docs, 5)

	// Reused pages index their own content, not navigation or theme text.
	for _, doc := range index.Docs {
		require.NotContains(t, doc.Text, "Repository", "menu text leaked into %s", doc.Location)
	}
	texts := make(map[string]string, len(index.Docs))
	for _, doc := range index.Docs {
		texts[doc.Location] = doc.Text
	}
	require.Contains(t, texts["index.html"], "water cycle model")
}

func TestBuildFailsWithoutCoverageReport(t *testing.T) {
	cfg := setupProject(t)
	require.NoError(t, os.RemoveAll(filepath.Join(cfg.BaseDir(), "htmlcov")))

	gen := NewGenerator(cfg, plugins.NewRegistry(), "")
	report, err := gen.Build(context.Background())
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, report.Outcome)

	// A failed build never promotes and leaves no staging directory.
	_, statErr := os.Stat(gen.OutputDir() + "_stage")
	require.True(t, os.IsNotExist(statErr))
}

func TestBuildFrontmatterTitleWins(t *testing.T) {
	cfg := setupProject(t)
	writeProjectFile(t, cfg.BaseDir(), "docs/index.md",
		"---\ntitle: Front Page\n---\n# Welcome\n")
	gen, _ := buildProject(t, cfg)

	data, err := os.ReadFile(filepath.Join(gen.OutputDir(), "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(data), "<title>Front Page - WSIMOD</title>")
}

func TestBuildCanceledContext(t *testing.T) {
	cfg := setupProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewGenerator(cfg, plugins.NewRegistry(), "")
	report, err := gen.Build(ctx)
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, report.Outcome)

	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageErrorCanceled, se.Kind)
}

func TestHTMLPathFor(t *testing.T) {
	cases := map[string]string{
		"index.md":       "index.html",
		"paper/about.md": "paper/about.html",
		"demo.py":        "demo.html",
		"noext":          "noext.html",
	}
	for in, want := range cases {
		require.Equal(t, want, htmlPathFor(in))
	}
}

func TestRelRootFor(t *testing.T) {
	require.Equal(t, "", relRootFor("index.html"))
	require.Equal(t, "../", relRootFor("paper/about.html"))
	require.Equal(t, "../../", relRootFor("a/b/c.html"))
}

func TestConfigChangeInvalidatesCache(t *testing.T) {
	cfg := setupProject(t)
	_, first := buildProject(t, cfg)
	require.Equal(t, 5, first.PagesRendered)

	cfg.SiteName = "WSIMOD v2"
	_, second := buildProject(t, cfg)
	require.Equal(t, 5, second.PagesRendered)
	require.Zero(t, second.PagesReused)
}

func TestDiscoveredNavWithoutConfigNav(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "docsite.yml", "site_name: Bare\nplugins:\n  - search\n")
	writeProjectFile(t, root, "docs/index.md", "# Home\n")
	writeProjectFile(t, root, "docs/zebra.md", "# Zebra\n")
	writeProjectFile(t, root, "docs/alpha.md", "# Alpha\n")

	cfg, err := config.Load(filepath.Join(root, "docsite.yml"))
	require.NoError(t, err)

	gen, report := buildProject(t, cfg)
	require.Equal(t, 3, report.PagesRendered)

	data, err := os.ReadFile(filepath.Join(gen.OutputDir(), "index.html"))
	require.NoError(t, err)
	page := string(data)
	// Discovered order: index first, the rest alphabetically.
	require.Less(t, strings.Index(page, `href="alpha.html"`), strings.Index(page, `href="zebra.html"`))
}
