package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `site_name: WSIMOD
theme:
  name: material
extra_css:
  - css/styles.css
plugins:
  - search
  - apidoc
  - notebook:
      execute: true
  - bibtex:
      bib_file: docs/paper/paper.bib
      csl_file: docs/paper/apa.csl
      cite_inline: true
  - coverage:
      page_name: coverage
      html_report_dir: htmlcov
markdown_extensions:
  - attr_list
nav:
  - Home: index.md
  - About: paper/paper.md
  - Installation: installation.md
  - Tutorials: tutorials.md
  - How-to guides: how-to.md
  - Reference: reference.md
  - Demo: demo/scripts/tutorial.py
  - Coverage report: coverage.md
  - Repository: https://example.com/example/wsimod
`

func TestParseSampleDocument(t *testing.T) {
	cfg, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "WSIMOD", cfg.SiteName)
	assert.Equal(t, "material", cfg.Theme.Name)
	assert.Equal(t, ThemeMaterial, cfg.ThemeType())
	assert.Equal(t, []string{"css/styles.css"}, cfg.ExtraCSS)

	require.Len(t, cfg.Plugins, 5)
	names := make([]string, 0, len(cfg.Plugins))
	for _, p := range cfg.Plugins {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"search", "apidoc", "notebook", "bibtex", "coverage"}, names)

	// Bare entries carry no options node; mapping entries do.
	assert.Nil(t, cfg.Plugins[0].Options)
	assert.NotNil(t, cfg.Plugins[2].Options)

	var nb struct {
		Execute bool `yaml:"execute"`
	}
	require.NoError(t, cfg.Plugins[2].DecodeOptions(&nb))
	assert.True(t, nb.Execute)

	var bib struct {
		BibFile    string `yaml:"bib_file"`
		CSLFile    string `yaml:"csl_file"`
		CiteInline bool   `yaml:"cite_inline"`
	}
	require.NoError(t, cfg.Plugins[3].DecodeOptions(&bib))
	assert.Equal(t, "docs/paper/paper.bib", bib.BibFile)
	assert.Equal(t, "docs/paper/apa.csl", bib.CSLFile)
	assert.True(t, bib.CiteInline)

	require.Len(t, cfg.MarkdownExtensions, 1)
	assert.Equal(t, "attr_list", cfg.MarkdownExtensions[0].Name)

	require.Len(t, cfg.Nav, 9)
	assert.Equal(t, "Home", cfg.Nav[0].Label)
	assert.Equal(t, "index.md", cfg.Nav[0].Target)
	assert.Equal(t, "Repository", cfg.Nav[8].Label)
	assert.Equal(t, TargetLink, ClassifyTarget(cfg.Nav[8].Target))
	assert.Equal(t, TargetPage, ClassifyTarget(cfg.Nav[0].Target))
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("site_name: Minimal\n"))
	require.NoError(t, err)
	assert.Equal(t, "material", cfg.Theme.Name)
	assert.Equal(t, "docs", cfg.DocsDir)
	assert.Equal(t, "site", cfg.SiteDir)
}

func TestParseScalarTheme(t *testing.T) {
	cfg, err := Parse([]byte("site_name: X\ntheme: readthedocs\n"))
	require.NoError(t, err)
	assert.Equal(t, ThemeReadTheDocs, cfg.ThemeType())
}

func TestThemeOptions(t *testing.T) {
	cfg, err := Parse([]byte("site_name: X\ntheme:\n  name: material\n  palette: indigo\n"))
	require.NoError(t, err)
	opts, err := cfg.Theme.Options()
	require.NoError(t, err)
	assert.Equal(t, "indigo", opts["palette"])
	_, hasName := opts["name"]
	assert.False(t, hasName)
}

func TestParseNavSection(t *testing.T) {
	doc := `site_name: X
nav:
  - Home: index.md
  - Guides:
      - First: guides/first.md
      - Second: guides/second.md
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, cfg.Nav, 2)
	require.True(t, cfg.Nav[1].IsSection())
	assert.Equal(t, "Guides", cfg.Nav[1].Label)
	require.Len(t, cfg.Nav[1].Children, 2)
	assert.Equal(t, "guides/second.md", cfg.Nav[1].Children[1].Target)
}

func TestParseRejectsMalformedEntries(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"multi-key plugin mapping", "plugins:\n  - a: {}\n    b: {}\n"},
		{"multi-key nav mapping", "nav:\n  - A: a.md\n    B: b.md\n"},
		{"nav mapping to mapping", "nav:\n  - A:\n      x: y\n"},
		{"sequence document", "- a\n- b\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.doc)); err == nil {
				t.Fatalf("expected parse error for %s", tc.name)
			}
		})
	}
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("DOCSITE_TEST_NAME", "Expanded")
	cfg, err := Parse([]byte("site_name: ${DOCSITE_TEST_NAME}\n"))
	require.NoError(t, err)
	assert.Equal(t, "Expanded", cfg.SiteName)
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, dir, cfg.BaseDir())

	out := filepath.Join(dir, "copy.yaml")
	require.NoError(t, cfg.Save(out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	reparsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.SiteName, reparsed.SiteName)
	assert.Len(t, reparsed.Plugins, len(cfg.Plugins))
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsite.yaml")
	require.NoError(t, Init(path, false))

	// Refuses to overwrite without force.
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "My Documentation", cfg.SiteName)
	require.Len(t, cfg.Plugins, 1)
	assert.Equal(t, "search", cfg.Plugins[0].Name)
}
