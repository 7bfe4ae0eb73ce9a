package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeCatalog is a minimal PluginCatalog for validation tests.
type fakeCatalog struct {
	known     map[string]bool
	optionErr map[string]error
	pages     map[string]struct{}
}

func (f *fakeCatalog) Known(name string) bool { return f.known[name] }
func (f *fakeCatalog) ValidateOptions(_ string, entry PluginEntry) error {
	return f.optionErr[entry.Name]
}
func (f *fakeCatalog) GeneratedPages([]PluginEntry) map[string]struct{} { return f.pages }

func writeTestTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func loadFromTree(t *testing.T, dir, doc string) *Config {
	t.Helper()
	path := filepath.Join(dir, "docsite.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg
}

func TestValidateConfigAcceptsWellFormedDocument(t *testing.T) {
	dir := writeTestTree(t, map[string]string{
		"docs/index.md":      "# Home",
		"docs/css/extra.css": "body {}",
	})
	cfg := loadFromTree(t, dir, `site_name: Valid
extra_css:
  - css/extra.css
plugins:
  - search
nav:
  - Home: index.md
  - Repo: https://example.com/repo
`)
	catalog := &fakeCatalog{known: map[string]bool{"search": true}}
	if err := ValidateConfig(cfg, catalog); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateConfigFailures(t *testing.T) {
	dir := writeTestTree(t, map[string]string{"docs/index.md": "# Home"})
	catalog := &fakeCatalog{known: map[string]bool{"search": true, "coverage": true}}

	cases := []struct {
		name string
		doc  string
	}{
		{"missing extra_css file", "site_name: X\nextra_css: [missing.css]\nnav:\n  - Home: index.md\n"},
		{"unknown plugin", "site_name: X\nplugins: [mystery]\n"},
		{"duplicate plugin", "site_name: X\nplugins: [search, search]\n"},
		{"unknown theme", "site_name: X\ntheme: gopherdocs\n"},
		{"missing nav page", "site_name: X\nnav:\n  - Gone: gone.md\n"},
		{"duplicate nav label", "site_name: X\nnav:\n  - Home: index.md\n  - Home: index.md\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := loadFromTree(t, dir, tc.doc)
			if err := ValidateConfig(cfg, catalog); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestValidateConfigOptionSchemaErrorsPropagate(t *testing.T) {
	dir := writeTestTree(t, map[string]string{"docs/index.md": "# Home"})
	cfg := loadFromTree(t, dir, "site_name: X\nplugins:\n  - coverage:\n      page_name: cov\n")
	catalog := &fakeCatalog{
		known:     map[string]bool{"coverage": true},
		optionErr: map[string]error{"coverage": fmt.Errorf("coverage: html_report_dir not found")},
	}
	if err := ValidateConfig(cfg, catalog); err == nil {
		t.Fatal("expected option schema error to propagate")
	}
}

func TestValidateConfigAllowsGeneratedPages(t *testing.T) {
	dir := writeTestTree(t, map[string]string{"docs/index.md": "# Home"})
	cfg := loadFromTree(t, dir, `site_name: X
plugins:
  - coverage:
      page_name: coverage
nav:
  - Home: index.md
  - Coverage report: coverage.md
`)
	catalog := &fakeCatalog{
		known: map[string]bool{"coverage": true},
		pages: map[string]struct{}{"coverage.md": {}},
	}
	if err := ValidateConfig(cfg, catalog); err != nil {
		t.Fatalf("generated page should satisfy nav target: %v", err)
	}
}

func TestValidateConfigDuplicateDerivedLabels(t *testing.T) {
	dir := writeTestTree(t, map[string]string{
		"docs/a/intro.md": "# A",
		"docs/b/intro.md": "# B",
	})
	// Bare entries render under a label derived from the file name, so two
	// paths with the same base name collide.
	cfg := loadFromTree(t, dir, "site_name: X\nnav:\n  - a/intro.md\n  - b/intro.md\n")
	err := ValidateConfig(cfg, &fakeCatalog{})
	if err == nil {
		t.Fatal("expected duplicate label error for bare entries with the same base name")
	}
	if !strings.Contains(err.Error(), "duplicate label") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateConfigDuplicateLabelScopedPerLevel(t *testing.T) {
	dir := writeTestTree(t, map[string]string{
		"docs/index.md":   "# Home",
		"docs/a/index.md": "# A",
		"docs/b/index.md": "# B",
	})
	cfg := loadFromTree(t, dir, `site_name: X
nav:
  - A:
      - Overview: a/index.md
  - B:
      - Overview: b/index.md
`)
	if err := ValidateConfig(cfg, &fakeCatalog{}); err != nil {
		t.Fatalf("same label on different levels must be allowed: %v", err)
	}
}
