package navtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
)

func TestBuildPreservesDeclaredOrder(t *testing.T) {
	cfg, err := config.Parse([]byte(`site_name: X
nav:
  - Home: index.md
  - Installation: installation.md
  - Guides:
      - First: guides/first.md
  - Repository: https://example.com/repo
`))
	require.NoError(t, err)

	tree, err := Build(cfg)
	require.NoError(t, err)
	require.Len(t, tree.Roots, 4)

	assert.Equal(t, KindPage, tree.Roots[0].Kind)
	assert.Equal(t, KindSection, tree.Roots[2].Kind)
	assert.Equal(t, KindLink, tree.Roots[3].Kind)

	var order []string
	require.NoError(t, tree.Walk(func(n *Node, _ int) error {
		order = append(order, n.Label)
		return nil
	}))
	assert.Equal(t, []string{"Home", "Installation", "Guides", "First", "Repository"}, order)

	pages := tree.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, "guides/first.md", pages[2].Target)
}

func TestBuildDerivesLabelsForBareEntries(t *testing.T) {
	cfg, err := config.Parse([]byte("site_name: X\nnav:\n  - getting_started.md\n"))
	require.NoError(t, err)
	tree, err := Build(cfg)
	require.NoError(t, err)
	require.Len(t, tree.Roots, 1)
	assert.Equal(t, "Getting started", tree.Roots[0].Label)
}

func TestBuildDiscoversWhenNavOmitted(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "sub"), 0o755))
	for _, f := range []string{"zeta.md", "index.md", "sub/alpha.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(docs, f), []byte("# x"), 0o644))
	}
	cfgPath := filepath.Join(dir, "docsite.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("site_name: X\n"), 0o644))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	tree, err := Build(cfg)
	require.NoError(t, err)
	var targets []string
	for _, n := range tree.Roots {
		targets = append(targets, n.Target)
	}
	assert.Equal(t, []string{"index.md", "sub/alpha.md", "zeta.md"}, targets)
}

func TestTitleForPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"index.md", "Index"},
		{"how-to.md", "How to"},
		{"demo/scripts/tutorial.py", "Tutorial"},
	}
	for _, tc := range cases {
		if got := TitleForPath(tc.in); got != tc.want {
			t.Errorf("TitleForPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
