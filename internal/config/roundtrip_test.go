package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Round-tripping a document must preserve top-level key order, entry order
// and the scalar-vs-mapping shape of plugin, extension and nav entries.
func TestRoundTripIsIdempotent(t *testing.T) {
	cfg, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	first, err := cfg.Marshal()
	require.NoError(t, err)

	reparsed, err := Parse(first)
	require.NoError(t, err)
	second, err := reparsed.Marshal()
	require.NoError(t, err)

	require.Equal(t, string(first), string(second))
}

func TestRoundTripPreservesKeyOrder(t *testing.T) {
	// nav before plugins, site_name last: unusual but legal.
	doc := "nav:\n  - Home: index.md\nplugins:\n  - search\nsite_name: Reordered\n"
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	out, err := cfg.Marshal()
	require.NoError(t, err)

	var order []string
	var root yaml.Node
	require.NoError(t, yaml.Unmarshal(out, &root))
	doc2 := root.Content[0]
	for i := 0; i+1 < len(doc2.Content); i += 2 {
		order = append(order, doc2.Content[i].Value)
	}
	require.Equal(t, []string{"nav", "plugins", "site_name"}, order)
}

func TestRoundTripPreservesEntryShapes(t *testing.T) {
	doc := `site_name: Shapes
plugins:
  - search
  - coverage:
      page_name: coverage
      html_report_dir: htmlcov
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	out, err := cfg.Marshal()
	require.NoError(t, err)

	reparsed, err := Parse(out)
	require.NoError(t, err)
	require.Nil(t, reparsed.Plugins[0].Options, "bare entry must stay bare")
	require.NotNil(t, reparsed.Plugins[1].Options, "mapping entry must stay a mapping")

	var cov struct {
		PageName      string `yaml:"page_name"`
		HTMLReportDir string `yaml:"html_report_dir"`
	}
	require.NoError(t, reparsed.Plugins[1].DecodeOptions(&cov))
	require.Equal(t, "coverage", cov.PageName)
	require.Equal(t, "htmlcov", cov.HTMLReportDir)
}

func TestRoundTripKeepsUnknownKeys(t *testing.T) {
	doc := "site_name: X\ncustom_block:\n  answer: 42\n"
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	out, err := cfg.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	block, ok := decoded["custom_block"].(map[string]any)
	require.True(t, ok, "unknown key must survive: %s", out)
	require.Equal(t, 42, block["answer"])
}
