package plugins

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	html := `<h1>Title</h1><p>Body <em>text</em> here.</p><script>ignored()</script>`
	got := extractText([]byte(html))
	assert.Contains(t, got, "Title")
	assert.Contains(t, got, "text")
	assert.NotContains(t, got, "ignored")
}

func TestFilterShortWords(t *testing.T) {
	assert.Equal(t, "water systems", filterShortWords("on water in systems a", 3))
}

func TestSearchIndexWritten(t *testing.T) {
	stage := t.TempDir()
	p, err := newSearchPlugin(pluginEntry(t, "  - search\n"))
	require.NoError(t, err)
	require.NoError(t, p.Validate(""))

	b := &BuildContext{
		StageDir: stage,
		Pages: []*Page{
			{Source: "index.md", Title: "Home", OutPath: "index.html", HTML: []byte("<p>Welcome to the water model.</p>")},
			{Source: "installation.md", Title: "Installation", OutPath: "installation/index.html", HTML: []byte("<p>pip install wsimod</p>")},
		},
	}
	require.NoError(t, p.OnSiteAssembled(context.Background(), b))

	data, err := os.ReadFile(filepath.Join(stage, "search", "search_index.json"))
	require.NoError(t, err)

	var index struct {
		Docs []searchRecord `json:"docs"`
	}
	require.NoError(t, json.Unmarshal(data, &index))
	require.Len(t, index.Docs, 2)
	assert.Equal(t, "Home", index.Docs[0].Title)
	assert.Contains(t, index.Docs[0].Text, "Welcome")
	// Short words fall below the default minimum length.
	assert.NotContains(t, index.Docs[0].Text, " to ")
	assert.Equal(t, "installation/index.html", index.Docs[1].Location)
}

func TestSearchValidate(t *testing.T) {
	p, err := newSearchPlugin(pluginEntry(t, "  - search:\n      min_search_length: 0\n"))
	require.NoError(t, err)
	require.Error(t, p.Validate(""))
}
