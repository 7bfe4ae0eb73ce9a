package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// searchOptions tunes the generated client-side index.
type searchOptions struct {
	// MinLength drops indexed words shorter than this (default 3).
	MinLength int `yaml:"min_search_length"`
	// IndexPath is the site-relative index location.
	IndexPath string `yaml:"index_path"`
}

// searchPlugin emits a JSON search index over the rendered page text.
type searchPlugin struct {
	opts searchOptions
}

func newSearchPlugin(entry config.PluginEntry) (*searchPlugin, error) {
	p := &searchPlugin{opts: searchOptions{MinLength: 3, IndexPath: "search/search_index.json"}}
	if err := entry.DecodeOptions(&p.opts); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *searchPlugin) Name() string { return "search" }

func (p *searchPlugin) Validate(string) error {
	if p.opts.MinLength < 1 {
		return fmt.Errorf("search: min_search_length must be positive, got %d", p.opts.MinLength)
	}
	return nil
}

// searchRecord is one indexed page.
type searchRecord struct {
	Location string `json:"location"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

// OnSiteAssembled writes the index after every page has HTML.
func (p *searchPlugin) OnSiteAssembled(_ context.Context, b *BuildContext) error {
	records := make([]searchRecord, 0, len(b.Pages))
	for _, page := range b.Pages {
		text := extractText(page.HTML)
		records = append(records, searchRecord{
			Location: page.OutPath,
			Title:    page.Title,
			Text:     filterShortWords(text, p.opts.MinLength),
		})
	}

	index := struct {
		Docs []searchRecord `json:"docs"`
	}{Docs: records}

	data, err := json.MarshalIndent(&index, "", "  ")
	if err != nil {
		return fmt.Errorf("search: marshal index: %w", err)
	}

	out := filepath.Join(b.StageDir, filepath.FromSlash(p.opts.IndexPath))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("search: create index dir: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("search: write index: %w", err)
	}
	slog.Debug("Search index written", "path", out, "pages", len(records))
	return nil
}

// extractText flattens rendered HTML to whitespace-normalized plain text.
func extractText(rendered []byte) string {
	tokenizer := html.NewTokenizer(strings.NewReader(string(rendered)))
	var parts []string
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(parts, " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
				parts = append(parts, text)
			}
		}
	}
}

func filterShortWords(text string, minLen int) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minLen {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
