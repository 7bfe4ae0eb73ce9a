// Package markdown renders page sources to HTML through Goldmark, mapping
// configured extension identifiers onto Goldmark extensions.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// Result carries rendered HTML plus the page's frontmatter.
type Result struct {
	HTML []byte
	Meta map[string]any
}

// Renderer is a configured Goldmark instance. Safe for concurrent use.
type Renderer struct {
	md      goldmark.Markdown
	unknown []string
}

// NewRenderer builds a renderer for the configured markdown extensions.
// Unrecognized extension names are collected, not fatal; callers surface
// them as warnings.
func NewRenderer(exts []config.ExtensionEntry) *Renderer {
	opts := []goldmark.Option{
		goldmark.WithExtensions(meta.Meta),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(htmlrenderer.WithUnsafe()),
	}

	var unknown []string
	for _, e := range exts {
		opt, ok := extensionOption(e.Name)
		if !ok {
			unknown = append(unknown, e.Name)
			continue
		}
		opts = append(opts, opt)
	}

	return &Renderer{md: goldmark.New(opts...), unknown: unknown}
}

// extensionOption maps a configured extension identifier to a Goldmark
// option. Identifiers follow the conventional python-markdown names.
func extensionOption(name string) (goldmark.Option, bool) {
	switch name {
	case "attr_list":
		return goldmark.WithParserOptions(parser.WithAttribute()), true
	case "tables":
		return goldmark.WithExtensions(extension.Table), true
	case "footnotes":
		return goldmark.WithExtensions(extension.Footnote), true
	case "def_list":
		return goldmark.WithExtensions(extension.DefinitionList), true
	case "smarty", "typography":
		return goldmark.WithExtensions(extension.Typographer), true
	case "strikethrough":
		return goldmark.WithExtensions(extension.Strikethrough), true
	case "tasklist":
		return goldmark.WithExtensions(extension.TaskList), true
	case "linkify":
		return goldmark.WithExtensions(extension.Linkify), true
	default:
		return nil, false
	}
}

// Unknown returns the extension identifiers that did not resolve.
func (r *Renderer) Unknown() []string { return r.unknown }

// Render converts one markdown source to HTML, extracting frontmatter.
func (r *Renderer) Render(src []byte) (Result, error) {
	var buf bytes.Buffer
	ctx := parser.NewContext()
	if err := r.md.Convert(src, &buf, parser.WithContext(ctx)); err != nil {
		return Result{}, fmt.Errorf("render markdown: %w", err)
	}
	return Result{HTML: buf.Bytes(), Meta: meta.Get(ctx)}, nil
}
