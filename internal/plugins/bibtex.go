package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/slug"
)

// bibtexOptions mirror the citation plugin's accepted configuration.
type bibtexOptions struct {
	BibFile    string `yaml:"bib_file"`
	CSLFile    string `yaml:"csl_file"`
	CiteInline bool   `yaml:"cite_inline"`
}

// bibtexPlugin resolves [@key] citations against a BibTeX bibliography and
// renders a references section per page. CSL styling is limited to the
// author–year form; the style file is validated for existence only.
type bibtexPlugin struct {
	opts bibtexOptions

	loaded  bool
	entries map[string]bibEntry
}

// bibEntry is one parsed bibliography record.
type bibEntry struct {
	Key    string
	Type   string
	Fields map[string]string
}

func newBibtexPlugin(entry config.PluginEntry) (*bibtexPlugin, error) {
	p := &bibtexPlugin{}
	if err := entry.DecodeOptions(&p.opts); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *bibtexPlugin) Name() string { return "bibtex" }

func (p *bibtexPlugin) Validate(baseDir string) error {
	if p.opts.BibFile == "" {
		return fmt.Errorf("bibtex: bib_file is required")
	}
	if _, err := os.Stat(resolvePath(baseDir, p.opts.BibFile)); err != nil {
		return fmt.Errorf("bibtex: bib_file not found: %s", p.opts.BibFile)
	}
	if p.opts.CSLFile != "" {
		if _, err := os.Stat(resolvePath(baseDir, p.opts.CSLFile)); err != nil {
			return fmt.Errorf("bibtex: csl_file not found: %s", p.opts.CSLFile)
		}
	}
	return nil
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var citePattern = regexp.MustCompile(`\[(@[^\[\]]+)\]`)

// TransformPage replaces citation tokens and renders the page bibliography.
func (p *bibtexPlugin) TransformPage(_ context.Context, b *BuildContext, page *Page) error {
	if !strings.Contains(string(page.Markdown), "[@") && !strings.Contains(string(page.Markdown), `\bibliography`) {
		return nil
	}
	if err := p.ensureLoaded(b.BaseDir); err != nil {
		return err
	}

	var cited []string
	seen := make(map[string]bool)

	text := citePattern.ReplaceAllStringFunc(string(page.Markdown), func(match string) string {
		keys := parseCitationKeys(match)

		// Resolve the whole group before committing any key to the
		// bibliography; a group with an unresolved key stays verbatim.
		group := make([]bibEntry, 0, len(keys))
		for _, key := range keys {
			entry, ok := p.entries[key]
			if !ok {
				slog.Warn("Unresolved citation key", "key", key, "page", page.Source)
				return match
			}
			group = append(group, entry)
		}

		rendered := make([]string, 0, len(group))
		for _, entry := range group {
			if !seen[entry.Key] {
				seen[entry.Key] = true
				cited = append(cited, entry.Key)
			}
			rendered = append(rendered, p.formatCitation(entry))
		}
		return "(" + strings.Join(rendered, "; ") + ")"
	})

	bibliography := p.formatBibliography(cited)
	if strings.Contains(text, `\bibliography`) {
		text = strings.ReplaceAll(text, `\bibliography`, bibliography)
	} else if len(cited) > 0 {
		text = text + "\n\n## References\n\n" + bibliography
	}

	page.Markdown = []byte(text)
	return nil
}

// parseCitationKeys splits "[@a; @b]" into its keys.
func parseCitationKeys(match string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(match, "["), "]")
	var keys []string
	for _, part := range strings.Split(inner, ";") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "@")
		if part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}

// formatCitation renders one author–year citation, linked to the page's
// bibliography anchor. Inline mode adds the title.
func (p *bibtexPlugin) formatCitation(entry bibEntry) string {
	label := fmt.Sprintf("%s, %s", entry.authorLabel(), entry.year())
	if p.opts.CiteInline {
		if title := entry.Fields["title"]; title != "" {
			label = fmt.Sprintf("%s, %s: *%s*", entry.authorLabel(), entry.year(), cleanBraces(title))
		}
	}
	return fmt.Sprintf("[%s](#ref-%s)", label, slug.Make(entry.Key))
}

func (p *bibtexPlugin) formatBibliography(keys []string) string {
	var b strings.Builder
	for _, key := range keys {
		entry := p.entries[key]
		fmt.Fprintf(&b, "- <a id=\"ref-%s\"></a>%s\n", slug.Make(entry.Key), entry.reference())
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e bibEntry) year() string {
	if y := e.Fields["year"]; y != "" {
		return y
	}
	return "n.d."
}

// authorLabel returns the leading author's family name, with "et al." when
// several authors are listed.
func (e bibEntry) authorLabel() string {
	author := cleanBraces(e.Fields["author"])
	if author == "" {
		return e.Key
	}
	authors := strings.Split(author, " and ")
	first := strings.TrimSpace(authors[0])
	family := first
	if idx := strings.Index(first, ","); idx >= 0 {
		family = strings.TrimSpace(first[:idx])
	} else if fields := strings.Fields(first); len(fields) > 0 {
		family = fields[len(fields)-1]
	}
	if len(authors) > 1 {
		return family + " et al."
	}
	return family
}

// reference renders a full bibliography line.
func (e bibEntry) reference() string {
	parts := []string{fmt.Sprintf("%s (%s).", cleanBraces(e.Fields["author"]), e.year())}
	if title := cleanBraces(e.Fields["title"]); title != "" {
		parts = append(parts, fmt.Sprintf("*%s*.", title))
	}
	for _, venue := range []string{"journal", "booktitle", "publisher"} {
		if v := cleanBraces(e.Fields[venue]); v != "" {
			parts = append(parts, v+".")
			break
		}
	}
	if doi := e.Fields["doi"]; doi != "" {
		parts = append(parts, fmt.Sprintf("doi:%s.", doi))
	}
	return strings.Join(parts, " ")
}

func cleanBraces(s string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(strings.TrimSpace(s))
}

func (p *bibtexPlugin) ensureLoaded(baseDir string) error {
	if p.loaded {
		return nil
	}
	p.loaded = true

	data, err := os.ReadFile(resolvePath(baseDir, p.opts.BibFile))
	if err != nil {
		return fmt.Errorf("bibtex: read bib_file: %w", err)
	}
	p.entries = parseBibTeX(string(data))
	slog.Debug("Bibliography loaded", "file", p.opts.BibFile, "entries", len(p.entries))
	return nil
}

var entryHeader = regexp.MustCompile(`@(\w+)\s*\{\s*([^,\s]+)\s*,`)

// parseBibTeX is a tolerant parser for the common entry shape:
// @type{key, field = {value}, ...}. Nested braces inside values are
// handled; @comment/@preamble blocks are skipped by the header match.
func parseBibTeX(src string) map[string]bibEntry {
	entries := make(map[string]bibEntry)
	locs := entryHeader.FindAllStringSubmatchIndex(src, -1)
	for i, loc := range locs {
		entryType := strings.ToLower(src[loc[2]:loc[3]])
		key := src[loc[4]:loc[5]]
		if entryType == "comment" || entryType == "preamble" || entryType == "string" {
			continue
		}
		end := len(src)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := src[loc[1]:end]
		entries[key] = bibEntry{Key: key, Type: entryType, Fields: parseBibFields(body)}
	}
	return entries
}

// parseBibFields scans "name = value" pairs, where value is brace-wrapped,
// quote-wrapped or bare up to the next top-level comma.
func parseBibFields(body string) map[string]string {
	fields := make(map[string]string)
	i := 0
	for i < len(body) {
		// Field name.
		start := i
		for i < len(body) && (isWordByte(body[i]) || body[i] == '-') {
			i++
		}
		name := strings.ToLower(strings.TrimSpace(body[start:i]))
		// Skip to '='.
		for i < len(body) && body[i] != '=' && body[i] != '}' {
			i++
		}
		if i >= len(body) || body[i] == '}' {
			break
		}
		i++ // consume '='
		for i < len(body) && (body[i] == ' ' || body[i] == '\t' || body[i] == '\n' || body[i] == '\r') {
			i++
		}
		if i >= len(body) {
			break
		}

		var value string
		switch body[i] {
		case '{':
			depth := 0
			vstart := i + 1
			for ; i < len(body); i++ {
				if body[i] == '{' {
					depth++
				} else if body[i] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if i < len(body) {
				value = body[vstart:i]
				i++
			}
		case '"':
			vstart := i + 1
			i++
			for i < len(body) && body[i] != '"' {
				i++
			}
			value = body[vstart:i]
			if i < len(body) {
				i++
			}
		default:
			vstart := i
			for i < len(body) && body[i] != ',' && body[i] != '\n' && body[i] != '}' {
				i++
			}
			value = strings.TrimSpace(body[vstart:i])
		}
		if name != "" {
			fields[name] = strings.TrimSpace(value)
		}
		// Skip to next field.
		for i < len(body) && body[i] != ',' {
			if body[i] == '}' {
				return fields
			}
			i++
		}
		i++ // consume ','
		for i < len(body) && (body[i] == ' ' || body[i] == '\t' || body[i] == '\n' || body[i] == '\r') {
			i++
		}
	}
	return fields
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
