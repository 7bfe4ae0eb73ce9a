package plugins

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// apidocOptions selects the source trees reference documentation is
// generated from.
type apidocOptions struct {
	SourceDirs []string `yaml:"source_dirs"`
}

// apidocPlugin expands `::: dotted.path` directives in pages into reference
// sections built from the scanned source definitions (signature plus
// docstring). The scan is a lightweight line parser, not a full language
// frontend; it covers top-level and single-indent def/class declarations.
type apidocPlugin struct {
	opts apidocOptions

	scanOnce bool
	symbols  map[string]*apiSymbol
	order    []string
}

// apiSymbol is one scanned definition.
type apiSymbol struct {
	DottedPath string
	Signature  string
	Doc        string
}

func newAPIDocPlugin(entry config.PluginEntry) (*apidocPlugin, error) {
	p := &apidocPlugin{opts: apidocOptions{SourceDirs: []string{"."}}}
	if err := entry.DecodeOptions(&p.opts); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *apidocPlugin) Name() string { return "apidoc" }

func (p *apidocPlugin) Validate(baseDir string) error {
	for _, dir := range p.opts.SourceDirs {
		resolved := dir
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(baseDir, dir)
		}
		if st, err := os.Stat(resolved); err != nil || !st.IsDir() {
			return fmt.Errorf("apidoc: source dir not found: %s", dir)
		}
	}
	return nil
}

var directivePattern = regexp.MustCompile(`^:::\s+([A-Za-z_][\w.]*)\s*$`)

// TransformPage replaces directive lines with generated reference markdown.
func (p *apidocPlugin) TransformPage(_ context.Context, b *BuildContext, page *Page) error {
	if !bytes.Contains(page.Markdown, []byte(":::")) {
		return nil
	}
	if err := p.ensureScanned(b.BaseDir); err != nil {
		return err
	}

	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(page.Markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		m := directivePattern.FindStringSubmatch(line)
		if m == nil {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		section := p.renderReference(m[1])
		if section == "" {
			slog.Warn("Unresolved apidoc directive", "identifier", m[1], "page", page.Source)
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		out.WriteString(section)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("apidoc: scan page %s: %w", page.Source, err)
	}
	page.Markdown = out.Bytes()
	return nil
}

// renderReference emits sections for the identifier and, when it names a
// module prefix, every symbol beneath it in scan order.
func (p *apidocPlugin) renderReference(identifier string) string {
	var b strings.Builder
	if sym, ok := p.symbols[identifier]; ok {
		writeSymbol(&b, sym)
		return b.String()
	}
	prefix := identifier + "."
	found := false
	for _, path := range p.order {
		if strings.HasPrefix(path, prefix) {
			writeSymbol(&b, p.symbols[path])
			found = true
		}
	}
	if !found {
		return ""
	}
	return b.String()
}

func writeSymbol(b *strings.Builder, sym *apiSymbol) {
	fmt.Fprintf(b, "### `%s`\n\n", sym.DottedPath)
	fmt.Fprintf(b, "```python\n%s\n```\n\n", sym.Signature)
	if sym.Doc != "" {
		b.WriteString(sym.Doc)
		b.WriteString("\n\n")
	}
}

func (p *apidocPlugin) ensureScanned(baseDir string) error {
	if p.scanOnce {
		return nil
	}
	p.scanOnce = true
	p.symbols = make(map[string]*apiSymbol)

	for _, dir := range p.opts.SourceDirs {
		resolved := dir
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(baseDir, dir)
		}
		if err := p.scanTree(resolved); err != nil {
			return err
		}
	}
	sort.Strings(p.order)
	slog.Debug("API reference scan complete", "symbols", len(p.symbols))
	return nil
}

// scanTree walks one source root. Module paths are dotted relative to the
// root, so each configured source dir acts as an import root.
func (p *apidocPlugin) scanTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".py") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		return p.scanFile(path, moduleForPath(rel))
	})
}

// moduleForPath turns a root-relative file path into a dotted module path.
// Package init files map to the package itself.
func moduleForPath(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, ".py")
	rel = strings.TrimSuffix(rel, "/__init__")
	return strings.ReplaceAll(rel, "/", ".")
}

var (
	defPattern   = regexp.MustCompile(`^(\s*)def\s+([A-Za-z_]\w*)\s*\((.*)`)
	classPattern = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_]\w*)\s*(\(.*\))?\s*:`)
)

func (p *apidocPlugin) scanFile(path, module string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("apidoc: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("apidoc: read %s: %w", path, err)
	}

	currentClass := ""
	for i, line := range lines {
		if m := classPattern.FindStringSubmatch(line); m != nil && m[1] == "" {
			currentClass = m[2]
			p.add(&apiSymbol{
				DottedPath: module + "." + m[2],
				Signature:  strings.TrimSpace(line),
				Doc:        docstringAfter(lines, i),
			})
			continue
		}
		if m := defPattern.FindStringSubmatch(line); m != nil {
			indent := m[1]
			name := m[2]
			switch {
			case indent == "":
				currentClass = ""
				p.add(&apiSymbol{
					DottedPath: module + "." + name,
					Signature:  strings.TrimSpace(line),
					Doc:        docstringAfter(lines, i),
				})
			case len(indent) <= 4 && currentClass != "" && !strings.HasPrefix(name, "_"):
				p.add(&apiSymbol{
					DottedPath: module + "." + currentClass + "." + name,
					Signature:  strings.TrimSpace(line),
					Doc:        docstringAfter(lines, i),
				})
			}
		}
	}
	return nil
}

func (p *apidocPlugin) add(sym *apiSymbol) {
	if _, exists := p.symbols[sym.DottedPath]; exists {
		return
	}
	p.symbols[sym.DottedPath] = sym
	p.order = append(p.order, sym.DottedPath)
}

// docstringAfter extracts a triple-quoted docstring that follows the
// declaration at index i, searching past a possibly multi-line signature.
func docstringAfter(lines []string, i int) string {
	j := i
	// Find the line closing the signature (ends with ':').
	for ; j < len(lines) && j < i+10; j++ {
		if strings.HasSuffix(strings.TrimRight(lines[j], " \t"), ":") {
			break
		}
	}
	j++
	if j >= len(lines) {
		return ""
	}
	first := strings.TrimSpace(lines[j])
	const q = `"""`
	if !strings.HasPrefix(first, q) {
		return ""
	}
	body := strings.TrimPrefix(first, q)
	if idx := strings.Index(body, q); idx >= 0 {
		return strings.TrimSpace(body[:idx])
	}
	var parts []string
	if body != "" {
		parts = append(parts, body)
	}
	for k := j + 1; k < len(lines); k++ {
		line := strings.TrimSpace(lines[k])
		if idx := strings.Index(line, q); idx >= 0 {
			if frag := strings.TrimSpace(line[:idx]); frag != "" {
				parts = append(parts, frag)
			}
			break
		}
		parts = append(parts, line)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
