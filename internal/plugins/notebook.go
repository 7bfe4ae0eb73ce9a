package plugins

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// notebookOptions controls script-to-page conversion.
type notebookOptions struct {
	// Execute runs the script through the interpreter and appends the
	// captured output to the page.
	Execute bool `yaml:"execute"`
	// Interpreter is the command used for execution.
	Interpreter string `yaml:"interpreter"`
	// Timeout bounds a single execution (duration string).
	Timeout string `yaml:"timeout"`
}

// notebookPlugin converts percent-format scripts (`# %%` cell markers)
// referenced from nav into markdown pages. Execution is delegated to an
// external interpreter; this plugin only captures its output.
type notebookPlugin struct {
	opts    notebookOptions
	timeout time.Duration
}

func newNotebookPlugin(entry config.PluginEntry) (*notebookPlugin, error) {
	p := &notebookPlugin{opts: notebookOptions{Interpreter: "python3", Timeout: "120s"}}
	if err := entry.DecodeOptions(&p.opts); err != nil {
		return nil, err
	}
	// Parsed here so every instance carries the bound, not only validated ones.
	d, err := time.ParseDuration(p.opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("notebook: invalid timeout: %s: %w", p.opts.Timeout, err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("notebook: timeout must be positive: %s", p.opts.Timeout)
	}
	p.timeout = d
	return p, nil
}

func (p *notebookPlugin) Name() string { return "notebook" }

func (p *notebookPlugin) Validate(string) error {
	if p.opts.Interpreter == "" {
		return fmt.Errorf("notebook: interpreter cannot be empty")
	}
	return nil
}

// CanConvert claims python script sources.
func (p *notebookPlugin) CanConvert(source string) bool {
	return strings.EqualFold(filepath.Ext(source), ".py")
}

// Convert renders the script's cells as markdown. Markdown cells become
// page text, code cells become fenced blocks. With execute enabled the
// script runs once and its combined output is appended.
func (p *notebookPlugin) Convert(ctx context.Context, b *BuildContext, source string, raw []byte) ([]byte, error) {
	var out bytes.Buffer
	for _, cell := range splitCells(raw) {
		if cell.markdown {
			out.WriteString(cell.text)
			out.WriteString("\n\n")
			continue
		}
		if strings.TrimSpace(cell.text) == "" {
			continue
		}
		out.WriteString("```python\n")
		out.WriteString(cell.text)
		if !strings.HasSuffix(cell.text, "\n") {
			out.WriteByte('\n')
		}
		out.WriteString("```\n\n")
	}

	if p.opts.Execute {
		output, err := p.execute(ctx, b, source)
		if err != nil {
			return nil, err
		}
		if output != "" {
			out.WriteString("## Output\n\n```\n")
			out.WriteString(output)
			if !strings.HasSuffix(output, "\n") {
				out.WriteByte('\n')
			}
			out.WriteString("```\n")
		}
	}
	return out.Bytes(), nil
}

func (p *notebookPlugin) execute(ctx context.Context, b *BuildContext, source string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	script := filepath.Join(b.DocsDir, filepath.FromSlash(source))
	cmd := exec.CommandContext(execCtx, p.opts.Interpreter, script)
	cmd.Dir = filepath.Dir(script)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	slog.Info("Executing notebook script", "source", source, "interpreter", p.opts.Interpreter)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("notebook: execute %s: %w\n%s", source, err, combined.String())
	}
	return combined.String(), nil
}

// cell is one percent-format cell.
type cell struct {
	markdown bool
	text     string
}

// splitCells parses percent-format cell markers. Content before the first
// marker forms an implicit code cell; `# %% [markdown]` cells hold
// comment-prefixed markdown text.
func splitCells(raw []byte) []cell {
	var cells []cell
	current := cell{}
	var lines []string

	flush := func() {
		text := strings.Join(lines, "\n")
		if current.markdown {
			text = stripCommentPrefix(text)
		}
		if strings.TrimSpace(text) != "" {
			current.text = text
			cells = append(cells, current)
		}
		lines = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# %%") || strings.HasPrefix(trimmed, "#%%") {
			flush()
			current = cell{markdown: strings.Contains(trimmed, "[markdown]")}
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return cells
}

// stripCommentPrefix removes the leading `# ` from each markdown cell line.
func stripCommentPrefix(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "#":
			out = append(out, "")
		case strings.HasPrefix(trimmed, "# "):
			out = append(out, strings.TrimPrefix(trimmed, "# "))
		default:
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
