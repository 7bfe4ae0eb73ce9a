package plugins

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// coverageOptions mirror the coverage plugin's accepted configuration.
type coverageOptions struct {
	PageName      string `yaml:"page_name"`
	HTMLReportDir string `yaml:"html_report_dir"`
}

// coveragePlugin embeds an externally produced HTML coverage report: the
// report directory is copied into the site and a generated page links into
// it. The report itself must exist at build time.
type coveragePlugin struct {
	opts coverageOptions
}

func newCoveragePlugin(entry config.PluginEntry) (*coveragePlugin, error) {
	p := &coveragePlugin{opts: coverageOptions{PageName: "coverage", HTMLReportDir: "htmlcov"}}
	if err := entry.DecodeOptions(&p.opts); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *coveragePlugin) Name() string { return "coverage" }

func (p *coveragePlugin) Validate(string) error {
	if p.opts.PageName == "" {
		return fmt.Errorf("coverage: page_name cannot be empty")
	}
	if p.opts.HTMLReportDir == "" {
		return fmt.Errorf("coverage: html_report_dir cannot be empty")
	}
	return nil
}

// GeneratedPagePaths lists the virtual page so nav validation accepts it.
func (p *coveragePlugin) GeneratedPagePaths() []string {
	return []string{p.opts.PageName + ".md"}
}

// reportSiteDir is where the copied report lands inside the site.
func (p *coveragePlugin) reportSiteDir() string { return p.opts.PageName + "-report" }

// VirtualPages contributes the report page.
func (p *coveragePlugin) VirtualPages(*BuildContext) (map[string][]byte, error) {
	body := fmt.Sprintf(`# Coverage report

<iframe src="%s/index.html" style="width:100%%; height:80vh; border:none;"></iframe>

[Open the full report](%s/index.html)
`, p.reportSiteDir(), p.reportSiteDir())
	return map[string][]byte{p.opts.PageName + ".md": []byte(body)}, nil
}

// OnSiteAssembled copies the HTML report into the staged site.
func (p *coveragePlugin) OnSiteAssembled(_ context.Context, b *BuildContext) error {
	src := resolvePath(b.BaseDir, p.opts.HTMLReportDir)
	if st, err := os.Stat(src); err != nil || !st.IsDir() {
		return fmt.Errorf("coverage: html_report_dir not found: %s", p.opts.HTMLReportDir)
	}
	dst := filepath.Join(b.StageDir, p.reportSiteDir())
	if err := copyTree(src, dst); err != nil {
		return fmt.Errorf("coverage: copy report: %w", err)
	}
	slog.Debug("Coverage report copied", "from", src, "to", dst)
	return nil
}

// copyTree recursively copies a directory.
func copyTree(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode())
}
