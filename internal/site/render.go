package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/navtree"
	"git.home.luguber.info/inful/docsite/internal/plugins"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// themeRenderer wraps one theme's page template.
type themeRenderer struct {
	tmpl *template.Template
}

func newThemeRenderer(theme config.ThemeName) (*themeRenderer, error) {
	name := string(theme) + ".html.tmpl"
	tmpl, err := template.ParseFS(templateFS, "templates/"+name, "templates/nav.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse theme %s: %w", theme, err)
	}
	return &themeRenderer{tmpl: tmpl}, nil
}

// pageView is the data handed to the theme template.
type pageView struct {
	SiteName        string
	SiteDescription string
	RepoURL         string

	Title   string
	Content template.HTML

	// RelRoot prefixes site-relative URLs so pages in subdirectories
	// resolve them correctly.
	RelRoot  string
	ExtraCSS []string
	Nav      []*navView

	LastModified string
}

// navView is one navigation entry as seen by the template.
type navView struct {
	Label    string
	URL      string // empty for sections
	Active   bool
	External bool
	Children []*navView
}

// renderPage produces the full HTML document for one page.
func (tr *themeRenderer) renderPage(bs *BuildState, page *plugins.Page) ([]byte, error) {
	cfg := bs.PluginCtx.Config
	view := pageView{
		SiteName:        cfg.SiteName,
		SiteDescription: cfg.SiteDescription,
		RepoURL:         cfg.RepoURL,
		Title:           page.Title,
		Content:         template.HTML(page.HTML),
		RelRoot:         relRootFor(page.OutPath),
		ExtraCSS:        cfg.ExtraCSS,
		Nav:             navViewFor(bs.Tree, page.Source, relRootFor(page.OutPath)),
	}
	if !page.LastModified.IsZero() {
		view.LastModified = page.LastModified.Format(time.DateOnly)
	}

	var buf bytes.Buffer
	if err := tr.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("execute theme template for %s: %w", page.Source, err)
	}
	return buf.Bytes(), nil
}

// relRootFor computes the ../ prefix reaching the site root from outPath.
func relRootFor(outPath string) string {
	depth := strings.Count(outPath, "/")
	return strings.Repeat("../", depth)
}

// navViewFor renders the navigation tree relative to the active page; page
// URLs carry the relRoot prefix so they resolve from any directory depth.
func navViewFor(tree *navtree.Tree, activeSource, relRoot string) []*navView {
	var convert func(nodes []*navtree.Node) []*navView
	convert = func(nodes []*navtree.Node) []*navView {
		views := make([]*navView, 0, len(nodes))
		for _, n := range nodes {
			v := &navView{Label: n.Label}
			switch n.Kind {
			case navtree.KindSection:
				v.Children = convert(n.Children)
			case navtree.KindLink:
				v.URL = n.Target
				v.External = true
			default:
				v.URL = relRoot + htmlPathFor(n.Target)
				v.Active = n.Target == activeSource
			}
			views = append(views, v)
		}
		return views
	}
	return convert(tree.Roots)
}
