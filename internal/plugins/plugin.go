// Package plugins implements the build extensions a configuration can
// declare: search indexing, API reference generation, notebook conversion,
// citation rendering and coverage report embedding.
//
// Plugins are resolved by name from a Registry and hook the build through
// narrow optional interfaces; the generator type-asserts for each hook at
// the stage that needs it.
package plugins

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// Page is one page flowing through the build. Plugins may rewrite Markdown
// before rendering; HTML is populated by the render stage.
type Page struct {
	// Source is the nav target: a slash-separated path relative to the
	// docs directory (or a virtual path contributed by a plugin).
	Source string
	Title  string
	// OutPath is the site-relative output path, set by the generator.
	OutPath string

	Markdown []byte
	HTML     []byte
	Meta     map[string]any

	LastModified time.Time
}

// BuildContext is the slice of build state plugins operate on.
type BuildContext struct {
	Config   *config.Config
	BaseDir  string // directory of the configuration file
	DocsDir  string // resolved docs directory
	StageDir string // site output root (staging)

	// Pages holds all pages in navigation order once the load stage ran.
	Pages []*Page
}

// Plugin is a named build extension bound to its declared options.
type Plugin interface {
	Name() string
	// Validate checks the decoded options; baseDir is the configuration
	// file's directory, which option paths resolve against.
	Validate(baseDir string) error
}

// PageTransformer rewrites page markdown before rendering.
type PageTransformer interface {
	TransformPage(ctx context.Context, b *BuildContext, page *Page) error
}

// SiteHook runs after all pages are rendered, over the assembled site.
type SiteHook interface {
	OnSiteAssembled(ctx context.Context, b *BuildContext) error
}

// SourceConverter claims non-markdown nav sources and converts them to
// markdown (the notebook plugin turns scripts into pages).
type SourceConverter interface {
	CanConvert(source string) bool
	Convert(ctx context.Context, b *BuildContext, source string, raw []byte) ([]byte, error)
}

// PageProvider contributes pages that have no source file on disk (the
// coverage plugin generates its report page).
type PageProvider interface {
	// GeneratedPagePaths lists the virtual source paths, for validation.
	GeneratedPagePaths() []string
	// VirtualPages returns markdown content keyed by virtual source path.
	VirtualPages(b *BuildContext) (map[string][]byte, error)
}

// Factory builds a plugin instance from its configuration entry.
type Factory func(entry config.PluginEntry) (Plugin, error)

// Registry maps plugin names to factories. It implements
// config.PluginCatalog so validation can consult it.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with all built-in plugins registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("search", func(e config.PluginEntry) (Plugin, error) { return newSearchPlugin(e) })
	r.Register("apidoc", func(e config.PluginEntry) (Plugin, error) { return newAPIDocPlugin(e) })
	r.Register("notebook", func(e config.PluginEntry) (Plugin, error) { return newNotebookPlugin(e) })
	r.Register("bibtex", func(e config.PluginEntry) (Plugin, error) { return newBibtexPlugin(e) })
	r.Register("coverage", func(e config.PluginEntry) (Plugin, error) { return newCoveragePlugin(e) })
	return r
}

// Register adds a factory under a name, replacing any previous registration.
func (r *Registry) Register(name string, f Factory) { r.factories[name] = f }

// Known reports whether a plugin name resolves.
func (r *Registry) Known(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Resolve instantiates the plugin for a configuration entry.
func (r *Registry) Resolve(entry config.PluginEntry) (Plugin, error) {
	f, ok := r.factories[entry.Name]
	if !ok {
		return nil, fmt.Errorf("unknown plugin: %s", entry.Name)
	}
	return f(entry)
}

// ResolveAll instantiates every configured plugin in declared order.
func (r *Registry) ResolveAll(entries []config.PluginEntry) ([]Plugin, error) {
	out := make([]Plugin, 0, len(entries))
	for _, e := range entries {
		p, err := r.Resolve(e)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ValidateOptions implements config.PluginCatalog.
func (r *Registry) ValidateOptions(baseDir string, entry config.PluginEntry) error {
	p, err := r.Resolve(entry)
	if err != nil {
		return err
	}
	return p.Validate(baseDir)
}

// GeneratedPages implements config.PluginCatalog: the union of virtual page
// paths contributed by the configured plugins.
func (r *Registry) GeneratedPages(entries []config.PluginEntry) map[string]struct{} {
	pages := make(map[string]struct{})
	for _, e := range entries {
		p, err := r.Resolve(e)
		if err != nil {
			continue
		}
		if provider, ok := p.(PageProvider); ok {
			for _, path := range provider.GeneratedPagePaths() {
				pages[path] = struct{}{}
			}
		}
	}
	return pages
}
