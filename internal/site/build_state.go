package site

import (
	"git.home.luguber.info/inful/docsite/internal/gitinfo"
	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/navtree"
	"git.home.luguber.info/inful/docsite/internal/plugins"
)

// BuildState carries mutable state across stages of one build.
type BuildState struct {
	Generator *Generator
	Report    *BuildReport
	Recorder  metrics.Recorder

	// PluginCtx is the build surface exposed to plugins. Its Pages slice
	// is populated by the load stage, in navigation order.
	PluginCtx plugins.BuildContext

	Tree     *navtree.Tree
	Plugins  []plugins.Plugin
	Renderer *markdown.Renderer
	Git      *gitinfo.Resolver

	// ConfigHash invalidates the page cache when the configuration
	// changes in any way.
	ConfigHash string
	PrevCache  *buildCache
	NextCache  *buildCache

	stageDir string

	// virtual holds plugin-contributed page content keyed by source path.
	virtual map[string][]byte
	// reused marks sources whose previous output is copied verbatim.
	reused map[string]bool
}

// Pages is shorthand for the plugin context's page list.
func (bs *BuildState) Pages() []*plugins.Page { return bs.PluginCtx.Pages }

// fingerprints returns the previous build's record for a page source, or
// empty when the cache is cold or invalidated.
func (bs *BuildState) previousFingerprint(source string) string {
	if bs.PrevCache == nil || bs.PrevCache.ConfigHash != bs.ConfigHash {
		return ""
	}
	return bs.PrevCache.Pages[source]
}

// previousBody returns the page's rendered body HTML from the previous
// build, when the cache is warm and recorded one.
func (bs *BuildState) previousBody(source string) ([]byte, bool) {
	if bs.PrevCache == nil || bs.PrevCache.ConfigHash != bs.ConfigHash {
		return nil, false
	}
	body, ok := bs.PrevCache.Bodies[source]
	return []byte(body), ok
}
