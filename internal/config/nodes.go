package config

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical top-level key names of the configuration document.
const (
	keySiteName        = "site_name"
	keySiteDescription = "site_description"
	keyRepoURL         = "repo_url"
	keyTheme           = "theme"
	keyExtraCSS        = "extra_css"
	keyPlugins         = "plugins"
	keyMarkdownExts    = "markdown_extensions"
	keyNav             = "nav"
	keyDocsDir         = "docs_dir"
	keySiteDir         = "site_dir"
)

// defaultKeyOrder is used when a Config was built programmatically and no
// declaration order was recorded.
var defaultKeyOrder = []string{
	keySiteName, keySiteDescription, keyRepoURL, keyTheme, keyExtraCSS,
	keyPlugins, keyMarkdownExts, keyNav, keyDocsDir, keySiteDir,
}

// UnmarshalYAML decodes the top-level mapping while recording key order and
// retaining unknown keys verbatim for round-tripping.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("configuration document must be a mapping (line %d)", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		c.keyOrder = append(c.keyOrder, key)

		var err error
		switch key {
		case keySiteName:
			err = val.Decode(&c.SiteName)
		case keySiteDescription:
			err = val.Decode(&c.SiteDescription)
		case keyRepoURL:
			err = val.Decode(&c.RepoURL)
		case keyTheme:
			err = val.Decode(&c.Theme)
		case keyExtraCSS:
			err = val.Decode(&c.ExtraCSS)
		case keyPlugins:
			err = val.Decode(&c.Plugins)
		case keyMarkdownExts:
			err = val.Decode(&c.MarkdownExtensions)
		case keyNav:
			err = val.Decode(&c.Nav)
		case keyDocsDir:
			err = val.Decode(&c.DocsDir)
		case keySiteDir:
			err = val.Decode(&c.SiteDir)
		default:
			if c.extras == nil {
				c.extras = make(map[string]*yaml.Node)
			}
			c.extras[key] = cloneNode(val)
		}
		if err != nil {
			return fmt.Errorf("invalid value for %s (line %d): %w", key, val.Line, err)
		}
	}
	return nil
}

// MarshalYAML re-emits the document in declaration order. Keys never seen
// during decode are appended in canonical order when they carry a value.
func (c *Config) MarshalYAML() (any, error) {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	order := c.keyOrder
	loaded := len(order) > 0
	if !loaded {
		order = defaultKeyOrder
	}

	for _, key := range order {
		val, present, err := c.valueNode(key, loaded)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		out.Content = append(out.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, val)
	}
	return out, nil
}

// valueNode produces the value node for a top-level key. When the config was
// loaded from a document (loaded=true) every recorded key is emitted even if
// its value is zero; a programmatically built config skips empty values.
func (c *Config) valueNode(key string, loaded bool) (*yaml.Node, bool, error) {
	encode := func(v any) (*yaml.Node, bool, error) {
		n := &yaml.Node{}
		if err := n.Encode(v); err != nil {
			return nil, false, fmt.Errorf("encode %s: %w", key, err)
		}
		return n, true, nil
	}

	switch key {
	case keySiteName:
		if !loaded && c.SiteName == "" {
			return nil, false, nil
		}
		return encode(c.SiteName)
	case keySiteDescription:
		if !loaded && c.SiteDescription == "" {
			return nil, false, nil
		}
		return encode(c.SiteDescription)
	case keyRepoURL:
		if !loaded && c.RepoURL == "" {
			return nil, false, nil
		}
		return encode(c.RepoURL)
	case keyTheme:
		if !loaded && c.Theme.IsZero() {
			return nil, false, nil
		}
		return encode(c.Theme)
	case keyExtraCSS:
		if !loaded && len(c.ExtraCSS) == 0 {
			return nil, false, nil
		}
		return encode(c.ExtraCSS)
	case keyPlugins:
		if !loaded && len(c.Plugins) == 0 {
			return nil, false, nil
		}
		return encode(c.Plugins)
	case keyMarkdownExts:
		if !loaded && len(c.MarkdownExtensions) == 0 {
			return nil, false, nil
		}
		return encode(c.MarkdownExtensions)
	case keyNav:
		if !loaded && len(c.Nav) == 0 {
			return nil, false, nil
		}
		return encode(c.Nav)
	case keyDocsDir:
		if !loaded && c.DocsDir == "" {
			return nil, false, nil
		}
		return encode(c.DocsDir)
	case keySiteDir:
		if !loaded && c.SiteDir == "" {
			return nil, false, nil
		}
		return encode(c.SiteDir)
	default:
		if n, ok := c.extras[key]; ok {
			return n, true, nil
		}
		return nil, false, nil
	}
}

// extras holds unknown top-level keys so they survive round-trips.
// Declared here (not in config.go) next to the node machinery that owns it.

// Theme selects the rendering theme. The document form is either a bare
// scalar name or a mapping with a name key plus free-form options; both
// forms round-trip unchanged.
type Theme struct {
	Name string

	raw *yaml.Node
}

// IsZero reports whether no theme was configured.
func (t Theme) IsZero() bool { return t.Name == "" && t.raw == nil }

// UnmarshalYAML accepts scalar and mapping theme declarations.
func (t *Theme) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		t.Name = node.Value
		t.raw = cloneNode(node)
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "name" {
				t.Name = node.Content[i+1].Value
			}
		}
		if t.Name == "" {
			return fmt.Errorf("theme mapping requires a name key (line %d)", node.Line)
		}
		t.raw = cloneNode(node)
		return nil
	default:
		return fmt.Errorf("theme must be a name or a mapping (line %d)", node.Line)
	}
}

// MarshalYAML emits the original node when available.
func (t Theme) MarshalYAML() (any, error) {
	if t.raw != nil {
		return t.raw, nil
	}
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "name"},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.Name},
	}}, nil
}

// Options decodes the theme's non-name options into a map. A scalar theme
// declaration yields an empty map.
func (t Theme) Options() (map[string]any, error) {
	opts := make(map[string]any)
	if t.raw == nil || t.raw.Kind != yaml.MappingNode {
		return opts, nil
	}
	for i := 0; i+1 < len(t.raw.Content); i += 2 {
		key := t.raw.Content[i].Value
		if key == "name" {
			continue
		}
		var v any
		if err := t.raw.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("theme option %s: %w", key, err)
		}
		opts[key] = v
	}
	return opts, nil
}

// PluginEntry is one element of the plugins sequence: either a bare plugin
// name or a single-key mapping of name to an options mapping.
type PluginEntry struct {
	Name string

	// Options is nil when the entry was declared as a bare name. The raw
	// node keeps nested option structure intact for round-tripping; use
	// DecodeOptions to view it through a typed schema.
	Options *yaml.Node
}

// UnmarshalYAML accepts both entry shapes.
func (p *PluginEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		p.Name = node.Value
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("plugin entry must be a single-key mapping (line %d)", node.Line)
		}
		p.Name = node.Content[0].Value
		p.Options = cloneNode(node.Content[1])
		return nil
	default:
		return fmt.Errorf("plugin entry must be a name or a single-key mapping (line %d)", node.Line)
	}
}

// MarshalYAML restores the declared shape.
func (p PluginEntry) MarshalYAML() (any, error) {
	if p.Options == nil {
		return p.Name, nil
	}
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Name},
		p.Options,
	}}, nil
}

// DecodeOptions decodes the entry's options into out. A bare entry leaves
// out untouched so callers get the schema's zero values.
func (p PluginEntry) DecodeOptions(out any) error {
	if p.Options == nil {
		return nil
	}
	if err := p.Options.Decode(out); err != nil {
		return fmt.Errorf("plugin %s: invalid options: %w", p.Name, err)
	}
	return nil
}

// ExtensionEntry is one element of the markdown_extensions sequence. Same
// two shapes as plugin entries.
type ExtensionEntry struct {
	Name    string
	Options *yaml.Node
}

func (e *ExtensionEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.Name = node.Value
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("markdown extension entry must be a single-key mapping (line %d)", node.Line)
		}
		e.Name = node.Content[0].Value
		e.Options = cloneNode(node.Content[1])
		return nil
	default:
		return fmt.Errorf("markdown extension entry must be a name or a single-key mapping (line %d)", node.Line)
	}
}

func (e ExtensionEntry) MarshalYAML() (any, error) {
	if e.Options == nil {
		return e.Name, nil
	}
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name},
		e.Options,
	}}, nil
}

// NavItem is one element of the navigation sequence: a labelled page path,
// a labelled external URL, or a labelled section containing child items.
type NavItem struct {
	Label  string
	Target string // leaf entries only

	Children []NavItem // section entries only

	bare bool // declared as a bare path without a label
}

// IsSection reports whether the item groups child items.
func (n NavItem) IsSection() bool { return len(n.Children) > 0 }

// DisplayLabel returns the label the item renders with: the declared label,
// or for bare entries one derived from the target's base name (extension
// stripped, underscores and hyphens spaced, first letter upper).
func (n NavItem) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	base := path.Base(n.Target)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	if base == "" {
		return n.Target
	}
	return strings.ToUpper(base[:1]) + base[1:]
}

// UnmarshalYAML accepts bare paths, label→target pairs and label→sequence
// sections.
func (n *NavItem) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		n.Target = node.Value
		n.bare = true
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("nav entry must be a single-key mapping (line %d)", node.Line)
		}
		n.Label = node.Content[0].Value
		val := node.Content[1]
		switch val.Kind {
		case yaml.ScalarNode:
			n.Target = val.Value
			return nil
		case yaml.SequenceNode:
			return val.Decode(&n.Children)
		default:
			return fmt.Errorf("nav entry %q must map to a path, URL or list (line %d)", n.Label, val.Line)
		}
	default:
		return fmt.Errorf("nav entry must be a path or a single-key mapping (line %d)", node.Line)
	}
}

// MarshalYAML restores the declared shape.
func (n NavItem) MarshalYAML() (any, error) {
	if n.bare {
		return n.Target, nil
	}
	val := &yaml.Node{}
	if n.IsSection() {
		if err := val.Encode(n.Children); err != nil {
			return nil, err
		}
	} else {
		val.Kind = yaml.ScalarNode
		val.Tag = "!!str"
		val.Value = n.Target
	}
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Label},
		val,
	}}, nil
}

// cloneNode deep-copies a yaml node so retained references are independent
// of the decoder's working tree.
func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	out := *n
	if len(n.Content) > 0 {
		out.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			out.Content[i] = cloneNode(child)
		}
	}
	return &out
}
