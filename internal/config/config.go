package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the in-memory form of a site configuration document.
//
// The document shape follows the common static-site layout: site metadata,
// a theme selection, stylesheet overrides, an ordered plugin list, markdown
// extensions and the navigation tree. Declaration order of plugins,
// extensions and nav entries is significant and survives a Load/Save round
// trip, as does the scalar-vs-mapping shape of individual entries.
type Config struct {
	SiteName           string
	SiteDescription    string
	RepoURL            string
	Theme              Theme
	ExtraCSS           []string
	Plugins            []PluginEntry
	MarkdownExtensions []ExtensionEntry
	Nav                []NavItem

	// DocsDir is the directory holding page sources, relative to the
	// configuration file. SiteDir receives the generated site.
	DocsDir string
	SiteDir string

	// keyOrder records top-level key declaration order for round-tripping.
	keyOrder []string
	// extras retains unknown top-level keys verbatim.
	extras map[string]*yaml.Node
	// path is the location the config was loaded from (informational).
	path string
}

// Path returns the file the configuration was loaded from, if any.
func (c *Config) Path() string { return c.path }

// Load reads and decodes a configuration document from disk.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = configPath
	return cfg, nil
}

// Parse decodes a configuration document from raw bytes. Environment
// variable references (${VAR}) in the document are expanded before decoding.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills zero values after decode.
func (c *Config) applyDefaults() {
	if c.SiteName == "" {
		c.SiteName = "Documentation"
	}
	if c.Theme.Name == "" {
		c.Theme.Name = string(ThemeMaterial)
	}
	if c.DocsDir == "" {
		c.DocsDir = "docs"
	}
	if c.SiteDir == "" {
		c.SiteDir = "site"
	}
}

// Marshal re-serializes the configuration, preserving top-level key order
// and the declared shape of plugin, extension and nav entries.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the configuration back to the given path.
func (c *Config) Save(configPath string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := []byte(`site_name: My Documentation
repo_url: https://example.com/example/project
theme:
  name: material
extra_css:
  - css/extra.css
plugins:
  - search
markdown_extensions:
  - attr_list
nav:
  - Home: index.md
`)
	if err := os.WriteFile(configPath, example, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
