package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// PluginCatalog lets validation consult the plugin registry without a
// package dependency from config onto plugins.
type PluginCatalog interface {
	// Known reports whether a plugin name resolves.
	Known(name string) bool
	// ValidateOptions checks an entry's options against the plugin's
	// accepted schema. baseDir is the directory of the configuration
	// file, which option paths (bibliography files, report directories)
	// resolve against.
	ValidateOptions(baseDir string, entry PluginEntry) error
	// GeneratedPages returns site-relative paths of pages the configured
	// plugins produce during the build (so nav may reference them even
	// though no source file exists).
	GeneratedPages(entries []PluginEntry) map[string]struct{}
}

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config, catalog PluginCatalog) error {
	v := &configurationValidator{config: cfg, catalog: catalog}
	return v.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config  *Config
	catalog PluginCatalog

	generated map[string]struct{}
}

// BaseDir is the directory all relative paths in the document resolve
// against: the directory of the configuration file, or the working
// directory for documents parsed from memory.
func (c *Config) BaseDir() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// ResolvedDocsDir returns the docs directory resolved against BaseDir.
func (c *Config) ResolvedDocsDir() string {
	if filepath.IsAbs(c.DocsDir) {
		return c.DocsDir
	}
	return filepath.Join(c.BaseDir(), c.DocsDir)
}

func (v *configurationValidator) validate() error {
	if err := v.validateSite(); err != nil {
		return err
	}
	if err := v.validateTheme(); err != nil {
		return err
	}
	if err := v.validatePlugins(); err != nil {
		return err
	}
	if err := v.validateExtraCSS(); err != nil {
		return err
	}
	if err := v.validateNav(); err != nil {
		return err
	}
	return nil
}

func (v *configurationValidator) validateSite() error {
	if v.config.SiteName == "" {
		return errors.New("site_name cannot be empty")
	}
	if _, err := os.Stat(v.config.ResolvedDocsDir()); err != nil {
		return fmt.Errorf("docs_dir not found: %s", v.config.DocsDir)
	}
	return nil
}

func (v *configurationValidator) validateTheme() error {
	if NormalizeThemeName(v.config.Theme.Name) == "" {
		return fmt.Errorf("unsupported theme: %s", v.config.Theme.Name)
	}
	return nil
}

func (v *configurationValidator) validatePlugins() error {
	seen := make(map[string]bool)
	baseDir := v.config.BaseDir()
	for _, entry := range v.config.Plugins {
		if entry.Name == "" {
			return errors.New("plugin name cannot be empty")
		}
		if seen[entry.Name] {
			return fmt.Errorf("duplicate plugin: %s", entry.Name)
		}
		seen[entry.Name] = true

		if v.catalog == nil {
			continue
		}
		if !v.catalog.Known(entry.Name) {
			return fmt.Errorf("unknown plugin: %s", entry.Name)
		}
		if err := v.catalog.ValidateOptions(baseDir, entry); err != nil {
			return err
		}
	}
	if v.catalog != nil {
		v.generated = v.catalog.GeneratedPages(v.config.Plugins)
	}
	return nil
}

func (v *configurationValidator) validateExtraCSS() error {
	docsDir := v.config.ResolvedDocsDir()
	for _, css := range v.config.ExtraCSS {
		if _, err := os.Stat(filepath.Join(docsDir, css)); err != nil {
			return fmt.Errorf("extra_css file not found: %s", css)
		}
	}
	return nil
}

func (v *configurationValidator) validateNav() error {
	return v.validateNavLevel(v.config.Nav, "nav")
}

// validateNavLevel checks one nav level: unique rendered labels, non-empty
// sections and resolvable leaf targets. Sections recurse. Bare entries are
// checked under the label they will render with, so two paths sharing a base
// name collide here instead of in the generated menu.
func (v *configurationValidator) validateNavLevel(items []NavItem, where string) error {
	labels := make(map[string]bool)
	for _, item := range items {
		if label := item.DisplayLabel(); label != "" {
			if labels[label] {
				return fmt.Errorf("%s: duplicate label: %s", where, label)
			}
			labels[label] = true
		}

		if item.IsSection() {
			if err := v.validateNavLevel(item.Children, where+"/"+item.Label); err != nil {
				return err
			}
			continue
		}
		if item.Target == "" {
			return fmt.Errorf("%s: entry %q has no target", where, item.Label)
		}
		if err := v.validateNavTarget(item, where); err != nil {
			return err
		}
	}
	return nil
}

func (v *configurationValidator) validateNavTarget(item NavItem, where string) error {
	if ClassifyTarget(item.Target) == TargetLink {
		return nil
	}
	if _, ok := v.generated[item.Target]; ok {
		return nil
	}
	path := filepath.Join(v.config.ResolvedDocsDir(), item.Target)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s: page not found: %s", where, item.Target)
	}
	return nil
}
