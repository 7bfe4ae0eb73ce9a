package config

import "strings"

// ThemeName is a typed enumeration of bundled themes.
type ThemeName string

const (
	ThemeMaterial    ThemeName = "material"
	ThemeReadTheDocs ThemeName = "readthedocs"
)

// NormalizeThemeName canonicalizes user input, returning empty for unknown
// themes so callers can branch safely.
func NormalizeThemeName(raw string) ThemeName {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ThemeMaterial):
		return ThemeMaterial
	case string(ThemeReadTheDocs):
		return ThemeReadTheDocs
	default:
		return ""
	}
}

// ThemeType returns the normalized typed theme for the configured name.
func (c *Config) ThemeType() ThemeName { return NormalizeThemeName(c.Theme.Name) }

// TargetKind classifies a nav leaf target.
type TargetKind string

const (
	TargetPage TargetKind = "page" // local source file under docs_dir
	TargetLink TargetKind = "link" // external URL
)

// ClassifyTarget distinguishes external URLs from local page paths.
func ClassifyTarget(target string) TargetKind {
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return TargetLink
	}
	return TargetPage
}
