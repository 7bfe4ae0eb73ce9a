package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"
)

// cacheRelPath is where the page cache lives inside the generated site.
const cacheRelPath = ".docsite/cache.json"

// buildCache maps page sources to content fingerprints from the previous
// build. A page whose source fingerprint is unchanged (under the same
// configuration) is copied from the previous output instead of being
// converted and rendered again.
type buildCache struct {
	ConfigHash string            `json:"config_hash"`
	Pages      map[string]string `json:"pages"`
	// Bodies keeps each page's rendered body HTML so reused pages expose
	// the same content to site hooks as freshly rendered ones.
	Bodies map[string]string `json:"bodies"`
}

// loadCache reads the previous build's cache; any failure yields nil (cold
// cache) rather than an error.
func loadCache(outputDir string) *buildCache {
	data, err := os.ReadFile(filepath.Join(outputDir, filepath.FromSlash(cacheRelPath)))
	if err != nil {
		return nil
	}
	var c buildCache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	if c.Pages == nil {
		c.Pages = make(map[string]string)
	}
	if c.Bodies == nil {
		c.Bodies = make(map[string]string)
	}
	return &c
}

// save writes the cache into the staged site.
func (c *buildCache) save(stageDir string) error {
	path := filepath.Join(stageDir, filepath.FromSlash(cacheRelPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// pageFingerprint computes the canonical content fingerprint for a page
// source, optionally with frontmatter fields already split off.
func pageFingerprint(meta map[string]any, body []byte) string {
	frontmatter := ""
	if len(meta) > 0 {
		if serialized, err := yaml.Marshal(meta); err == nil {
			frontmatter = string(serialized)
		}
	}
	return mdfp.CalculateFingerprintFromParts(frontmatter, string(body))
}
