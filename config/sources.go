package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one crawl source from the sources file.
// Type selects the adapter implementation; the remaining fields are
// adapter-specific settings.
type SourceConfig struct {
	Type     string `yaml:"type"`     // "kudago" | "afisha"
	Name     string `yaml:"name"`     // optional display label override
	BaseURL  string `yaml:"base_url"` // origin; adapters fall back to a default when empty
	Location string `yaml:"location"` // kudago: city slug, e.g. "spb"
	PageSize int    `yaml:"page_size"`
	MaxPages int    `yaml:"max_pages"`
}

// Sources is the parsed sources.yml registry. Order matters: adapters
// are registered (and crawled) in file order.
type Sources struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadSources reads and validates the YAML source registry at path.
func LoadSources(path string) (*Sources, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources: read %q: %w", path, err)
	}

	var s Sources
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("sources: parse %q: %w", path, err)
	}

	if len(s.Sources) == 0 {
		return nil, fmt.Errorf("sources: %q lists no sources", path)
	}
	for i, sc := range s.Sources {
		if strings.TrimSpace(sc.Type) == "" {
			return nil, fmt.Errorf("sources: entry %d has no type", i)
		}
	}
	return &s, nil
}
