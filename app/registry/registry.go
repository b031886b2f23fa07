package registry

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed competitors.yml
var defaultRegistry []byte

// Registry is the immutable set of tracked competitors, loaded once at startup.
type Registry struct {
	competitors       []Competitor
	byName            map[string]int
	self              int
	strategicKeywords []string
	eventKeywords     []string
}

// Load reads the registry from path, or from the built-in definition when path is empty.
func Load(path string) (*Registry, error) {
	data := defaultRegistry
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		data = fileData
	}

	registry, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid registry %s: %w", describeSource(path), err)
	}

	slog.Debug("Registry loaded", "source", describeSource(path), "competitors", len(registry.competitors), "self", registry.Self().Name)

	return registry, nil
}

// Parse builds a registry from YAML data.
func Parse(data []byte) (*Registry, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	r := &Registry{
		competitors:       config.Competitors,
		byName:            make(map[string]int, len(config.Competitors)),
		strategicKeywords: config.StrategicKeywords,
		eventKeywords:     config.EventKeywords,
	}

	for i, competitor := range config.Competitors {
		r.byName[competitor.Name] = i
		if competitor.IsSelf {
			r.self = i
		}
	}

	return r, nil
}

func (r *Registry) All() []Competitor {
	return slices.Clone(r.competitors)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.competitors))
	for i, competitor := range r.competitors {
		names[i] = competitor.Name
	}
	return names
}

func (r *Registry) Get(name string) (Competitor, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Competitor{}, false
	}
	return r.competitors[i], true
}

// Self returns the vendor's own entry.
func (r *Registry) Self() Competitor {
	return r.competitors[r.self]
}

func (r *Registry) Count() int {
	return len(r.competitors)
}

func (r *Registry) StrategicKeywords() []string {
	return slices.Clone(r.strategicKeywords)
}

func (r *Registry) EventKeywords() []string {
	return slices.Clone(r.eventKeywords)
}

// Select resolves names to competitors in the given order. The self entry is
// always included and placed first. A nil selection means every competitor,
// while an empty non-nil one means self only. Unknown names are skipped and
// duplicates collapse to their first occurrence.
func (r *Registry) Select(names []string) []Competitor {
	if names == nil {
		names = r.Names()
	}

	self := r.Self()
	selected := []Competitor{self}
	seen := map[string]bool{self.Name: true}

	for _, name := range names {
		if seen[name] {
			continue
		}
		competitor, ok := r.Get(name)
		if !ok {
			slog.Warn("Unknown competitor in selection, skipping", "competitor", name)
			continue
		}
		seen[name] = true
		selected = append(selected, competitor)
	}

	return selected
}

func validateConfig(config *Config) error {
	if len(config.Competitors) == 0 {
		return fmt.Errorf("at least one competitor is required")
	}

	seen := make(map[string]bool, len(config.Competitors))
	selfCount := 0

	for i, competitor := range config.Competitors {
		requiredFields := map[string]string{
			"name":         competitor.Name,
			"homepage URL": competitor.HomepageURL,
		}

		for fieldName, fieldValue := range requiredFields {
			if fieldValue == "" {
				return fmt.Errorf("competitor at index %d: %s is required", i, fieldName)
			}
		}

		if seen[competitor.Name] {
			return fmt.Errorf("duplicate competitor name: %s", competitor.Name)
		}
		seen[competitor.Name] = true

		for _, raw := range []string{competitor.HomepageURL, competitor.SocialProfileURL} {
			if raw == "" {
				continue
			}
			u, err := url.Parse(raw)
			if err != nil {
				return fmt.Errorf("competitor %q: invalid url: %w", competitor.Name, err)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("competitor %q: url scheme must be http or https, got %q", competitor.Name, u.Scheme)
			}
		}

		if competitor.EstimatedFollowers < 0 {
			return fmt.Errorf("competitor %q: estimated followers must be non-negative", competitor.Name)
		}

		if competitor.IsSelf {
			selfCount++
		}
	}

	if selfCount != 1 {
		return fmt.Errorf("exactly one competitor must be marked is_self, got %d", selfCount)
	}

	return nil
}

func describeSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
