package config

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry lists the configured apps, usually read from registry.yml.
type Registry struct {
	Apps []RegistryItem `json:"apps" yaml:"apps"`

	// dir is where relative item paths are resolved.
	dir string
}

// RegistryItem points at one app config, a path relative to the registry or an http(s) URL.
type RegistryItem struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// IsRemote reports whether the item's config is fetched over HTTP.
func (i RegistryItem) IsRemote() bool {
	return strings.HasPrefix(i.Path, "http://") || strings.HasPrefix(i.Path, "https://")
}

func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	if err := validateRegistry(&reg); err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	reg.dir = filepath.Dir(path)

	return &reg, nil
}

func validateRegistry(reg *Registry) error {
	if len(reg.Apps) == 0 {
		return fmt.Errorf("at least one app is required")
	}

	seen := make(map[string]struct{})
	for i, app := range reg.Apps {
		if strings.TrimSpace(app.ID) == "" {
			return fmt.Errorf("app %d id is required", i)
		}
		if strings.TrimSpace(app.Path) == "" {
			return fmt.Errorf("app %s path is required", app.ID)
		}
		if _, exists := seen[app.ID]; exists {
			return fmt.Errorf("duplicate app id: %s", app.ID)
		}
		seen[app.ID] = struct{}{}
	}

	return nil
}

// Resolve returns the app with the given id. Without an id it picks the first app sorted by name.
func (r *Registry) Resolve(appID string) (RegistryItem, error) {
	if appID == "" {
		sorted := slices.Clone(r.Apps)
		slices.SortStableFunc(sorted, func(a, b RegistryItem) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})

		return sorted[0], nil
	}

	for _, app := range r.Apps {
		if app.ID == appID {
			return app, nil
		}
	}

	return RegistryItem{}, fmt.Errorf("no configuration found for app %q", appID)
}

// LoadApp loads the item's app config from disk or over HTTP.
func (r *Registry) LoadApp(ctx context.Context, client *http.Client, item RegistryItem) (*AppConfig, error) {
	if item.IsRemote() {
		return Fetch(ctx, client, item.Path)
	}

	path := item.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, path)
	}

	return LoadAppConfig(path)
}
