package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

const (
	SourceTypePostgres = "postgres"
	SourceTypeGeoJSON  = "geojson"

	DriverPGX  = "pgx"
	DriverSQL  = "sql"
	DriverSQLX = "sqlx"
)

type format int

const (
	formatUnknown format = iota
	formatJSON
	formatYAML
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AppConfig is one timeline application: what to show and where the features come from.
type AppConfig struct {
	App      AppInfo              `json:"app" yaml:"app"`
	Source   SourceConfig         `json:"source" yaml:"source"`
	Timeline timeline.EventConfig `json:"timeline" yaml:"timeline"`
}

type AppInfo struct {
	Title string            `json:"title" yaml:"title"`
	Theme map[string]string `json:"theme,omitempty" yaml:"theme,omitempty"`
}

// SourceConfig selects and parameterizes the feature source.
// Postgres sources use Driver, DSN, Table, GeometryColumn and SRID; GeoJSON sources use Path or URL.
type SourceConfig struct {
	Type           string `json:"type" yaml:"type"`
	Driver         string `json:"driver,omitempty" yaml:"driver,omitempty"`
	DSN            string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Table          string `json:"table,omitempty" yaml:"table,omitempty"`
	GeometryColumn string `json:"geometryColumn,omitempty" yaml:"geometryColumn,omitempty"`
	SRID           int    `json:"srid,omitempty" yaml:"srid,omitempty"`
	Path           string `json:"path,omitempty" yaml:"path,omitempty"`
	URL            string `json:"url,omitempty" yaml:"url,omitempty"`
	ObjectIDField  string `json:"objectIdField,omitempty" yaml:"objectIdField,omitempty"`
}

// EffectiveDriver returns the configured driver, pgx when none is set.
func (s SourceConfig) EffectiveDriver() string {
	if s.Driver == "" {
		return DriverPGX
	}

	return s.Driver
}

// LoadAppConfig reads an app config file, JSON or YAML by extension.
// Relative GeoJSON paths are resolved against the config file's directory.
func LoadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading app config: %w", err)
	}

	var cfg AppConfig
	if err := decode(data, formatFromExtension(path), &cfg); err != nil {
		return nil, fmt.Errorf("loading app config %s: %w", path, err)
	}

	if cfg.Source.Path != "" && !filepath.IsAbs(cfg.Source.Path) {
		cfg.Source.Path = filepath.Join(filepath.Dir(path), cfg.Source.Path)
	}

	if err := validateAppConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading app config %s: %w", path, err)
	}

	return &cfg, nil
}

// Fetch loads an app config over HTTP, JSON or YAML by content type.
func Fetch(ctx context.Context, client *http.Client, url string) (*AppConfig, error) {
	var cfg AppConfig
	if err := fetchInto(ctx, client, url, &cfg); err != nil {
		return nil, fmt.Errorf("fetching app config: %w", err)
	}

	if err := validateAppConfig(&cfg); err != nil {
		return nil, fmt.Errorf("fetching app config %s: %w", url, err)
	}

	return &cfg, nil
}

// Validate checks a config assembled in code.
func (c *AppConfig) Validate() error {
	return validateAppConfig(c)
}

func validateAppConfig(cfg *AppConfig) error {
	if strings.TrimSpace(cfg.App.Title) == "" {
		return fmt.Errorf("app title is required")
	}

	if err := validateSourceConfig(&cfg.Source); err != nil {
		return err
	}

	if err := cfg.Timeline.Validate(); err != nil {
		return fmt.Errorf("timeline: %w", err)
	}

	if _, err := timeline.EventQuery(cfg.Timeline); err != nil {
		return fmt.Errorf("timeline: %w", err)
	}

	return nil
}

func validateSourceConfig(src *SourceConfig) error {
	switch src.Type {
	case SourceTypePostgres:
		if strings.TrimSpace(src.DSN) == "" {
			return fmt.Errorf("postgres source dsn is required")
		}
		if strings.TrimSpace(src.Table) == "" {
			return fmt.Errorf("postgres source table is required")
		}
		switch src.EffectiveDriver() {
		case DriverPGX, DriverSQL, DriverSQLX:
		default:
			return fmt.Errorf("unsupported postgres driver: %s", src.Driver)
		}
		if src.SRID < 0 {
			return fmt.Errorf("invalid srid: %d", src.SRID)
		}
	case SourceTypeGeoJSON:
		if (src.Path == "") == (src.URL == "") {
			return fmt.Errorf("geojson source needs exactly one of path or url")
		}
	case "":
		return fmt.Errorf("source type is required")
	default:
		return fmt.Errorf("unsupported source type: %s", src.Type)
	}

	return nil
}

func fetchInto(ctx context.Context, client *http.Client, url string, target any) error {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json, application/yaml, text/yaml")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status from %s: %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	f := formatFromContentType(resp.Header.Get("Content-Type"))
	if f == formatUnknown {
		f = formatFromExtension(url)
	}

	return decode(data, f, target)
}

// decode sniffs unknown formats: documents starting with { or [ are JSON, anything else YAML.
func decode(data []byte, f format, target any) error {
	switch f {
	case formatJSON:
		return json.Unmarshal(data, target)
	case formatYAML:
		return yaml.Unmarshal(data, target)
	default:
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			return json.Unmarshal(data, target)
		}

		return yaml.Unmarshal(data, target)
	}
}

func formatFromExtension(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON
	case ".yml", ".yaml":
		return formatYAML
	default:
		return formatUnknown
	}
}

func formatFromContentType(contentType string) format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return formatUnknown
	}

	switch mediaType {
	case "application/json", "application/geo+json":
		return formatJSON
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml", "application/yml", "text/yml":
		return formatYAML
	default:
		return formatUnknown
	}
}
