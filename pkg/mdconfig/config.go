// Package mdconfig loads the cmd/mdforge CLI's YAML configuration file.
// Grounded on config/config.go's struct-tag/Defaults() shape and
// server/config/load.go's optional-file-with-env-override resolution —
// NOT used by the core decode/encode library, which takes no
// configuration at all.
package mdconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RenderConfig holds render settings. Load fills in and validates them;
// cmd/mdforge does not pass them to the encoder or to ToTOC.
type RenderConfig struct {
	Indent int    `yaml:"indent"` // starting indentation column for encoded output
	List   string `yaml:"list"`   // "ol" or "ul": list kind for a table of contents
}

// WatchConfig controls cmd/mdforge watch.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// CacheConfig controls pkg/mdcache.
type CacheConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// ServerConfig controls pkg/mdserve.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Compression string `yaml:"compression"` // "none" or "gzip"
}

// Config is the full cmd/mdforge configuration tree.
type Config struct {
	BaseDir string       `yaml:"-"` // directory containing the config file, for resolving relative paths
	Render  RenderConfig `yaml:"render"`
	Watch   WatchConfig  `yaml:"watch"`
	Cache   CacheConfig  `yaml:"cache"`
	Server  ServerConfig `yaml:"server"`
}

// Defaults returns a Config populated with the defaults shown in SPEC_FULL.md A.3.
func Defaults() *Config {
	return &Config{
		Render: RenderConfig{Indent: 2, List: "ol"},
		Watch:  WatchConfig{DebounceMS: 150},
		Cache:  CacheConfig{Path: ".mdforge-cache.db", Enabled: true},
		Server: ServerConfig{Host: "127.0.0.1", Port: 8420, Compression: "gzip"},
	}
}

// Load reads configuration from a file, or the default search locations
// when configPath is empty: $MDFORGE_CONFIG, then ./mdforge.yaml, then
// ~/.config/mdforge/mdforge.yaml. An explicit configPath or a
// $MDFORGE_CONFIG that names a missing file is an error; otherwise a
// missing file at every location is not an error — Load returns
// Defaults() unchanged.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, err
	}
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	cfg.BaseDir = filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Cache.Path != "" && !filepath.IsAbs(cfg.Cache.Path) {
		cfg.Cache.Path = filepath.Join(cfg.BaseDir, cfg.Cache.Path)
	}
	return cfg, Validate(cfg)
}

// Validate checks the loaded values are usable.
func Validate(cfg *Config) error {
	if cfg.Render.List != "ol" && cfg.Render.List != "ul" {
		return fmt.Errorf("render.list must be ol or ul, got %q", cfg.Render.List)
	}
	if cfg.Server.Compression != "none" && cfg.Server.Compression != "gzip" {
		return fmt.Errorf("server.compression must be none or gzip, got %q", cfg.Server.Compression)
	}
	if cfg.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", cfg.Watch.DebounceMS)
	}
	return nil
}

func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("MDFORGE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("MDFORGE_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("mdforge.yaml"); err == nil {
		return "mdforge.yaml", nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "mdforge", "mdforge.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}
