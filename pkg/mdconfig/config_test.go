package mdconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func getenvEmpty(string) string { return "" }

func TestDefaultsMatchDocumentedValues(t *testing.T) {
	cfg := Defaults()
	if cfg.Render.Indent != 2 || cfg.Render.List != "ol" {
		t.Fatalf("unexpected render defaults: %+v", cfg.Render)
	}
	if cfg.Watch.DebounceMS != 150 {
		t.Fatalf("unexpected watch default: %+v", cfg.Watch)
	}
	if cfg.Cache.Path != ".mdforge-cache.db" || !cfg.Cache.Enabled {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8420 || cfg.Server.Compression != "gzip" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
}

func TestLoadWithNoFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(dir)

	cfg, err := Load("", getenvEmpty)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Render.Indent != 2 {
		t.Fatalf("expected defaults when no config file present, got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mdforge.yaml")
	yaml := "render:\n  indent: 4\n  list: ul\ncache:\n  path: cache.db\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, getenvEmpty)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Render.Indent != 4 || cfg.Render.List != "ul" {
		t.Fatalf("expected overridden render config, got %+v", cfg.Render)
	}
	if cfg.Cache.Path != filepath.Join(dir, "cache.db") {
		t.Fatalf("expected relative cache path resolved against config dir, got %q", cfg.Cache.Path)
	}
	// unspecified sections should retain their defaults
	if cfg.Watch.DebounceMS != 150 {
		t.Fatalf("expected unspecified watch config to keep default, got %+v", cfg.Watch)
	}
}

func TestLoadMissingExplicitPathErrors(t *testing.T) {
	if _, err := Load("/no/such/mdforge.yaml", getenvEmpty); err == nil {
		t.Fatalf("expected error for missing explicit config path")
	}
}

func TestValidateRejectsBadListKind(t *testing.T) {
	cfg := Defaults()
	cfg.Render.List = "dl"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected validation error for bad list kind")
	}
}

func TestValidateRejectsBadCompression(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Compression = "brotli"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected validation error for unsupported compression")
	}
}
