package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Page.Presentation != "class" {
		t.Errorf("expected default presentation %q, got %q", "class", cfg.Page.Presentation)
	}
	if cfg.Metrics.Policy != "drop-oldest" {
		t.Errorf("expected default policy drop-oldest, got %q", cfg.Metrics.Policy)
	}
	if len(cfg.Page.Social) != 3 {
		t.Errorf("expected the three social widgets, got %v", cfg.Page.Social)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yml")

	original := DefaultConfig()
	original.Server.Port = 9090
	original.Page.Presentation = "transition"
	original.Page.Scripts = []string{"/assets/a.js", "/assets/b.js"}
	original.Page.MyBuys = true
	original.Metrics.Capacity = 32
	original.Metrics.Policy = "drop-newest"

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if loaded.Server.Port != 9090 {
		t.Errorf("port: got %d, want 9090", loaded.Server.Port)
	}
	if loaded.Page.Presentation != "transition" {
		t.Errorf("presentation: got %q", loaded.Page.Presentation)
	}
	if !loaded.Page.MyBuys {
		t.Error("mybuys flag lost")
	}
	if loaded.Metrics.Capacity != 32 || loaded.Metrics.Policy != "drop-newest" {
		t.Errorf("metrics: got %+v", loaded.Metrics)
	}
	if len(loaded.Page.Scripts) != 2 || loaded.Page.Scripts[1] != "/assets/b.js" {
		t.Errorf("scripts: got %v", loaded.Page.Scripts)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("STOREFRONT_SERVER__PORT", "7070")
	t.Setenv("STOREFRONT_METRICS__POLICY", "drop-newest")
	t.Setenv("STOREFRONT_LOG__MAX_SIZE", "50")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Server.Port != 7070 {
		t.Errorf("env override failed: got port %d, want 7070", loaded.Server.Port)
	}
	if loaded.Metrics.Policy != "drop-newest" {
		t.Errorf("env override failed: got policy %q", loaded.Metrics.Policy)
	}
	if loaded.Log.MaxSize != 50 {
		t.Errorf("env override failed: got max_size %d", loaded.Log.MaxSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty presentation means class", func(c *Config) { c.Page.Presentation = "" }, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative form limit", func(c *Config) { c.Server.MaxFormBytes = -1 }, true},
		{"no database", func(c *Config) { c.Database.Path = "" }, true},
		{"unknown presentation", func(c *Config) { c.Page.Presentation = "slide" }, true},
		{"mybuys without engine", func(c *Config) { c.Page.MyBuys = true; c.Page.EngineURL = "" }, true},
		{"script allow glob", func(c *Config) { c.Page.ScriptAllow = []string{"cdn.example.com/**"} }, false},
		{"bad script allow glob", func(c *Config) { c.Page.ScriptAllow = []string{"cdn.example.com/[js"} }, true},
		{"zero capacity", func(c *Config) { c.Metrics.Capacity = 0 }, true},
		{"unknown policy", func(c *Config) { c.Metrics.Policy = "block" }, true},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
