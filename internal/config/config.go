package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/tailorshop/storefront/internal/dialog"
	"github.com/tailorshop/storefront/internal/metrics"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nesting levels: STOREFRONT_SERVER__PORT sets server.port.
const EnvPrefix = "STOREFRONT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (STOREFRONT_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLogFormats = map[string]bool{"json": true, "console": true}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.MaxFormBytes < 0 {
		return fmt.Errorf("server.max_form_bytes must be non-negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if _, err := dialog.NewPresenter(c.Page.Presentation); err != nil {
		return fmt.Errorf("page.presentation: %w", err)
	}
	if c.Page.MyBuys && (c.Page.EngineURL == "" || c.Page.SetupURL == "") {
		return fmt.Errorf("page.mybuys needs engine_url and setup_url")
	}
	for _, p := range c.Page.ScriptAllow {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid page.script_allow pattern %q", p)
		}
	}

	if c.Metrics.Capacity <= 0 {
		return fmt.Errorf("metrics.capacity must be positive")
	}
	if _, err := metrics.ParsePolicy(c.Metrics.Policy); err != nil {
		return fmt.Errorf("metrics.policy: %w", err)
	}

	if c.Log.Format != "" && !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log.format %q: must be one of json, console", c.Log.Format)
	}

	return nil
}
