package config

import "github.com/tailorshop/storefront/internal/features/social"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			MaxFormBytes: 1 << 20,
		},
		Database: DatabaseConfig{
			Path: "data/storefront.db",
		},
		Page: PageConfig{
			BaseURL:      "http://localhost:8080",
			Presentation: "class",
			AppScript:    "/assets/app.js",
			Social:       append([]string(nil), social.DefaultScripts...),
			EngineURL:    "//t.p.mybuys.com/js/mybuys3.js",
			SetupURL:     "/assets/mybuys-setup.js",
		},
		Metrics: MetricsConfig{
			Capacity: 256,
			Policy:   "drop-oldest",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}
