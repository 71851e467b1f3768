package config

// Config is the top-level storefront configuration, corresponding to storefront.yml.
type Config struct {
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Database  DatabaseConfig  `yaml:"database" koanf:"database"`
	Page      PageConfig      `yaml:"page" koanf:"page"`
	Metrics   MetricsConfig   `yaml:"metrics" koanf:"metrics"`
	Recommend RecommendConfig `yaml:"recommend" koanf:"recommend"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP backend settings.
type ServerConfig struct {
	Port         int   `yaml:"port" koanf:"port"`
	AllowAll     bool  `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	MaxFormBytes int64 `yaml:"max_form_bytes" koanf:"max_form_bytes"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// PageConfig drives both the rendered pages and the headless page runtime.
type PageConfig struct {
	// BaseURL is where probe sends its requests.
	BaseURL      string   `yaml:"base_url" koanf:"base_url"`
	Presentation string   `yaml:"presentation" koanf:"presentation"`
	AppScript    string   `yaml:"app_script" koanf:"app_script"`
	Scripts      []string `yaml:"scripts" koanf:"scripts"`
	Social       []string `yaml:"social_scripts" koanf:"social_scripts"`
	MyBuys       bool     `yaml:"mybuys" koanf:"mybuys"`
	EngineURL    string   `yaml:"engine_url" koanf:"engine_url"`
	SetupURL     string   `yaml:"setup_url" koanf:"setup_url"`
	// ScriptAllow lists "host/path" globs a script must match to be fetched.
	ScriptAllow []string `yaml:"script_allow" koanf:"script_allow"`
}

// MetricsConfig bounds the client-side metrics queue.
type MetricsConfig struct {
	Capacity int    `yaml:"capacity" koanf:"capacity"`
	Policy   string `yaml:"policy" koanf:"policy"`
	// Endpoint receives events as JSON; empty logs them instead.
	Endpoint string `yaml:"endpoint" koanf:"endpoint"`
}

// RecommendConfig points the recommendation bridge at its collector.
type RecommendConfig struct {
	BeaconEndpoint string `yaml:"beacon_endpoint" koanf:"beacon_endpoint"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level      string `yaml:"level" koanf:"level"`
	Format     string `yaml:"format" koanf:"format"`
	File       string `yaml:"file" koanf:"file"`
	MaxSize    int    `yaml:"max_size" koanf:"max_size"`
	MaxBackups int    `yaml:"max_backups" koanf:"max_backups"`
	MaxAge     int    `yaml:"max_age" koanf:"max_age"`
	Compress   bool   `yaml:"compress" koanf:"compress"`
}
