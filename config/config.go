package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting for the chess-report service.
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	Redis         RedisConfig         `yaml:"redis"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Engine        EngineConfig        `yaml:"engine"`
	Report        ReportConfig        `yaml:"report"`
	Lichess       LichessConfig       `yaml:"lichess"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig holds the report-context cache configuration.
// An empty address disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// NATSConfig holds NATS configuration. An empty URL disables the event bus.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the API server configuration.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// EngineConfig drives how the UCI engine scores opening positions.
type EngineConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	Depth      int    `yaml:"depth"`
	MoveTimeMS int    `yaml:"move_time_ms"`
	UseDepth   bool   `yaml:"use_depth"`
	Workers    int    `yaml:"workers"`
}

// ReportConfig holds report-pipeline settings.
type ReportConfig struct {
	Timezone       string `yaml:"timezone"`
	MaxGames       int    `yaml:"max_games"`
	PreviewRows    int    `yaml:"preview_rows"`
	OpeningsPath   string `yaml:"openings_path"`
	EcoPath        string `yaml:"eco_path"`
	SnapshotPath   string `yaml:"snapshot_path"`
	QueueEnabled   bool   `yaml:"queue_enabled"`
	FallbackCutoff int    `yaml:"fallback_cutoff"`
}

// LichessConfig holds the Lichess API token.
type LichessConfig struct {
	Token string `yaml:"token"`
}

// AuthConfig holds share-token settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	ShareTTL  time.Duration `yaml:"share_ttl"`
}

// ObservabilityConfig holds configuration for observability components.
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}

// LoadConfig loads the configuration from a YAML file, falling back to
// environment variables when the file is absent. Env vars override the file.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres DSN not set (config file or DATABASE_URL)")
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LICHESS_TOKEN"); v != "" {
		cfg.Lichess.Token = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SHARE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.ShareTTL = d
		}
	}
	if v := os.Getenv("ENGINE_ENABLED"); v != "" {
		cfg.Engine.Enabled = v == "true"
	}
	if v := os.Getenv("ENGINE_PATH"); v != "" {
		cfg.Engine.Path = v
	}
	if v := os.Getenv("ENGINE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Depth = n
		}
	}
	if v := os.Getenv("ENGINE_MOVE_TIME_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MoveTimeMS = n
		}
	}
	if v := os.Getenv("ENGINE_USE_DEPTH"); v != "" {
		cfg.Engine.UseDepth = v == "true"
	}
	if v := os.Getenv("ENGINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}
	if v := os.Getenv("REPORT_TIMEZONE"); v != "" {
		cfg.Report.Timezone = v
	}
	if v := os.Getenv("REPORT_QUEUE_ENABLED"); v != "" {
		cfg.Report.QueueEnabled = v == "true"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Engine.Depth == 0 {
		cfg.Engine.Depth = 15
	}
	if cfg.Engine.MoveTimeMS == 0 {
		cfg.Engine.MoveTimeMS = 100
	}
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = 4
	}
	if cfg.Report.Timezone == "" {
		cfg.Report.Timezone = "America/Sao_Paulo"
	}
	if cfg.Report.MaxGames == 0 {
		cfg.Report.MaxGames = 1000
	}
	if cfg.Report.PreviewRows == 0 {
		cfg.Report.PreviewRows = 30
	}
	if cfg.Report.FallbackCutoff == 0 {
		cfg.Report.FallbackCutoff = 15
	}
	if cfg.Report.OpeningsPath == "" {
		cfg.Report.OpeningsPath = "data/openings.tsv"
	}
	if cfg.Report.EcoPath == "" {
		cfg.Report.EcoPath = "data/opening_ecos.csv"
	}
	if cfg.Report.SnapshotPath == "" {
		cfg.Report.SnapshotPath = "data/lichess_analysis_snapshot.json"
	}
	if cfg.Auth.ShareTTL == 0 {
		cfg.Auth.ShareTTL = 7 * 24 * time.Hour
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
}
