package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "ROUTEOPT_"
	configEnvVar = "CONFIG_PATH"
)

// Loader layers defaults, an optional YAML file and the environment.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
	lookupEnv   func(string) (string, bool)
}

type LoaderOption func(*Loader)

func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.configPaths = paths }
}

func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.envPrefix = prefix }
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k:           koanf.New("."),
		configPaths: []string{"config.yaml", "config/config.yaml", "/etc/routeopt/config.yaml"},
		envPrefix:   envPrefix,
		lookupEnv:   os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns a validated Config. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	if err := l.k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path := l.findConfigFile(); path != "" {
		if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	l.applyWellKnownEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"server.port":                8080,
		"server.read_header_timeout": 5 * time.Second,
		"server.shutdown_timeout":    10 * time.Second,

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"depot.latitude":  41.0082,
		"depot.longitude": 28.9784,
		"depot.label":     "Istanbul Merkez Depo",

		"heuristic.cluster_radius_km":     2.0,
		"heuristic.max_cluster_size":      4,
		"heuristic.day_start":             "08:00",
		"heuristic.service_minutes":       15,
		"heuristic.late_recovery_minutes": 30,
		"heuristic.hours_per_step":        2,

		"solver.enabled":                  true,
		"solver.time_budget":              30 * time.Second,
		"solver.stall_iterations":         200,
		"solver.horizon_minutes":          480,
		"solver.slack_minutes":            30,
		"solver.express_deadline_minutes": 240,
		"solver.speed_kmh":                30.0,
		"solver.service_minutes":          15,
		"solver.min_packages":             2,

		"gateway.enabled":         false,
		"gateway.endpoint":        "https://routeoptimization.googleapis.com",
		"gateway.timeout":         60 * time.Second,
		"gateway.max_packages":    100,
		"gateway.rate_per_second": 1.0,
		"gateway.burst":           2,

		"hybrid.comparison_mode":         false,
		"hybrid.comparison_max_packages": 20,
		"hybrid.force_strategy":          "",

		"cache.backend": "none",
		"cache.ttl":     10 * time.Minute,

		"database.migrate":        true,
		"database.migrations_dir": "db/migrations",

		"webhook.max_attempts": 5,
		"webhook.timeout":      10 * time.Second,
		"webhook.queue_size":   256,
	}
}

func (l *Loader) findConfigFile() string {
	if p, ok := l.lookupEnv(configEnvVar); ok && p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range l.configPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return abs
		}
	}
	return ""
}

func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(key, value string) (string, any) {
		// SECTION_FIELD_NAME -> section.field_name
		k := strings.ToLower(strings.TrimPrefix(key, l.envPrefix))
		if i := strings.Index(k, "_"); i > 0 {
			return k[:i] + "." + k[i+1:], value
		}
		return k, value
	}), nil)
}

// applyWellKnownEnv honours the unprefixed variables deployments already set.
func (l *Loader) applyWellKnownEnv(cfg *Config) {
	if v, ok := l.lookupEnv("DATABASE_URL"); ok && v != "" {
		cfg.Database.URL = v
	}
	if v, ok := l.lookupEnv("REDIS_URL"); ok && v != "" {
		cfg.Redis.URL = v
	}
	if v, ok := l.lookupEnv("GOOGLE_CLOUD_PROJECT_ID"); ok && v != "" {
		cfg.Gateway.ProjectID = v
	}
	if v, ok := l.lookupEnv("WEBHOOK_MAX_ATTEMPTS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Webhook.MaxAttempts = n
		}
	}
	if v, ok := l.lookupEnv("PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func Load() (*Config, error) { return NewLoader().Load() }
