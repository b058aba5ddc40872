// Package config holds the typed service configuration and its koanf loader.
package config

import (
	"fmt"
	"strings"
	"time"

	"routeopt/internal/model"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Depot     DepotConfig     `koanf:"depot"`
	Heuristic HeuristicConfig `koanf:"heuristic"`
	Solver    SolverConfig    `koanf:"solver"`
	Gateway   GatewayConfig   `koanf:"gateway"`
	Hybrid    HybridConfig    `koanf:"hybrid"`
	Cache     CacheConfig     `koanf:"cache"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Webhook   WebhookConfig   `koanf:"webhook"`
}

type ServerConfig struct {
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Output     string `koanf:"output"`
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`
	Compress   bool   `koanf:"compress"`
}

// DepotConfig is the depot used when a request does not name one.
type DepotConfig struct {
	Latitude  float64 `koanf:"latitude"`
	Longitude float64 `koanf:"longitude"`
	Label     string  `koanf:"label"`
}

type HeuristicConfig struct {
	ClusterRadiusKm     float64 `koanf:"cluster_radius_km"`
	MaxClusterSize      int     `koanf:"max_cluster_size"`
	DayStart            string  `koanf:"day_start"` // HH:MM
	ServiceMinutes      int     `koanf:"service_minutes"`
	LateRecoveryMinutes int     `koanf:"late_recovery_minutes"`
	HoursPerStep        int     `koanf:"hours_per_step"`
}

type SolverConfig struct {
	Enabled                bool          `koanf:"enabled"`
	TimeBudget             time.Duration `koanf:"time_budget"`
	StallIterations        int           `koanf:"stall_iterations"`
	HorizonMinutes         int           `koanf:"horizon_minutes"`
	SlackMinutes           int           `koanf:"slack_minutes"`
	ExpressDeadlineMinutes int           `koanf:"express_deadline_minutes"`
	SpeedKmh               float64       `koanf:"speed_kmh"`
	ServiceMinutes         int           `koanf:"service_minutes"`
	MinPackages            int           `koanf:"min_packages"`
}

type GatewayConfig struct {
	Enabled         bool          `koanf:"enabled"`
	ProjectID       string        `koanf:"project_id"`
	CredentialsFile string        `koanf:"credentials_file"`
	Endpoint        string        `koanf:"endpoint"`
	Timeout         time.Duration `koanf:"timeout"`
	MaxPackages     int           `koanf:"max_packages"`
	RatePerSecond   float64       `koanf:"rate_per_second"`
	Burst           int           `koanf:"burst"`
}

type HybridConfig struct {
	ComparisonMode        bool   `koanf:"comparison_mode"`
	ComparisonMaxPackages int    `koanf:"comparison_max_packages"`
	ForceStrategy         string `koanf:"force_strategy"`
}

type CacheConfig struct {
	Backend string        `koanf:"backend"` // none, memory, redis
	TTL     time.Duration `koanf:"ttl"`
}

type DatabaseConfig struct {
	URL           string `koanf:"url"`
	Migrate       bool   `koanf:"migrate"`
	MigrationsDir string `koanf:"migrations_dir"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

// WebhookConfig enables signed route.optimized callbacks when URL is set.
type WebhookConfig struct {
	URL         string        `koanf:"url"`
	Secret      string        `koanf:"secret"`
	MaxAttempts int           `koanf:"max_attempts"`
	Timeout     time.Duration `koanf:"timeout"`
	QueueSize   int           `koanf:"queue_size"`
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	var errs []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "log.level must be one of debug, info, warn, error")
	}
	if c.Depot.Latitude < -90 || c.Depot.Latitude > 90 || c.Depot.Longitude < -180 || c.Depot.Longitude > 180 {
		errs = append(errs, "depot coordinate out of range")
	}
	if c.Heuristic.ClusterRadiusKm <= 0 {
		errs = append(errs, "heuristic.cluster_radius_km must be positive")
	}
	if c.Heuristic.MaxClusterSize < 1 {
		errs = append(errs, "heuristic.max_cluster_size must be at least 1")
	}
	if c.Heuristic.ServiceMinutes <= 0 {
		errs = append(errs, "heuristic.service_minutes must be positive")
	}
	if _, err := model.ParseClock(c.Heuristic.DayStart); err != nil {
		errs = append(errs, "heuristic.day_start: "+err.Error())
	}
	if c.Solver.HorizonMinutes <= 0 || c.Solver.SpeedKmh <= 0 {
		errs = append(errs, "solver.horizon_minutes and solver.speed_kmh must be positive")
	}
	if c.Gateway.MaxPackages < 0 {
		errs = append(errs, "gateway.max_packages must not be negative")
	}
	if c.Hybrid.ComparisonMaxPackages > c.Gateway.MaxPackages && c.Gateway.MaxPackages > 0 {
		errs = append(errs, "hybrid.comparison_max_packages exceeds gateway.max_packages")
	}
	switch c.Hybrid.ForceStrategy {
	case "", "external", "solver", "heuristic":
	default:
		errs = append(errs, "hybrid.force_strategy must be external, solver or heuristic")
	}
	switch c.Cache.Backend {
	case "", "none", "memory", "redis":
	default:
		errs = append(errs, "cache.backend must be none, memory or redis")
	}
	if c.Cache.Backend == "redis" && c.Redis.URL == "" {
		errs = append(errs, "cache.backend=redis requires redis.url")
	}
	if c.Webhook.URL != "" && c.Webhook.MaxAttempts < 1 {
		errs = append(errs, "webhook.max_attempts must be at least 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DayStartMinutes returns heuristic.day_start as minutes since midnight.
func (c *Config) DayStartMinutes() int {
	m, err := model.ParseClock(c.Heuristic.DayStart)
	if err != nil {
		return 8 * 60
	}
	return m
}
