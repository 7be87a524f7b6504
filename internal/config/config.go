// Package config loads drift monitor settings: defaults, then an optional
// YAML file, then environment variable overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the full drift monitor configuration.
type Config struct {
	// Detection thresholds.
	PSIThreshold float64 `yaml:"psi_threshold"`
	KLThreshold  float64 `yaml:"kl_divergence_threshold"`
	MinSamples   int     `yaml:"min_samples"`
	MaxFeatures  int     `yaml:"max_features"`

	// Scheduling.
	CheckIntervalHours  int  `yaml:"check_interval_hours"`
	EnableAutoCheck     bool `yaml:"enable_auto_check"`
	ReportRetentionDays int  `yaml:"report_retention_days"`

	// Storage.
	StorageBackend string `yaml:"storage_backend"`
	DurableMirror  bool   `yaml:"durable_mirror"`
	DBPath         string `yaml:"db_path"`
	ClickHouseAddr string `yaml:"clickhouse_addr"`
	DataDir        string `yaml:"data_dir"`

	// Observability.
	LogLevel  string `yaml:"log_level"`
	PprofAddr string `yaml:"pprof_addr"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		PSIThreshold:        0.2,
		KLThreshold:         0.1,
		MinSamples:          30,
		MaxFeatures:         50,
		CheckIntervalHours:  24,
		EnableAutoCheck:     true,
		ReportRetentionDays: 90,
		StorageBackend:      "memory",
		DurableMirror:       true,
		DBPath:              "./data/drift.db",
		ClickHouseAddr:      "localhost:9000",
		DataDir:             "./data",
		LogLevel:            "info",
		PprofAddr:           "localhost:6060",
	}
}

// Load builds the configuration. When DRIFT_CONFIG_FILE names a YAML file it
// is applied over the defaults; DRIFT_* environment variables win over both.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("DRIFT_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.PSIThreshold = getEnvFloat("DRIFT_PSI_THRESHOLD", cfg.PSIThreshold)
	cfg.KLThreshold = getEnvFloat("DRIFT_KL_THRESHOLD", cfg.KLThreshold)
	cfg.MinSamples = getEnvInt("DRIFT_MIN_SAMPLES", cfg.MinSamples)
	cfg.MaxFeatures = getEnvInt("DRIFT_MAX_FEATURES", cfg.MaxFeatures)
	cfg.CheckIntervalHours = getEnvInt("DRIFT_CHECK_INTERVAL_HOURS", cfg.CheckIntervalHours)
	cfg.EnableAutoCheck = getEnvBool("DRIFT_ENABLE_AUTO_CHECK", cfg.EnableAutoCheck)
	cfg.ReportRetentionDays = getEnvInt("DRIFT_REPORT_RETENTION_DAYS", cfg.ReportRetentionDays)
	cfg.StorageBackend = getEnv("DRIFT_STORAGE_BACKEND", cfg.StorageBackend)
	cfg.DurableMirror = getEnvBool("DRIFT_DURABLE_MIRROR", cfg.DurableMirror)
	cfg.DBPath = getEnv("DRIFT_DB_PATH", cfg.DBPath)
	cfg.ClickHouseAddr = getEnv("DRIFT_CLICKHOUSE_ADDR", cfg.ClickHouseAddr)
	cfg.DataDir = getEnv("DRIFT_DATA_DIR", cfg.DataDir)
	cfg.LogLevel = getEnv("DRIFT_LOG_LEVEL", cfg.LogLevel)
	cfg.PprofAddr = getEnv("PPROF_ADDR", cfg.PprofAddr)

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.PSIThreshold <= 0 {
		return fmt.Errorf("psi_threshold must be positive, got %v", c.PSIThreshold)
	}
	if c.KLThreshold <= 0 {
		return fmt.Errorf("kl_divergence_threshold must be positive, got %v", c.KLThreshold)
	}
	if c.MinSamples <= 0 {
		return fmt.Errorf("min_samples must be positive, got %d", c.MinSamples)
	}
	if c.CheckIntervalHours <= 0 {
		return fmt.Errorf("check_interval_hours must be positive, got %d", c.CheckIntervalHours)
	}
	if c.ReportRetentionDays <= 0 {
		return fmt.Errorf("report_retention_days must be positive, got %d", c.ReportRetentionDays)
	}
	switch c.StorageBackend {
	case "memory", "sqlite", "clickhouse":
	default:
		return fmt.Errorf("unknown storage_backend: %s", c.StorageBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
