package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.PSIThreshold != 0.2 {
		t.Errorf("PSIThreshold = %v, want 0.2", cfg.PSIThreshold)
	}
	if cfg.KLThreshold != 0.1 {
		t.Errorf("KLThreshold = %v, want 0.1", cfg.KLThreshold)
	}
	if cfg.MinSamples != 30 {
		t.Errorf("MinSamples = %d, want 30", cfg.MinSamples)
	}
	if cfg.MaxFeatures != 50 {
		t.Errorf("MaxFeatures = %d, want 50", cfg.MaxFeatures)
	}
	if cfg.CheckIntervalHours != 24 {
		t.Errorf("CheckIntervalHours = %d, want 24", cfg.CheckIntervalHours)
	}
	if !cfg.EnableAutoCheck {
		t.Error("EnableAutoCheck = false, want true")
	}
	if cfg.ReportRetentionDays != 90 {
		t.Errorf("ReportRetentionDays = %d, want 90", cfg.ReportRetentionDays)
	}
	if cfg.StorageBackend != "memory" {
		t.Errorf("StorageBackend = %q, want memory", cfg.StorageBackend)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DRIFT_PSI_THRESHOLD", "0.35")
	t.Setenv("DRIFT_MIN_SAMPLES", "50")
	t.Setenv("DRIFT_ENABLE_AUTO_CHECK", "false")
	t.Setenv("DRIFT_STORAGE_BACKEND", "sqlite")
	t.Setenv("DRIFT_DB_PATH", "/tmp/reports.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.PSIThreshold != 0.35 {
		t.Errorf("PSIThreshold = %v, want 0.35", cfg.PSIThreshold)
	}
	if cfg.MinSamples != 50 {
		t.Errorf("MinSamples = %d, want 50", cfg.MinSamples)
	}
	if cfg.EnableAutoCheck {
		t.Error("EnableAutoCheck = true, want false")
	}
	if cfg.StorageBackend != "sqlite" {
		t.Errorf("StorageBackend = %q, want sqlite", cfg.StorageBackend)
	}
	if cfg.DBPath != "/tmp/reports.db" {
		t.Errorf("DBPath = %q, want /tmp/reports.db", cfg.DBPath)
	}
}

func TestYAMLFileAndEnvPrecedence(t *testing.T) {
	yamlContent := `psi_threshold: 0.25
check_interval_hours: 6
storage_backend: sqlite
`
	path := filepath.Join(t.TempDir(), "drift.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("DRIFT_CONFIG_FILE", path)
	t.Setenv("DRIFT_CHECK_INTERVAL_HOURS", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// File overrides defaults.
	if cfg.PSIThreshold != 0.25 {
		t.Errorf("PSIThreshold = %v, want 0.25 from file", cfg.PSIThreshold)
	}
	if cfg.StorageBackend != "sqlite" {
		t.Errorf("StorageBackend = %q, want sqlite from file", cfg.StorageBackend)
	}
	// Env overrides file.
	if cfg.CheckIntervalHours != 12 {
		t.Errorf("CheckIntervalHours = %d, want 12 from env", cfg.CheckIntervalHours)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "negative psi threshold", key: "DRIFT_PSI_THRESHOLD", value: "-1"},
		{name: "zero min samples", key: "DRIFT_MIN_SAMPLES", value: "0"},
		{name: "unknown backend", key: "DRIFT_STORAGE_BACKEND", value: "postgres"},
		{name: "zero retention", key: "DRIFT_REPORT_RETENTION_DAYS", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s: expected error", tt.key, tt.value)
			}
		})
	}
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("DRIFT_MIN_SAMPLES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MinSamples != 30 {
		t.Errorf("MinSamples = %d, want default 30 for unparseable env value", cfg.MinSamples)
	}
}
