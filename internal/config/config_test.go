package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	configContent := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 20s
  write_timeout: 90s
  shutdown_timeout: 5s
opendental:
  base_url: "https://gateway.example.com/api/v1"
  dev_key: "dev-abc"
  customer_key: "cust-xyz"
  timeout: 45s
storage:
  data_path: "/var/lib/remitmatch"
  retention_days: 180
  cleanup_every: 12h
matching:
  min_score: 92
  procedure_floor: 0.55
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != 90*time.Second {
		t.Errorf("write timeout = %v", cfg.Server.WriteTimeout)
	}
	if cfg.OpenDental.BaseURL != "https://gateway.example.com/api/v1" {
		t.Errorf("base url = %q", cfg.OpenDental.BaseURL)
	}
	if cfg.OpenDental.DevKey != "dev-abc" || cfg.OpenDental.CustomerKey != "cust-xyz" {
		t.Errorf("keys = %q %q", cfg.OpenDental.DevKey, cfg.OpenDental.CustomerKey)
	}
	if cfg.Storage.DataPath != "/var/lib/remitmatch" || cfg.Storage.RetentionDays != 180 {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.CleanupEvery != 12*time.Hour {
		t.Errorf("cleanup every = %v", cfg.Storage.CleanupEvery)
	}
	if cfg.Matching.MinScore != 92 {
		t.Errorf("min score = %d", cfg.Matching.MinScore)
	}
	if cfg.Matching.ProcedureFloor != 0.55 {
		t.Errorf("procedure floor = %v", cfg.Matching.ProcedureFloor)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_OD_DEV_KEY", "from-env")

	configContent := `
opendental:
  dev_key: "${TEST_OD_DEV_KEY}"
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.OpenDental.DevKey != "from-env" {
		t.Errorf("dev key = %q", cfg.OpenDental.DevKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server: [not a map"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()

	if cfg.Server.Port != 8085 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.OpenDental.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.OpenDental.Timeout)
	}
	if cfg.Storage.RetentionDays != 365 {
		t.Errorf("retention days = %d", cfg.Storage.RetentionDays)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("OPENDENTAL_TIMEOUT", "5s")
	t.Setenv("MATCH_PROCEDURE_FLOOR", "0.6")

	cfg := LoadFromEnv()
	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.OpenDental.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.OpenDental.Timeout)
	}
	if cfg.Matching.ProcedureFloor != 0.6 {
		t.Errorf("procedure floor = %v", cfg.Matching.ProcedureFloor)
	}
}
