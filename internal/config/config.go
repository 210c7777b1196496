package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the matching service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	OpenDental OpenDentalConfig `yaml:"opendental"`
	Storage    StorageConfig    `yaml:"storage"`
	Matching   MatchingConfig   `yaml:"matching"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OpenDentalConfig holds OpenDental API gateway credentials.
type OpenDentalConfig struct {
	BaseURL     string        `yaml:"base_url"`
	DevKey      string        `yaml:"dev_key"`
	CustomerKey string        `yaml:"customer_key"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StorageConfig holds claim cache configuration.
type StorageConfig struct {
	DataPath      string        `yaml:"data_path"`
	RetentionDays int           `yaml:"retention_days"`
	CleanupEvery  time.Duration `yaml:"cleanup_every"`
}

// MatchingConfig holds scoring thresholds. Zero values fall back to the
// matcher defaults.
type MatchingConfig struct {
	MinScore             int     `yaml:"min_score"`
	NameGateScore        int     `yaml:"name_gate_score"`
	FeeOverrideNameScore int     `yaml:"fee_override_name_score"`
	ProcedureFloor       float64 `yaml:"procedure_floor"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", "0.0.0.0"),
			Port:            getEnvInt("PORT", 8085),
			ReadTimeout:     getEnvDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OpenDental: OpenDentalConfig{
			BaseURL:     getEnv("OPENDENTAL_BASE_URL", "https://api.opendental.com/api/v1"),
			DevKey:      getEnv("OPENDENTAL_DEV_KEY", ""),
			CustomerKey: getEnv("OPENDENTAL_CUSTOMER_KEY", ""),
			Timeout:     getEnvDuration("OPENDENTAL_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			DataPath:      getEnv("DATA_PATH", "./data"),
			RetentionDays: getEnvInt("CLAIM_RETENTION_DAYS", 365),
			CleanupEvery:  getEnvDuration("CLAIM_CLEANUP_EVERY", 24*time.Hour),
		},
		Matching: MatchingConfig{
			MinScore:             getEnvInt("MATCH_MIN_SCORE", 0),
			NameGateScore:        getEnvInt("MATCH_NAME_GATE_SCORE", 0),
			FeeOverrideNameScore: getEnvInt("MATCH_FEE_OVERRIDE_NAME_SCORE", 0),
			ProcedureFloor:       getEnvFloat("MATCH_PROCEDURE_FLOOR", 0),
		},
	}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
