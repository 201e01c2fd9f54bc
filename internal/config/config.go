package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Rigstore connection (downstream retargeting service)
	RigstoreURL    string `yaml:"rigstore_url"`
	RigstoreAPIKey string `yaml:"rigstore_api_key"`

	// Auth
	MocapdAPIKey string `yaml:"mocapd_api_key"`

	// Worker pool
	WorkerCount          int `yaml:"worker_count"`
	MaxQueueSize         int `yaml:"max_queue_size"`
	MaxConcurrentPublish int `yaml:"max_concurrent_publish"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Parse latency stats window
	StatsWindow time.Duration `yaml:"stats_window"`
}

// Load reads the optional YAML file named by MOCAPD_CONFIG, then lets
// environment variables override file values. Invalid values fall back to
// defaults rather than failing startup.
func Load() Config {
	var cfg Config
	if path := os.Getenv("MOCAPD_CONFIG"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, &cfg)
		}
	}

	cfg.Port = envOr("PORT", strOr(cfg.Port, "8091"))

	cfg.RigstoreURL = envOr("RIGSTORE_URL", strOr(cfg.RigstoreURL, "http://localhost:8080"))
	cfg.RigstoreAPIKey = envOr("RIGSTORE_API_KEY", cfg.RigstoreAPIKey)

	cfg.MocapdAPIKey = envOr("MOCAPD_API_KEY", cfg.MocapdAPIKey)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxConcurrentPublish = envInt("MAX_CONCURRENT_PUBLISH", cfg.MaxConcurrentPublish)

	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.StatsWindow = envDuration("STATS_WINDOW", cfg.StatsWindow)

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentPublish <= 0 {
		cfg.MaxConcurrentPublish = 10
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 104857600 // 100MB; long takes get big
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.RigstoreAPIKey == "" {
		return fmt.Errorf("RIGSTORE_API_KEY is required")
	}
	if c.MocapdAPIKey == "" {
		return fmt.Errorf("MOCAPD_API_KEY is required")
	}
	return nil
}

func strOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
