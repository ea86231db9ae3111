package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr   string
	RateLimitMax int    // prediction requests per minute per IP, 0 disables the limiter
	RedisURL     string // shared limiter storage, empty keeps counters in memory

	// TLS
	TLSCertFile string
	TLSKeyFile  string

	// Dataset
	DatasetPath string

	// Predictor
	Predictor PredictorConfig

	// Validation
	ValidateSelection bool // Reject selections unknown to the catalog before spawning the predictor

	// Jobs
	ProbeInterval time.Duration

	// Site Branding
	SiteTitle   string // env: SITE_TITLE, default: "Car Price Estimator"
	SiteTagline string // env: SITE_TAGLINE, default: "Estimate the resale value of a used car"
	SiteFooter  string // env: SITE_FOOTER
}

// PredictorConfig describes how the external predictor is spawned.
type PredictorConfig struct {
	Command       string
	Args          []string // prefix args placed before the six positional fields
	WorkDir       string   // empty means the server's working directory
	Env           []string // KEY=VALUE pairs appended to the server environment
	Timeout       time.Duration
	MaxConcurrent int
	QueueTimeout  time.Duration
	SpawnRate     float64 // processes per second, 0 is unlimited
	CacheSize     int     // 0 disables the result cache
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:          getEnv("ENV", "development"),
		ServerAddr:   getEnv("SERVER_ADDR", ":3000"),
		RateLimitMax: getEnvInt("RATE_LIMIT_MAX", 100),
		RedisURL:     getEnv("REDIS_URL", ""),
		TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		DatasetPath:  getEnv("DATASET_PATH", "car details v4.csv"),
		Predictor: PredictorConfig{
			Command:       getEnv("PREDICTOR_COMMAND", "python3"),
			Args:          strings.Fields(getEnv("PREDICTOR_ARGS", "predict.py")),
			WorkDir:       getEnv("PREDICTOR_DIR", ""),
			Timeout:       getEnvDuration("PREDICTOR_TIMEOUT", 30*time.Second),
			MaxConcurrent: getEnvInt("PREDICTOR_MAX_CONCURRENT", runtime.NumCPU()),
			QueueTimeout:  getEnvDuration("PREDICTOR_QUEUE_TIMEOUT", 10*time.Second),
			SpawnRate:     getEnvFloat("PREDICTOR_SPAWN_RATE", 0),
			CacheSize:     getEnvInt("PREDICTION_CACHE_SIZE", 0),
		},
		ValidateSelection: getEnv("VALIDATE_SELECTION", "") != "",
		ProbeInterval:     getEnvDuration("PREDICTOR_PROBE_INTERVAL", time.Minute),

		SiteTitle:   getEnv("SITE_TITLE", "Car Price Estimator"),
		SiteTagline: getEnv("SITE_TAGLINE", "Estimate the resale value of a used car"),
		SiteFooter:  getEnv("SITE_FOOTER", "Car Price Estimator"),
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.DatasetPath == "" {
		return fmt.Errorf("dataset path cannot be empty")
	}
	if c.RateLimitMax < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS requires both a certificate and a key file")
	}
	if c.ProbeInterval < 0 {
		return fmt.Errorf("probe interval cannot be negative")
	}
	return c.Predictor.Validate()
}

// Validate checks the predictor settings.
func (p *PredictorConfig) Validate() error {
	if p.Command == "" {
		return fmt.Errorf("predictor command cannot be empty")
	}
	if p.Timeout < 0 {
		return fmt.Errorf("predictor timeout cannot be negative")
	}
	if p.MaxConcurrent < 0 {
		return fmt.Errorf("predictor max concurrent cannot be negative")
	}
	if p.QueueTimeout < 0 {
		return fmt.Errorf("predictor queue timeout cannot be negative")
	}
	if p.SpawnRate < 0 {
		return fmt.Errorf("predictor spawn rate cannot be negative")
	}
	if p.CacheSize < 0 {
		return fmt.Errorf("prediction cache size cannot be negative")
	}
	for _, kv := range p.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("predictor env entry %q must be KEY=VALUE", kv)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// TLSEnabled returns true if a certificate and key are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}
