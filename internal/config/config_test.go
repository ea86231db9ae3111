package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_ADDR", "DATASET_PATH", "PREDICTOR_COMMAND", "PREDICTOR_ARGS", "PREDICTOR_TIMEOUT", "VALIDATE_SELECTION", "REDIS_URL", "TLS_CERT_FILE", "TLS_KEY_FILE", "RATE_LIMIT_MAX", "PREDICTOR_PROBE_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServerAddr != ":3000" {
		t.Errorf("ServerAddr = %q, want :3000", cfg.ServerAddr)
	}
	if cfg.DatasetPath != "car details v4.csv" {
		t.Errorf("DatasetPath = %q", cfg.DatasetPath)
	}
	if cfg.Predictor.Command != "python3" {
		t.Errorf("Predictor.Command = %q, want python3", cfg.Predictor.Command)
	}
	if len(cfg.Predictor.Args) != 1 || cfg.Predictor.Args[0] != "predict.py" {
		t.Errorf("Predictor.Args = %v, want [predict.py]", cfg.Predictor.Args)
	}
	if cfg.Predictor.Timeout != 30*time.Second {
		t.Errorf("Predictor.Timeout = %v, want 30s", cfg.Predictor.Timeout)
	}
	if cfg.ValidateSelection {
		t.Error("ValidateSelection should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PREDICTOR_ARGS", "-u predict.py")
	t.Setenv("PREDICTOR_TIMEOUT", "5s")
	t.Setenv("PREDICTOR_MAX_CONCURRENT", "2")
	t.Setenv("PREDICTOR_SPAWN_RATE", "1.5")
	t.Setenv("VALIDATE_SELECTION", "1")
	t.Setenv("RATE_LIMIT_MAX", "not-a-number")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg := Load()

	if strings.Join(cfg.Predictor.Args, " ") != "-u predict.py" {
		t.Errorf("Predictor.Args = %v", cfg.Predictor.Args)
	}
	if cfg.Predictor.Timeout != 5*time.Second {
		t.Errorf("Predictor.Timeout = %v, want 5s", cfg.Predictor.Timeout)
	}
	if cfg.Predictor.MaxConcurrent != 2 {
		t.Errorf("Predictor.MaxConcurrent = %d, want 2", cfg.Predictor.MaxConcurrent)
	}
	if cfg.Predictor.SpawnRate != 1.5 {
		t.Errorf("Predictor.SpawnRate = %v, want 1.5", cfg.Predictor.SpawnRate)
	}
	if !cfg.ValidateSelection {
		t.Error("ValidateSelection should be true")
	}
	if cfg.RateLimitMax != 100 {
		t.Errorf("RateLimitMax = %d, want fallback 100", cfg.RateLimitMax)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			ServerAddr:  ":3000",
			DatasetPath: "cars.csv",
			Predictor:   PredictorConfig{Command: "python3"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty addr", func(c *Config) { c.ServerAddr = "" }, "server address"},
		{"empty dataset", func(c *Config) { c.DatasetPath = "" }, "dataset path"},
		{"empty command", func(c *Config) { c.Predictor.Command = "" }, "predictor command"},
		{"negative timeout", func(c *Config) { c.Predictor.Timeout = -time.Second }, "timeout"},
		{"negative concurrency", func(c *Config) { c.Predictor.MaxConcurrent = -1 }, "max concurrent"},
		{"negative cache", func(c *Config) { c.Predictor.CacheSize = -1 }, "cache size"},
		{"bad env entry", func(c *Config) { c.Predictor.Env = []string{"NOVALUE"} }, "KEY=VALUE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadYAMLConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictor.yaml")
	content := `predictor:
  command: /opt/venv/bin/python
  args: ["predict.py"]
  working_dir: /srv/model
  env: ["MODEL_PATH=car_price_model.pkl"]
  timeout: 45s
  max_concurrent: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	y, err := LoadYAMLConfigFile(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfigFile() error = %v", err)
	}

	cfg := &Config{Predictor: PredictorConfig{Command: "python3", Args: []string{"other.py"}, Timeout: time.Second, CacheSize: 8}}
	y.Apply(cfg)

	if cfg.Predictor.Command != "/opt/venv/bin/python" {
		t.Errorf("Command = %q", cfg.Predictor.Command)
	}
	if len(cfg.Predictor.Args) != 1 || cfg.Predictor.Args[0] != "predict.py" {
		t.Errorf("Args = %v", cfg.Predictor.Args)
	}
	if cfg.Predictor.WorkDir != "/srv/model" {
		t.Errorf("WorkDir = %q", cfg.Predictor.WorkDir)
	}
	if cfg.Predictor.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Predictor.Timeout)
	}
	if cfg.Predictor.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", cfg.Predictor.MaxConcurrent)
	}
	if cfg.Predictor.CacheSize != 8 {
		t.Errorf("CacheSize = %d, absent key should keep 8", cfg.Predictor.CacheSize)
	}
	if len(cfg.Predictor.Env) != 1 || cfg.Predictor.Env[0] != "MODEL_PATH=car_price_model.pkl" {
		t.Errorf("Env = %v", cfg.Predictor.Env)
	}
}

func TestYAMLExplicitZeroOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictor.yaml")
	content := `predictor:
  timeout: 0s
  max_concurrent: 0
  cache_size: 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	y, err := LoadYAMLConfigFile(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfigFile() error = %v", err)
	}

	cfg := &Config{Predictor: PredictorConfig{
		Command:       "python3",
		Timeout:       30 * time.Second,
		MaxConcurrent: 4,
		QueueTimeout:  10 * time.Second,
		CacheSize:     16,
	}}
	y.Apply(cfg)

	if cfg.Predictor.Timeout != 0 {
		t.Errorf("Timeout = %v, explicit zero should disable it", cfg.Predictor.Timeout)
	}
	if cfg.Predictor.MaxConcurrent != 0 {
		t.Errorf("MaxConcurrent = %d, want 0", cfg.Predictor.MaxConcurrent)
	}
	if cfg.Predictor.CacheSize != 0 {
		t.Errorf("CacheSize = %d, want 0", cfg.Predictor.CacheSize)
	}
	if cfg.Predictor.QueueTimeout != 10*time.Second {
		t.Errorf("QueueTimeout = %v, absent key should keep 10s", cfg.Predictor.QueueTimeout)
	}
	if cfg.Predictor.Command != "python3" {
		t.Errorf("Command = %q, absent key should keep python3", cfg.Predictor.Command)
	}
}

func TestLoadYAMLConfigFileMissing(t *testing.T) {
	y, err := LoadYAMLConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if y != nil {
		t.Errorf("missing file should return nil config")
	}

	// Apply on a nil config is a no-op.
	cfg := &Config{Predictor: PredictorConfig{Command: "python3"}}
	y.Apply(cfg)
	if cfg.Predictor.Command != "python3" {
		t.Errorf("Command changed to %q", cfg.Predictor.Command)
	}
}
