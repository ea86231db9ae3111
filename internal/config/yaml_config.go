package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the predictor.yaml file.
// The predictor invocation (interpreter, script, environment) is easier to
// describe in YAML than in flat env vars.
type YAMLConfig struct {
	Predictor PredictorYAML `yaml:"predictor"`
}

// PredictorYAML holds the predictor settings present in the file. A nil
// field was not set and keeps the environment value; an explicit zero
// (timeout: 0) overrides it.
type PredictorYAML struct {
	Command       *string        `yaml:"command"`
	Args          []string       `yaml:"args"`
	WorkDir       *string        `yaml:"working_dir"`
	Env           []string       `yaml:"env"`
	Timeout       *time.Duration `yaml:"timeout"`
	MaxConcurrent *int           `yaml:"max_concurrent"`
	QueueTimeout  *time.Duration `yaml:"queue_timeout"`
	SpawnRate     *float64       `yaml:"spawn_rate"`
	CacheSize     *int           `yaml:"cache_size"`
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by PREDICTOR_CONFIG_FILE env var, defaulting to "predictor.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	return LoadYAMLConfigFile(getEnv("PREDICTOR_CONFIG_FILE", "predictor.yaml"))
}

// LoadYAMLConfigFile loads the YAML configuration from path.
func LoadYAMLConfigFile(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Apply overlays the predictor settings present in the YAML file onto cfg.
// Env entries are appended to those from the environment.
func (y *YAMLConfig) Apply(cfg *Config) {
	if y == nil {
		return
	}
	p := y.Predictor
	dst := &cfg.Predictor

	setIf(&dst.Command, p.Command)
	setIf(&dst.WorkDir, p.WorkDir)
	setIf(&dst.Timeout, p.Timeout)
	setIf(&dst.MaxConcurrent, p.MaxConcurrent)
	setIf(&dst.QueueTimeout, p.QueueTimeout)
	setIf(&dst.SpawnRate, p.SpawnRate)
	setIf(&dst.CacheSize, p.CacheSize)

	if p.Args != nil {
		dst.Args = p.Args
	}
	if len(p.Env) > 0 {
		dst.Env = append(dst.Env, p.Env...)
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
