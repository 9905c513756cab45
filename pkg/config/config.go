package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Checkpoint backends
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Save lock modes
const (
	LockModeWorker = "worker"
	LockModeGlobal = "global"
)

// Config holds all configuration options for a simulation run
type Config struct {
	// Worker pool and task loop settings
	Workers WorkersConfig `yaml:"workers" json:"workers"`

	// Checkpoint store settings
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// WorkersConfig holds worker pool configuration
type WorkersConfig struct {
	Count              int           `yaml:"count" json:"count"`
	Threshold          int           `yaml:"threshold" json:"threshold"`
	FailureProbability float64       `yaml:"failure_probability" json:"failure_probability"`
	WorkDelay          time.Duration `yaml:"work_delay" json:"work_delay"`
	Seed               int64         `yaml:"seed" json:"seed"`
}

// CheckpointConfig holds checkpoint store configuration
type CheckpointConfig struct {
	Directory      string        `yaml:"directory" json:"directory"`
	Backend        string        `yaml:"backend" json:"backend"`
	LockMode       string        `yaml:"lock_mode" json:"lock_mode"`
	SaveAttempts   int           `yaml:"save_attempts" json:"save_attempts"`
	SaveRetryDelay time.Duration `yaml:"save_retry_delay" json:"save_retry_delay"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	// NoColor disables ANSI colors on the console writer
	NoColor bool `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config matching the behaviour of the original simulation:
// three workers, ten tasks each, a 20% crash chance and one second per task.
func DefaultConfig() *Config {
	return &Config{
		Workers: WorkersConfig{
			Count:              3,
			Threshold:          10,
			FailureProbability: 0.2,
			WorkDelay:          time.Second,
			Seed:               0,
		},
		Checkpoint: CheckpointConfig{
			Directory:      "checkpoints",
			Backend:        BackendFile,
			LockMode:       LockModeWorker,
			SaveAttempts:   3,
			SaveRetryDelay: 100 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9464",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("TASKRECOVER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKRECOVER_WORKERS: %w", err))
		} else {
			c.Workers.Count = n
		}
	}
	if v := os.Getenv("TASKRECOVER_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKRECOVER_THRESHOLD: %w", err))
		} else {
			c.Workers.Threshold = n
		}
	}
	if v := os.Getenv("TASKRECOVER_FAILURE_PROBABILITY"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKRECOVER_FAILURE_PROBABILITY: %w", err))
		} else {
			c.Workers.FailureProbability = p
		}
	}
	if v := os.Getenv("TASKRECOVER_WORK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKRECOVER_WORK_DELAY: %w", err))
		} else {
			c.Workers.WorkDelay = d
		}
	}
	if v := os.Getenv("TASKRECOVER_SEED"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKRECOVER_SEED: %w", err))
		} else {
			c.Workers.Seed = s
		}
	}

	if dir := os.Getenv("TASKRECOVER_CHECKPOINT_DIR"); dir != "" {
		c.Checkpoint.Directory = dir
	}
	if backend := os.Getenv("TASKRECOVER_CHECKPOINT_BACKEND"); backend != "" {
		c.Checkpoint.Backend = strings.ToLower(backend)
	}
	if mode := os.Getenv("TASKRECOVER_LOCK_MODE"); mode != "" {
		c.Checkpoint.LockMode = strings.ToLower(mode)
	}

	if enabled := os.Getenv("TASKRECOVER_METRICS_ENABLED"); enabled != "" {
		c.Metrics.Enabled = strings.ToLower(enabled) == "true"
	}
	if addr := os.Getenv("TASKRECOVER_METRICS_ADDR"); addr != "" {
		c.Metrics.Address = addr
	}

	if logLevel := os.Getenv("TASKRECOVER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".taskrecover.yaml",
		".taskrecover.yml",
		filepath.Join(home, ".config", "taskrecover", "config.yaml"),
		filepath.Join(home, ".config", "taskrecover", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Workers.Count <= 0 {
		errs = append(errs, errors.New("worker count must be positive"))
	}
	if c.Workers.Threshold <= 0 {
		errs = append(errs, errors.New("task threshold must be positive"))
	}
	// A probability of 1 would never let a worker finish.
	p := c.Workers.FailureProbability
	if math.IsNaN(p) || p < 0 || p >= 1 {
		errs = append(errs, errors.New("failure probability must be in [0, 1)"))
	}
	if c.Workers.WorkDelay < 0 {
		errs = append(errs, errors.New("work delay cannot be negative"))
	}

	if c.Checkpoint.Directory == "" {
		errs = append(errs, errors.New("checkpoint directory is required"))
	}
	switch c.Checkpoint.Backend {
	case BackendFile, BackendBolt:
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend))
	}
	switch c.Checkpoint.LockMode {
	case LockModeWorker, LockModeGlobal:
	default:
		errs = append(errs, fmt.Errorf("unknown lock mode %q", c.Checkpoint.LockMode))
	}
	if c.Checkpoint.SaveAttempts < 1 {
		errs = append(errs, errors.New("save attempts must be at least 1"))
	}
	if c.Checkpoint.SaveRetryDelay < 0 {
		errs = append(errs, errors.New("save retry delay cannot be negative"))
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, errors.New("metrics address is required when metrics are enabled"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied; the CLI adds a key when the user set the flag.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if count, ok := flags["workers"].(int); ok {
		c.Workers.Count = count
	}
	if threshold, ok := flags["threshold"].(int); ok {
		c.Workers.Threshold = threshold
	}
	if p, ok := flags["failure-probability"].(float64); ok {
		c.Workers.FailureProbability = p
	}
	if d, ok := flags["work-delay"].(time.Duration); ok {
		c.Workers.WorkDelay = d
	}
	if seed, ok := flags["seed"].(int64); ok {
		c.Workers.Seed = seed
	}
	if dir, ok := flags["checkpoint-dir"].(string); ok && dir != "" {
		c.Checkpoint.Directory = dir
	}
	if backend, ok := flags["backend"].(string); ok && backend != "" {
		c.Checkpoint.Backend = strings.ToLower(backend)
	}
	if mode, ok := flags["lock-mode"].(string); ok && mode != "" {
		c.Checkpoint.LockMode = strings.ToLower(mode)
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Enabled = true
		c.Metrics.Address = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".taskrecover.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
