package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)

	assert.Equal(t, 3, cfg.Workers.Count)
	assert.Equal(t, 10, cfg.Workers.Threshold)
	assert.Equal(t, 0.2, cfg.Workers.FailureProbability)
	assert.Equal(t, time.Second, cfg.Workers.WorkDelay)
	assert.Equal(t, int64(0), cfg.Workers.Seed)

	assert.Equal(t, "checkpoints", cfg.Checkpoint.Directory)
	assert.Equal(t, BackendFile, cfg.Checkpoint.Backend)
	assert.Equal(t, LockModeWorker, cfg.Checkpoint.LockMode)
	assert.Equal(t, 3, cfg.Checkpoint.SaveAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Checkpoint.SaveRetryDelay)

	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.File)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TASKRECOVER_WORKERS", "5")
	t.Setenv("TASKRECOVER_THRESHOLD", "4")
	t.Setenv("TASKRECOVER_FAILURE_PROBABILITY", "0.5")
	t.Setenv("TASKRECOVER_WORK_DELAY", "250ms")
	t.Setenv("TASKRECOVER_SEED", "42")
	t.Setenv("TASKRECOVER_CHECKPOINT_DIR", "/tmp/ckpt")
	t.Setenv("TASKRECOVER_CHECKPOINT_BACKEND", "BOLT")
	t.Setenv("TASKRECOVER_LOCK_MODE", "global")
	t.Setenv("TASKRECOVER_METRICS_ENABLED", "true")
	t.Setenv("TASKRECOVER_METRICS_ADDR", "127.0.0.1:9999")
	t.Setenv("TASKRECOVER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 5, cfg.Workers.Count)
	assert.Equal(t, 4, cfg.Workers.Threshold)
	assert.Equal(t, 0.5, cfg.Workers.FailureProbability)
	assert.Equal(t, 250*time.Millisecond, cfg.Workers.WorkDelay)
	assert.Equal(t, int64(42), cfg.Workers.Seed)
	assert.Equal(t, "/tmp/ckpt", cfg.Checkpoint.Directory)
	assert.Equal(t, BackendBolt, cfg.Checkpoint.Backend)
	assert.Equal(t, LockModeGlobal, cfg.Checkpoint.LockMode)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("TASKRECOVER_WORKERS", "three")
	t.Setenv("TASKRECOVER_WORK_DELAY", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TASKRECOVER_WORKERS")
	assert.Contains(t, err.Error(), "TASKRECOVER_WORK_DELAY")

	// Unparseable values leave the defaults alone
	assert.Equal(t, 3, cfg.Workers.Count)
	assert.Equal(t, time.Second, cfg.Workers.WorkDelay)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
workers:
  count: 2
  threshold: 7
  failure_probability: 0.1
  work_delay: 10ms
checkpoint:
  directory: /var/lib/taskrecover
  backend: bolt
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 2, cfg.Workers.Count)
	assert.Equal(t, 7, cfg.Workers.Threshold)
	assert.Equal(t, 0.1, cfg.Workers.FailureProbability)
	assert.Equal(t, 10*time.Millisecond, cfg.Workers.WorkDelay)
	assert.Equal(t, "/var/lib/taskrecover", cfg.Checkpoint.Directory)
	assert.Equal(t, BackendBolt, cfg.Checkpoint.Backend)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Fields absent from the file keep their defaults
	assert.Equal(t, LockModeWorker, cfg.Checkpoint.LockMode)
	assert.Equal(t, 3, cfg.Checkpoint.SaveAttempts)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: [unterminated"), 0644))
	err = cfg.LoadFromFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"zero workers", func(c *Config) { c.Workers.Count = 0 }, "worker count"},
		{"zero threshold", func(c *Config) { c.Workers.Threshold = 0 }, "task threshold"},
		{"negative probability", func(c *Config) { c.Workers.FailureProbability = -0.1 }, "failure probability"},
		{"certain failure", func(c *Config) { c.Workers.FailureProbability = 1 }, "failure probability"},
		{"NaN probability", func(c *Config) { c.Workers.FailureProbability = math.NaN() }, "failure probability"},
		{"negative delay", func(c *Config) { c.Workers.WorkDelay = -time.Second }, "work delay"},
		{"empty directory", func(c *Config) { c.Checkpoint.Directory = "" }, "checkpoint directory"},
		{"unknown backend", func(c *Config) { c.Checkpoint.Backend = "pickle" }, "unknown checkpoint backend"},
		{"unknown lock mode", func(c *Config) { c.Checkpoint.LockMode = "file" }, "unknown lock mode"},
		{"no save attempts", func(c *Config) { c.Checkpoint.SaveAttempts = 0 }, "save attempts"},
		{"metrics without address", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Address = "" }, "metrics address"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers.Count = 0
	cfg.Workers.Threshold = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker count")
	assert.Contains(t, err.Error(), "task threshold")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"workers":             6,
		"threshold":           2,
		"failure-probability": 0.0,
		"work-delay":          time.Duration(0),
		"seed":                int64(9),
		"checkpoint-dir":      "state",
		"backend":             "bolt",
		"lock-mode":           "global",
		"metrics-addr":        ":8080",
		"log-level":           "error",
	})

	assert.Equal(t, 6, cfg.Workers.Count)
	assert.Equal(t, 2, cfg.Workers.Threshold)
	assert.Equal(t, 0.0, cfg.Workers.FailureProbability)
	assert.Equal(t, time.Duration(0), cfg.Workers.WorkDelay)
	assert.Equal(t, int64(9), cfg.Workers.Seed)
	assert.Equal(t, "state", cfg.Checkpoint.Directory)
	assert.Equal(t, BackendBolt, cfg.Checkpoint.Backend)
	assert.Equal(t, LockModeGlobal, cfg.Checkpoint.LockMode)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":8080", cfg.Metrics.Address)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
workers:
  count: 2
  threshold: 7
checkpoint:
  directory: from-file
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("TASKRECOVER_THRESHOLD", "8")

	cfg, err := Load(path, map[string]interface{}{
		"checkpoint-dir": "from-flag",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workers.Count)                  // file
	assert.Equal(t, 8, cfg.Workers.Threshold)              // env beats file
	assert.Equal(t, "from-flag", cfg.Checkpoint.Directory) // flag beats file
	assert.Equal(t, 0.2, cfg.Workers.FailureProbability)   // default
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers:\n  count: -1\n"), 0644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestLoadRejectsNaNProbability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers:\n  count: 2\n"), 0644))
	t.Setenv("TASKRECOVER_FAILURE_PROBABILITY", "NaN")

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Contains(t, err.Error(), "failure probability")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Workers.Count = 4
	cfg.Workers.WorkDelay = 1500 * time.Millisecond
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Config
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, *cfg, loaded)
}
