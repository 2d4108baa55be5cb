package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capacitylab/fleet-advisor/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "fleet-advisor", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Mode)
	assert.Equal(t, "system", cfg.Telemetry.Source)
	assert.Equal(t, 60*time.Second, cfg.Telemetry.Interval)
	assert.Equal(t, 1000, cfg.Telemetry.StoreCapacity)
	assert.Equal(t, 5, cfg.Forecast.Horizon)
	assert.Equal(t, 20, cfg.Forecast.AnomalyWindow)
	assert.Equal(t, 5*time.Minute, cfg.Decision.Interval)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.False(t, cfg.Database.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
app:
  mode: production
  log_level: warn
telemetry:
  source: sim
  interval: 30s
api:
  port: 9090
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "production", cfg.App.Mode)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, "sim", cfg.Telemetry.Source)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.Interval)
	assert.Equal(t, 9090, cfg.API.Port)
	// unset keys keep their defaults
	assert.Equal(t, 5, cfg.Forecast.Horizon)
}

func TestConfig_Validate(t *testing.T) {
	valid := func(t *testing.T) *config.Config {
		cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		return cfg
	}

	t.Run("rejects unknown telemetry source", func(t *testing.T) {
		cfg := valid(t)
		cfg.Telemetry.Source = "agent"

		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects timeout above interval", func(t *testing.T) {
		cfg := valid(t)
		cfg.Telemetry.Timeout = 2 * time.Minute

		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects bad mode", func(t *testing.T) {
		cfg := valid(t)
		cfg.App.Mode = "staging"

		assert.Error(t, cfg.Validate())
	})

	t.Run("database checked only when enabled", func(t *testing.T) {
		cfg := valid(t)
		cfg.Database.Host = ""
		assert.NoError(t, cfg.Validate())

		cfg.Database.Enabled = true
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadPolicy(t *testing.T) {
	t.Run("missing file yields defaults and writes them back", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.json")

		p, err := config.LoadPolicy(path)

		require.NoError(t, err)
		assert.Equal(t, 1, p.MinInstances)
		assert.Equal(t, 10, p.MaxInstances)
		assert.Equal(t, 70.0, p.ScaleUpThreshold)
		assert.Equal(t, 300, p.ScaleUpCooldown)
		assert.Equal(t, 0.6, p.ConfidenceThreshold)

		// self-healing: the effective policy lands on disk
		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("partial file merges over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"max_instances": 4}`), 0o644))

		p, err := config.LoadPolicy(path)

		require.NoError(t, err)
		assert.Equal(t, 4, p.MaxInstances)
		assert.Equal(t, 1, p.MinInstances)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.json")
		require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

		_, err := config.LoadPolicy(path)

		assert.Error(t, err)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"min_instances": 8, "max_instances": 2}`), 0o644))

		_, err := config.LoadPolicy(path)

		assert.Error(t, err)
	})
}

func TestPolicy_CooldownDurations(t *testing.T) {
	p := config.Policy{ScaleUpCooldown: 300, ScaleDownCooldown: 600}

	assert.Equal(t, 5*time.Minute, p.ScaleUpCooldownDuration())
	assert.Equal(t, 10*time.Minute, p.ScaleDownCooldownDuration())
}
