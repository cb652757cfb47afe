package config

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestLoadConfig(t *testing.T) {
	t.Run("HCL", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/etc/casctl/config.hcl", `
log_level = "debug"

session {
  disable_creator_stack = true
  managed_count_warning = 50
}

loader {
  max_retries      = 5
  initial_interval = "10ms"
  max_interval     = "1s"
}
`)

		cfg, err := LoadConfig(fs, "/etc/casctl/config.hcl")
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "standard", cfg.LogFormat)
		assert.True(t, cfg.Session.DisableCreatorStack)
		assert.Equal(t, 50, cfg.Session.ManagedCountWarning)
		assert.Equal(t, 5, cfg.Loader.MaxRetries)
		assert.Equal(t, "10ms", cfg.Loader.InitialInterval)
		assert.Equal(t, "1s", cfg.Loader.MaxInterval)
	})

	t.Run("YAML", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "config.yaml", `
log_level: warn
log_format: json
session:
  managed_count_warning: 10
loader:
  max_retries: 1
`)

		cfg, err := LoadConfig(fs, "config.yaml")
		require.NoError(t, err)

		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.False(t, cfg.Session.DisableCreatorStack)
		assert.Equal(t, 10, cfg.Session.ManagedCountWarning)
		assert.Equal(t, 1, cfg.Loader.MaxRetries)
		assert.Equal(t, DefaultInitialInterval, cfg.Loader.InitialInterval)
		assert.Equal(t, DefaultMaxInterval, cfg.Loader.MaxInterval)
	})

	t.Run("empty file uses defaults", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "config.hcl", "")

		cfg, err := LoadConfig(fs, "config.hcl")
		require.NoError(t, err)
		assert.Equal(t, NewConfig(), cfg)
	})

	t.Run("file without extension is read as HCL", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "casctl", `log_level = "trace"`)

		cfg, err := LoadConfig(fs, "casctl")
		require.NoError(t, err)
		assert.Equal(t, "trace", cfg.LogLevel)
	})

	errorTests := []struct {
		name     string
		path     string
		content  string
		contains string
	}{
		{
			name:     "unknown log level",
			path:     "config.hcl",
			content:  `log_level = "loud"`,
			contains: "unknown log level",
		},
		{
			name:     "unknown log format",
			path:     "config.hcl",
			content:  `log_format = "xml"`,
			contains: "invalid configuration",
		},
		{
			name:     "invalid duration",
			path:     "config.hcl",
			content:  "loader {\n  initial_interval = \"soon\"\n}\n",
			contains: "must be a duration",
		},
		{
			name:     "negative duration",
			path:     "config.yml",
			content:  "loader:\n  max_interval: -1s\n",
			contains: "must be positive",
		},
		{
			name:     "negative retries",
			path:     "config.hcl",
			content:  "loader {\n  max_retries = -1\n}\n",
			contains: "invalid configuration",
		},
		{
			name:     "unknown HCL attribute",
			path:     "config.hcl",
			content:  `color = "blue"`,
			contains: "failed to parse configuration file",
		},
		{
			name:     "unknown YAML key",
			path:     "config.yaml",
			content:  "color: blue\n",
			contains: "failed to parse configuration file",
		},
		{
			name:     "malformed YAML",
			path:     "config.yaml",
			content:  "session: [\n",
			contains: "failed to parse configuration file",
		},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFile(t, fs, tt.path, tt.content)

			_, err := LoadConfig(fs, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(afero.NewMemMapFs(), "missing.hcl")
		assert.ErrorContains(t, err, "error reading configuration file")
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := LoadConfig(afero.NewMemMapFs(), "")
		assert.ErrorContains(t, err, "configuration file path is required")
	})
}

func TestConfig_ManagerConfig(t *testing.T) {
	logger := hclog.NewNullLogger()

	cfg := NewConfig()
	mc := cfg.ManagerConfig(logger)
	assert.Same(t, logger, mc.Logger)
	assert.False(t, mc.DisableCreatorStack)
	assert.Equal(t, DefaultManagedCountWarning, mc.ManagedCountWarning)

	cfg.Session.DisableCreatorStack = true
	cfg.Session.ManagedCountWarning = -1
	mc = cfg.ManagerConfig(logger)
	assert.True(t, mc.DisableCreatorStack)
	assert.Equal(t, 0, mc.ManagedCountWarning)
}

func TestConfig_BackOff(t *testing.T) {
	cfg := NewConfig()
	cfg.Loader.MaxRetries = 2
	cfg.Loader.InitialInterval = "1ms"
	cfg.Loader.MaxInterval = "5ms"

	b := cfg.BackOff()
	for i := 0; i < 2; i++ {
		d := b.NextBackOff()
		assert.NotEqual(t, backoff.Stop, d)
		assert.LessOrEqual(t, d, 5*time.Millisecond+5*time.Millisecond/2)
	}
	assert.Equal(t, backoff.Stop, b.NextBackOff())

	t.Run("fresh policy per call", func(t *testing.T) {
		assert.NotEqual(t, backoff.Stop, cfg.BackOff().NextBackOff())
	})

	t.Run("zero retries", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Loader.MaxRetries = 0
		assert.Equal(t, backoff.Stop, cfg.BackOff().NextBackOff())
	})
}

func TestConfig_Logger(t *testing.T) {
	cfg := NewConfig()
	cfg.LogLevel = "warn"

	logger := cfg.Logger("casctl")
	assert.Equal(t, "casctl", logger.Name())
	assert.True(t, logger.IsWarn())
	assert.False(t, logger.IsInfo())
}
