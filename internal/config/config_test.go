package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "~/.config/query-runner/workspace.duckdb", cfg.Database.Path)
	assert.True(t, cfg.Database.Persist)
	assert.Equal(t, "800ms", cfg.Workspace.Latency)
	assert.Equal(t, 800*time.Millisecond, cfg.Workspace.LatencyDuration())
	assert.Equal(t, 2*time.Second, cfg.Workspace.ClipboardAckDuration())
	assert.Equal(t, "Customer Order History", cfg.Workspace.DefaultQuery)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.UI.Dark)
	assert.NoError(t, validateConfig(cfg))
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	testConfig := map[string]any{
		"database": map[string]any{
			"path":    "/custom/path/workspace.duckdb",
			"persist": false,
		},
		"workspace": map[string]any{
			"latency":       "50ms",
			"history_limit": 25,
		},
		"logging": map[string]any{
			"level":  "debug",
			"format": "json",
		},
	}

	data, err := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	config := DefaultConfig()
	require.NoError(t, loadConfigFromFile(config, configPath))

	assert.Equal(t, "/custom/path/workspace.duckdb", config.Database.Path)
	assert.False(t, config.Database.Persist)
	assert.Equal(t, "50ms", config.Workspace.Latency)
	assert.Equal(t, 25, config.Workspace.HistoryLimit)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)

	// Keys absent from the file keep their defaults
	assert.Equal(t, "30s", config.Database.QueryTimeout)
	assert.Equal(t, "Customer Order History", config.Workspace.DefaultQuery)
	assert.Equal(t, "stderr", config.Logging.Output)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0600))

	err := loadConfigFromFile(DefaultConfig(), configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	envVars := map[string]string{
		"QUERY_RUNNER_DB_PATH":       "/env/workspace.duckdb",
		"QUERY_RUNNER_DB_PERSIST":    "false",
		"QUERY_RUNNER_LATENCY":       "10ms",
		"QUERY_RUNNER_HISTORY_LIMIT": "3",
		"QUERY_RUNNER_EXPORT_DIR":    "/env/exports",
		"QUERY_RUNNER_CACHE_DIR":     "/env/cache",
		"QUERY_RUNNER_DARK":          "true",
		"QUERY_RUNNER_LOG_LEVEL":     "warn",
		"QUERY_RUNNER_LOG_OUTPUT":    "stdout",
		"QUERY_RUNNER_DEBUG":         "true",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	config := DefaultConfig()
	require.NoError(t, applyEnvironmentOverrides(config))

	assert.Equal(t, "/env/workspace.duckdb", config.Database.Path)
	assert.False(t, config.Database.Persist)
	assert.Equal(t, "10ms", config.Workspace.Latency)
	assert.Equal(t, 3, config.Workspace.HistoryLimit)
	assert.Equal(t, "/env/exports", config.Workspace.ExportDir)
	assert.Equal(t, "/env/cache", config.Cache.Directory)
	assert.True(t, config.UI.Dark)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "stdout", config.Logging.Output)
	assert.True(t, config.Debug.Enabled)

	// Unset variables leave defaults alone
	assert.Equal(t, "2s", config.Workspace.ClipboardAck)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := DefaultConfig()

	overrides := map[string]any{
		"db-path":    "/flag/workspace.duckdb",
		"no-persist": true,
		"latency":    "1s",
		"log-level":  "error",
		"dark":       true,
		"verbose":    true,
	}

	require.NoError(t, applyFlagOverrides(config, overrides))

	assert.Equal(t, "/flag/workspace.duckdb", config.Database.Path)
	assert.False(t, config.Database.Persist)
	assert.Equal(t, "1s", config.Workspace.Latency)
	assert.Equal(t, "error", config.Logging.Level)
	assert.True(t, config.UI.Dark)
	assert.True(t, config.Debug.Verbose)

	err := applyFlagOverrides(config, map[string]any{"bogus": 1})
	assert.ErrorContains(t, err, "unknown flag override")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name          string
		modifyConfig  func(*Config)
		expectError   bool
		errorContains string
	}{
		{
			name:         "valid config",
			modifyConfig: func(_ *Config) {},
			expectError:  false,
		},
		{
			name: "invalid log level",
			modifyConfig: func(c *Config) {
				c.Logging.Level = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log level",
		},
		{
			name: "invalid log format",
			modifyConfig: func(c *Config) {
				c.Logging.Format = "xml"
			},
			expectError:   true,
			errorContains: "invalid log format",
		},
		{
			name: "invalid log output",
			modifyConfig: func(c *Config) {
				c.Logging.Output = "syslog"
			},
			expectError:   true,
			errorContains: "invalid log output",
		},
		{
			name: "invalid latency",
			modifyConfig: func(c *Config) {
				c.Workspace.Latency = "soon"
			},
			expectError:   true,
			errorContains: "invalid workspace latency",
		},
		{
			name: "negative latency",
			modifyConfig: func(c *Config) {
				c.Workspace.Latency = "-1s"
			},
			expectError:   true,
			errorContains: "workspace latency must not be negative",
		},
		{
			name: "zero latency is allowed",
			modifyConfig: func(c *Config) {
				c.Workspace.Latency = "0s"
			},
			expectError: false,
		},
		{
			name: "negative history limit",
			modifyConfig: func(c *Config) {
				c.Workspace.HistoryLimit = -1
			},
			expectError:   true,
			errorContains: "history limit must be non-negative",
		},
		{
			name: "invalid cache cleanup frequency",
			modifyConfig: func(c *Config) {
				c.Cache.CleanupFreq = "invalid"
			},
			expectError:   true,
			errorContains: "invalid cache cleanup frequency",
		},
		{
			name: "non-positive cache ttl",
			modifyConfig: func(c *Config) {
				c.Cache.TTLHours = 0
			},
			expectError:   true,
			errorContains: "cache ttl hours must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modifyConfig(config)

			err := validateConfig(config)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skip("home directory not available")
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"absolute path", "/absolute/path", "/absolute/path"},
		{"relative path", "relative/path", "relative/path"},
		{"home directory only", "~", homeDir},
		{"home directory with path", "~/exports/out.csv", filepath.Join(homeDir, "exports/out.csv")},
		{"tilde user form is left alone", "~other/x", "~other/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandPath(tt.input))
		})
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	tempConfigPath := filepath.Join(t.TempDir(), "nested", "config.json")
	t.Setenv(configEnvVar, tempConfigPath)

	config := DefaultConfig()
	config.Workspace.Latency = "5ms"
	config.Logging.Level = "debug"

	require.NoError(t, SaveConfig(config))

	loaded, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5ms", loaded.Workspace.Latency)
	assert.Equal(t, "debug", loaded.Logging.Level)
}

func TestLoadConfigWithOverrides(t *testing.T) {
	t.Setenv(configEnvVar, filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("QUERY_RUNNER_LATENCY", "20ms")

	config, err := LoadConfigWithOverrides(map[string]any{"latency": "30ms"})
	require.NoError(t, err)

	// Flags win over the environment
	assert.Equal(t, "30ms", config.Workspace.Latency)
	assert.Equal(t, DefaultConfig().Database.Path, config.Database.Path)

	_, err = LoadConfigWithOverrides(map[string]any{"log-level": "loud"})
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()

	config := DefaultConfig()
	config.Database.Path = filepath.Join(root, "db", "workspace.duckdb")
	config.Cache.Directory = filepath.Join(root, "cache")
	config.Workspace.ExportDir = filepath.Join(root, "exports")

	require.NoError(t, config.EnsureDirectories())

	for _, dir := range []string{"db", "cache", "exports"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
