package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	envPrefix     = "QUERY_RUNNER_"
	configEnvVar  = envPrefix + "CONFIG"
	appDirName    = "query-runner"
	configDirPerm = 0755
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Workspace WorkspaceConfig `json:"workspace"`
	Cache     CacheConfig     `json:"cache"`
	UI        UIConfig        `json:"ui"`
	Logging   LoggingConfig   `json:"logging"`
	Debug     DebugConfig     `json:"debug"`
}

// DatabaseConfig controls where the workspace is persisted between visits
type DatabaseConfig struct {
	Path         string `json:"path"          env:"DB_PATH"`
	Persist      bool   `json:"persist"       env:"DB_PERSIST"`
	QueryTimeout string `json:"query_timeout" env:"DB_QUERY_TIMEOUT"`
}

// WorkspaceConfig controls the session coordinator and the execution simulator
type WorkspaceConfig struct {
	Latency      string `json:"latency"       env:"LATENCY"`
	HistoryLimit int    `json:"history_limit" env:"HISTORY_LIMIT"` // 0 keeps every entry
	DefaultQuery string `json:"default_query" env:"DEFAULT_QUERY"`
	ExportDir    string `json:"export_dir"    env:"EXPORT_DIR"`
	ClipboardAck string `json:"clipboard_ack" env:"CLIPBOARD_ACK"`
	CatalogFile  string `json:"catalog_file"  env:"CATALOG_FILE"` // replaces the embedded catalog when set
}

// CacheConfig represents the editor draft cache
type CacheConfig struct {
	Directory   string `json:"directory"         env:"CACHE_DIR"`
	TTLHours    int    `json:"ttl_hours"         env:"CACHE_TTL_HOURS"`
	CleanupFreq string `json:"cleanup_frequency" env:"CACHE_CLEANUP_FREQ"`
}

// UIConfig holds display-only preferences
type UIConfig struct {
	Dark bool `json:"dark" env:"DARK"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level     string `json:"level"      env:"LOG_LEVEL"`      // debug, info, warn, error
	Format    string `json:"format"     env:"LOG_FORMAT"`     // text, json
	Output    string `json:"output"     env:"LOG_OUTPUT"`     // stdout, stderr, file
	File      string `json:"file"       env:"LOG_FILE"`       // log file path when output is file
	AddSource bool   `json:"add_source" env:"LOG_ADD_SOURCE"` // add source file and line info to logs
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled bool `json:"enabled" env:"DEBUG"`
	Verbose bool `json:"verbose" env:"VERBOSE"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "~/.config/query-runner/workspace.duckdb",
			Persist:      true,
			QueryTimeout: "30s",
		},
		Workspace: WorkspaceConfig{
			Latency:      "800ms",
			HistoryLimit: 0,
			DefaultQuery: "Customer Order History",
			ExportDir:    ".",
			ClipboardAck: "2s",
		},
		Cache: CacheConfig{
			Directory:   "~/.cache/query-runner",
			TTLHours:    168,
			CleanupFreq: "1h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			File:   "~/.config/query-runner/logs/app.log",
		},
	}
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides.
// Precedence, lowest first: defaults, config file, environment, flags.
func LoadConfigWithOverrides(flagOverrides map[string]any) (*Config, error) {
	config := DefaultConfig()

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := applyEnvironmentOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile overlays the keys present in a JSON file onto config
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides applies QUERY_RUNNER_* variables that are set
func applyEnvironmentOverrides(config *Config) error {
	return env.ParseWithOptions(config, env.Options{
		Prefix: envPrefix,
	})
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]any) error {
	for key, value := range overrides {
		switch key {
		case "db-path":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Path = str
			}
		case "no-persist":
			if b, ok := value.(bool); ok && b {
				config.Database.Persist = false
			}
		case "latency":
			if str, ok := value.(string); ok && str != "" {
				config.Workspace.Latency = str
			}
		case "export-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Workspace.ExportDir = str
			}
		case "catalog":
			if str, ok := value.(string); ok && str != "" {
				config.Workspace.CatalogFile = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "dark":
			if b, ok := value.(bool); ok && b {
				config.UI.Dark = true
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok {
				config.Debug.Enabled = b
			}
		default:
			return fmt.Errorf("unknown flag override: %s", key)
		}
	}

	return nil
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	durations := map[string]string{
		"database query timeout":  config.Database.QueryTimeout,
		"workspace latency":       config.Workspace.Latency,
		"clipboard ack interval":  config.Workspace.ClipboardAck,
		"cache cleanup frequency": config.Cache.CleanupFreq,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %s", name, value)
		}

		if d < 0 {
			return fmt.Errorf("%s must not be negative: %s", name, value)
		}
	}

	if config.Workspace.HistoryLimit < 0 {
		return fmt.Errorf(
			"workspace history limit must be non-negative: %d",
			config.Workspace.HistoryLimit,
		)
	}

	if config.Cache.TTLHours <= 0 {
		return fmt.Errorf("cache ttl hours must be positive: %d", config.Cache.TTLHours)
	}

	return nil
}

// LatencyDuration returns the parsed simulated latency
func (w WorkspaceConfig) LatencyDuration() time.Duration {
	d, _ := time.ParseDuration(w.Latency)
	return d
}

// ClipboardAckDuration returns the parsed acknowledgment interval
func (w WorkspaceConfig) ClipboardAckDuration() time.Duration {
	d, _ := time.ParseDuration(w.ClipboardAck)
	return d
}

// QueryTimeoutDuration returns the parsed storage timeout
func (d DatabaseConfig) QueryTimeoutDuration() time.Duration {
	v, _ := time.ParseDuration(d.QueryTimeout)
	return v
}

// CleanupDuration returns the parsed cleanup frequency
func (c CacheConfig) CleanupDuration() time.Duration {
	d, _ := time.ParseDuration(c.CleanupFreq)
	return d
}

// TTL returns the draft time-to-live
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		return ExpandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Database.Path = ExpandPath(c.Database.Path)
	c.Workspace.ExportDir = ExpandPath(c.Workspace.ExportDir)
	c.Workspace.CatalogFile = ExpandPath(c.Workspace.CatalogFile)
	c.Cache.Directory = ExpandPath(c.Cache.Directory)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appDirName)
	}

	return filepath.Join(homeDir, ".config", appDirName)
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Cache.Directory, c.Workspace.ExportDir}
	if c.Database.Persist {
		dirs = append(dirs, filepath.Dir(c.Database.Path))
	}

	if strings.EqualFold(c.Logging.Output, "file") {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, configDirPerm); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
