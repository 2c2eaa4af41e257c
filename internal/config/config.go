package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/Explorer/internal/domain"
	"github.com/Ning0612/Explorer/internal/logger"
)

// Config represents the complete configuration for explorer
type Config struct {
	// DataDir holds the resource store and the lock file
	DataDir string `mapstructure:"data_dir"`

	// LockStaleTimeout is how long a lock held from another host is
	// honored before it may be broken
	LockStaleTimeout time.Duration `mapstructure:"lock_stale_timeout"`

	// Log configures the global logger
	Log LogConfig `mapstructure:"log"`

	// Sources define the locations that can be imported
	Sources []domain.Source `mapstructure:"sources"`
}

// LogConfig configures logging output
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig configures the rotating log file
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: invalid log level: %s", domain.ErrConfigInvalid, c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: invalid log format: %s", domain.ErrConfigInvalid, c.Log.Format)
	}
	if c.LockStaleTimeout < 0 {
		return fmt.Errorf("%w: lock_stale_timeout cannot be negative", domain.ErrConfigInvalid)
	}
	if c.Log.File.Enabled && c.Log.File.Path == "" {
		return fmt.Errorf("%w: log file enabled without a path", domain.ErrConfigInvalid)
	}

	// Check source name uniqueness and backend settings
	sourceNames := make(map[string]bool)
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("%w: source name cannot be empty", domain.ErrConfigInvalid)
		}
		if !validSourceName(s.Name) {
			return fmt.Errorf("%w: source name must be a single path segment: %s", domain.ErrConfigInvalid, s.Name)
		}
		if sourceNames[s.Name] {
			return fmt.Errorf("%w: duplicate source name: %s", domain.ErrConfigInvalid, s.Name)
		}
		if !s.Type.IsValid() {
			return fmt.Errorf("%w: invalid source type: %s", domain.ErrConfigInvalid, s.Type)
		}
		if s.Type == domain.SourceLocal && s.Root == "" {
			return fmt.Errorf("%w: source %s has no root path", domain.ErrConfigInvalid, s.Name)
		}
		if s.Type == domain.SourceGDrive && (s.ClientID == "" || s.ClientSecret == "") {
			return fmt.Errorf("%w: gdrive source %s requires client_id and client_secret",
				domain.ErrConfigInvalid, s.Name)
		}
		sourceNames[s.Name] = true
	}

	return nil
}

func validSourceName(name string) bool {
	for _, r := range name {
		if r == '/' || r == '\\' {
			return false
		}
	}
	return name != "." && name != ".."
}

// GetSource returns a source by name
func (c *Config) GetSource(name string) (*domain.Source, error) {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			return &c.Sources[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, name)
}

// GetDataDir returns the expanded data directory, defaulting to the
// user config directory
func (c *Config) GetDataDir() string {
	if c.DataDir != "" {
		return ExpandPath(c.DataDir)
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "explorer")
	}
	return ".explorer"
}

// GetLockPath returns the directory holding the store lock
func (c *Config) GetLockPath() string {
	return c.GetDataDir()
}

// LoggerConfig converts the log section into a logger configuration
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:   logger.ParseLevel(c.Log.Level),
		Format:  logger.ParseFormat(c.Log.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if c.Log.File.Enabled {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       ExpandPath(c.Log.File.Path),
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			MaxBackups: c.Log.File.MaxBackups,
			Compress:   c.Log.File.Compress,
		}
	}
	return cfg
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	// Expand ~ to home directory
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
