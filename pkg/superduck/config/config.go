// Package config loads the superduck configuration from defaults, an
// optional YAML file and SUPERDUCK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AWSConfig holds the bucket location and credentials.
type AWSConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id" validate:"omitempty,len=20,alphanum"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key" validate:"omitempty,len=40"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket" validate:"omitempty,min=3,max=63"`
	Region          string `mapstructure:"region" yaml:"region" validate:"required"`
	// Endpoint overrides the S3 endpoint for S3-compatible stores.
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	MaxAttempts int    `mapstructure:"max_attempts" yaml:"max_attempts" validate:"min=1,max=20"`
}

// ExportConfig configures list exports.
type ExportConfig struct {
	FullPaths bool   `mapstructure:"full_paths" yaml:"full_paths"`
	Format    string `mapstructure:"format" yaml:"format" validate:"oneof=csv tsv json yaml pdf tree"`
}

// DownloadConfig configures downloads.
type DownloadConfig struct {
	// FullPaths recreates the object key's directories under Path.
	FullPaths bool   `mapstructure:"full_paths" yaml:"full_paths"`
	Path      string `mapstructure:"path" yaml:"path"`
}

// HistoryConfig configures the operation history store.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Path          string `mapstructure:"path" yaml:"path"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days" validate:"min=0"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"min=0"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Path       string            `mapstructure:"path" yaml:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components map[string]string `mapstructure:"components" yaml:"components"`
}

// Config represents the application configuration.
type Config struct {
	AWS           AWSConfig      `mapstructure:"aws" yaml:"aws"`
	Database      string         `mapstructure:"database" yaml:"database" validate:"required"`
	DisableDelete bool           `mapstructure:"disable_delete" yaml:"disable_delete"`
	Export        ExportConfig   `mapstructure:"export" yaml:"export"`
	Download      DownloadConfig `mapstructure:"download" yaml:"download"`
	History       HistoryConfig  `mapstructure:"history" yaml:"history"`
	Logging       LoggingConfig  `mapstructure:"logging" yaml:"logging"`

	// file is the config file that was read, empty if none.
	file string
}

// File returns the config file that was read, or "" when only defaults and
// the environment were used.
func (c *Config) File() string { return c.file }

// Load loads configuration. When path is empty the file is looked up as
// config.yaml in ConfigDir(); a missing file is not an error.
//
// Environment variables are prefixed with SUPERDUCK_ and use underscores for
// nesting (e.g. SUPERDUCK_AWS_BUCKET).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix("SUPERDUCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case path != "" && errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.file = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.file); err != nil {
		cfg.file = ""
	}

	for _, p := range []*string{&cfg.Database, &cfg.Download.Path, &cfg.History.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.region", DefaultRegion)
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.max_attempts", DefaultMaxAttempts)

	v.SetDefault("database", DefaultDatabasePath())
	v.SetDefault("disable_delete", true)

	v.SetDefault("export.full_paths", true)
	v.SetDefault("export.format", DefaultExportFormat)

	v.SetDefault("download.full_paths", false)
	v.SetDefault("download.path", xdg.UserDirs.Download)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", filepath.Join(DataDir(), "history"))
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MiB")
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.components", map[string]string{
		"catalog":  "info",
		"transfer": "info",
		"tui":      "info",
	})
}

// ConfigDir returns $XDG_CONFIG_HOME/superduck.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "superduck")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns $XDG_DATA_HOME/superduck/ for the catalog database and
// the history store.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "superduck")
}

// StateDir returns $XDG_STATE_HOME/superduck/ for logs and the lock file.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "superduck")
}

// DefaultDatabasePath returns the default catalog database path.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), DatabaseFileName)
}

// LockPath returns the single-instance lock file path.
func LockPath() string {
	return filepath.Join(StateDir(), "superduck.lock")
}

// WriteDefault writes a commented default config file to path. It does
// nothing if the file already exists.
func WriteDefault(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# SuperDuck configuration

aws:
  # Credentials. Leave empty to use the default AWS credential chain.
  access_key_id: ""
  secret_access_key: ""
  bucket: ""
  region: %s
  # Endpoint for S3-compatible stores (empty uses AWS).
  endpoint: ""
  max_attempts: %d

# Catalog database file
database: %s

# Refuse delete operations
disable_delete: true

export:
  full_paths: true
  # csv, tsv, json, yaml, pdf or tree
  format: %s

download:
  # Recreate the object key directories when downloading
  full_paths: false
  path: %s

history:
  enabled: true
  path: %s
  retention_days: %d

logging:
  # debug, info, warn, error
  level: info
  # Empty means $XDG_STATE_HOME/superduck/superduck.log
  path: ""
  rotation:
    max_size: 10MiB
    max_backups: 3
  components:
    catalog: info
    transfer: info
    tui: info
`, DefaultRegion, DefaultMaxAttempts, DefaultDatabasePath(), DefaultExportFormat,
		xdg.UserDirs.Download, filepath.Join(DataDir(), "history"), DefaultRetentionDays)

	// credentials may end up in this file
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}
