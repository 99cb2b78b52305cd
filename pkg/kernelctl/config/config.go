// Package config loads kernelctl configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Default values applied when the config file and environment are silent.
const (
	DefaultPollInterval  = time.Second
	DefaultRetentionDays = 90
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxAge     int `mapstructure:"max_age"`
	MaxBackups int `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// SchedConfig configures the sched_ext integration.
type SchedConfig struct {
	Service      string        `mapstructure:"service"`
	ConfPath     string        `mapstructure:"conf_path"`
	StateFile    string        `mapstructure:"state_file"`
	OpsFile      string        `mapstructure:"ops_file"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// HistoryConfig configures transaction history retention.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	PacmanBin  string        `mapstructure:"pacman_bin"`
	Helper     string        `mapstructure:"helper"`
	ModulesDir string        `mapstructure:"modules_dir"`
	Sched      SchedConfig   `mapstructure:"sched"`
	History    HistoryConfig `mapstructure:"history"`
	Logging    LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/kernelctl/config.yaml
//   - $HOME/.config/kernelctl/config.yaml
//
// Environment variables are prefixed with KERNELCTL
// (e.g., KERNELCTL_PACMAN_BIN).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "kernelctl"))
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "kernelctl"))

	v.SetEnvPrefix("KERNELCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.HasPrefix(cfg.History.Path, "~") {
		cfg.History.Path = filepath.Join(homeDir, cfg.History.Path[1:])
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pacman_bin", "/usr/bin/pacman")
	v.SetDefault("helper", "/usr/bin/pkexec")
	v.SetDefault("modules_dir", "/usr/lib/modules")

	v.SetDefault("sched.service", "scx")
	v.SetDefault("sched.conf_path", "/etc/default/scx")
	v.SetDefault("sched.state_file", "/sys/kernel/sched_ext/state")
	v.SetDefault("sched.ops_file", "/sys/kernel/sched_ext/root/ops")
	v.SetDefault("sched.poll_interval", DefaultPollInterval)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size_mb", 5)
	v.SetDefault("logging.rotation.max_age", 14)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.components", map[string]string{
		"catalog":  "info",
		"worker":   "info",
		"schedext": "info",
		"tui":      "info",
	})
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "kernelctl"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "kernelctl"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// WriteDefault writes a default config file if none exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# kernelctl configuration

# Package manager executable
pacman_bin: /usr/bin/pacman

# Privilege elevation helper
helper: /usr/bin/pkexec

# Kernel module trees, one directory per installed release
modules_dir: /usr/lib/modules

# sched_ext integration
sched:
  service: scx
  conf_path: /etc/default/scx
  state_file: /sys/kernel/sched_ext/state
  ops_file: /sys/kernel/sched_ext/root/ops
  poll_interval: 1s

# Transaction history
history:
  enabled: true
  # Store path (empty means use default: $XDG_DATA_HOME/kernelctl/history.db)
  path: ""
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/kernelctl/kernelctl.log)
  path: ""
  rotation:
    max_size_mb: 5
    max_age: 14       # days
    max_backups: 3
  # Per-component log levels
  components:
    catalog: info
    worker: info
    schedext: info
    tui: info
`, DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

// DataDir returns $XDG_DATA_HOME/kernelctl/ for the history database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "kernelctl")
}

// StateDir returns $XDG_STATE_HOME/kernelctl/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "kernelctl")
}

// DefaultDBPath returns the default history database path.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "history.db")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "kernelctl.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
