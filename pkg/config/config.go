package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	// Optional logging settings
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`

	// Run journal; "off" disables it
	HistoryDB string `mapstructure:"history_db"`

	// Engine binaries
	BorgBin  string `mapstructure:"borg_bin"`
	RsyncBin string `mapstructure:"rsync_bin"`

	// Zero means no timeout
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	ConfigPath string
}

const (
	HistoryDisabled = "off"
	DefaultLogLevel = "info"
	DefaultBorgBin  = "borg"
	DefaultRsyncBin = "rsync"
)

// DefaultConfigPath returns $XDG_CONFIG_HOME/snapchain/config.yml.
func DefaultConfigPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "snapchain", "config.yml")
}

// DefaultHistoryDB returns $XDG_STATE_HOME/snapchain/history.sqlite3.
func DefaultHistoryDB() string {
	return filepath.Join(xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state")), "snapchain", "history.sqlite3")
}

// Load reads the application config. A missing default file is fine; a
// missing file named explicitly is not.
func Load(configPath string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath()
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// Set defaults
	viper.SetDefault("log_level", DefaultLogLevel)
	viper.SetDefault("log_file", "")
	viper.SetDefault("history_db", DefaultHistoryDB())
	viper.SetDefault("borg_bin", DefaultBorgBin)
	viper.SetDefault("rsync_bin", DefaultRsyncBin)
	viper.SetDefault("command_timeout", time.Duration(0))

	// Allow environment variable overrides
	viper.SetEnvPrefix("SNAPCHAIN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigPath = configPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level is invalid: %w", err)
	}

	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must not be negative")
	}

	if c.BorgBin == "" || c.RsyncBin == "" {
		return fmt.Errorf("borg_bin and rsync_bin must not be empty")
	}

	return nil
}

func (c *Config) HistoryEnabled() bool {
	return c.HistoryDB != "" && c.HistoryDB != HistoryDisabled
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}
