package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// IMAPConfig holds an explicit server override. When Host is empty the
// server is derived from the account address domain.
type IMAPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// ScanConfig holds the header-scan tuning knobs.
type ScanConfig struct {
	// Workers is the number of concurrent IMAP sessions used for a scan.
	// 1 selects the sequential single-session mode.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// Mode is "fast" (From only) or "full" (From, Subject, Date,
	// List-Unsubscribe, size).
	Mode string `mapstructure:"mode" yaml:"mode"`

	// DefaultFolder is the folder preselected in the scan form.
	DefaultFolder string `mapstructure:"default_folder" yaml:"default_folder"`

	// TimeoutSec bounds connect and fetch per worker session.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// PurgeConfig holds the bulk-removal tuning knobs.
type PurgeConfig struct {
	// ChunkSize is the number of UIDs per move/delete command.
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size"`

	// AllowTrashFallback permits a failed trash move to degrade to a
	// permanent delete. The degradation is always reported to the user.
	AllowTrashFallback bool `mapstructure:"allow_trash_fallback" yaml:"allow_trash_fallback"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	IMAP  IMAPConfig  `mapstructure:"imap" yaml:"imap"`
	Scan  ScanConfig  `mapstructure:"scan" yaml:"scan"`
	Purge PurgeConfig `mapstructure:"purge" yaml:"purge"`

	// RememberCredentials enables storing the app password in the
	// system keyring between runs.
	RememberCredentials bool `mapstructure:"remember_credentials" yaml:"remember_credentials"`

	// LastAddress is the most recently used account address, kept so
	// the scan form can look up its keyring entry. Never the secret.
	LastAddress string `mapstructure:"last_address" yaml:"last_address"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/email-assassin/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "email-assassin", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Scan: ScanConfig{
			Workers:       8,
			Mode:          string(FetchFast),
			DefaultFolder: "INBOX",
			TimeoutSec:    60,
		},
		Purge: PurgeConfig{
			ChunkSize:          1000,
			AllowTrashFallback: true,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("scan.workers", 8)
	v.SetDefault("scan.mode", string(FetchFast))
	v.SetDefault("scan.default_folder", "INBOX")
	v.SetDefault("scan.timeout_sec", 60)
	v.SetDefault("purge.chunk_size", 1000)
	v.SetDefault("purge.allow_trash_fallback", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Scan.Workers < 1 {
		cfg.Scan.Workers = 1
	}
	if cfg.Purge.ChunkSize < 1 {
		cfg.Purge.ChunkSize = 1000
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("imap", cfg.IMAP)
	v.Set("scan", cfg.Scan)
	v.Set("purge", cfg.Purge)
	v.Set("remember_credentials", cfg.RememberCredentials)
	v.Set("last_address", cfg.LastAddress)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
