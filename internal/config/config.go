// Package config loads application configuration the way the
// teacher's CLI loaded its own: a TOML file under the application
// home directory, read through viper so environment variables with
// an AGENTVAULT_-style prefix can override any field.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the sync engine's tunables. FreeUploadBudgetBytes is
// exposed as config rather than a hard-coded literal per spec.md §9's
// open question — the free-upload budget is a property of whichever
// ledger bundling service is in use. The pull size caps are not config;
// they are constants in internal/ledger (caps.go).
type Config struct {
	AppName                 string        `mapstructure:"app_name"`
	HomeDir                 string        `mapstructure:"home_dir"`
	FreeUploadBudgetBytes   int           `mapstructure:"free_upload_budget_bytes"`
	FactSyncPeriod          time.Duration `mapstructure:"fact_sync_period"`
	ConversationWatchPeriod time.Duration `mapstructure:"conversation_watch_period"`
}

// Default returns the baseline configuration before any file/env
// overrides are applied.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		AppName:                 "agentvault",
		HomeDir:                 filepath.Join(home, ".agentvault"),
		FreeUploadBudgetBytes:   92160, // 90 KiB
		FactSyncPeriod:          60 * time.Second,
		ConversationWatchPeriod: 30 * time.Second,
	}
}

// Load reads config.toml under home (if present) and env var overrides
// (prefix AGENTVAULT_, e.g. AGENTVAULT_FREE_UPLOAD_BUDGET_BYTES) on top
// of Default().
func Load(home string) (Config, error) {
	cfg := Default()
	if home != "" {
		cfg.HomeDir = home
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(cfg.HomeDir)
	v.SetEnvPrefix("AGENTVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("home_dir", cfg.HomeDir)
	v.SetDefault("free_upload_budget_bytes", cfg.FreeUploadBudgetBytes)
	v.SetDefault("fact_sync_period", cfg.FactSyncPeriod)
	v.SetDefault("conversation_watch_period", cfg.ConversationWatchPeriod)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("config: read %s/config.toml: %w", cfg.HomeDir, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// DBPath is the embedded local store's on-disk path.
func (c Config) DBPath() string {
	return filepath.Join(c.HomeDir, "memory.db")
}

// SaltPath is the on-disk path of the raw 16-byte salt, mode 0600.
func (c Config) SaltPath() string {
	return filepath.Join(c.HomeDir, "salt")
}

// IdentityPath is the on-disk path of the encrypted private key blob,
// mode 0600.
func (c Config) IdentityPath() string {
	return filepath.Join(c.HomeDir, "identity.enc")
}
