package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/joss/seccompare/internal/store"
)

// EnvPrefix is prepended to every environment override, e.g.
// SECCOMPARE_STORE_BACKEND overrides store.backend.
const EnvPrefix = "SECCOMPARE"

// Orphan policies decide what happens to validations whose finding
// disappears when a session's findings are replaced.
const (
	OrphanRetain = "retain"
	OrphanPrune  = "prune"
)

// Config represents the complete seccompare configuration
type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Validation ValidationConfig `mapstructure:"validation"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// StoreConfig selects and locates the session store backend
type StoreConfig struct {
	// Backend is one of "memory", "sqlite", "badger"
	Backend string `mapstructure:"backend"`
	// Path is the file (sqlite) or directory (badger) holding the data.
	// Relative paths resolve against the data directory.
	Path string `mapstructure:"path"`
	// SyncWrites makes badger fsync every write
	SyncWrites bool `mapstructure:"sync_writes"`
}

// ValidationConfig controls validation bookkeeping
type ValidationConfig struct {
	// OrphanPolicy is "retain" (default) or "prune"
	OrphanPolicy string `mapstructure:"orphan_policy"`
	// ValidatedBy is recorded on validations when the caller gives no name
	ValidatedBy string `mapstructure:"validated_by"`
}

// LogConfig controls structured logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for serve-metrics
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:    store.BackendSQLite,
			Path:       "sessions.db",
			SyncWrites: true,
		},
		Validation: ValidationConfig{
			OrphanPolicy: OrphanRetain,
			ValidatedBy:  "analyst",
		},
		Log: LogConfig{
			Level: "warn",
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("store.backend", defaults.Store.Backend)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("store.sync_writes", defaults.Store.SyncWrites)

	v.SetDefault("validation.orphan_policy", defaults.Validation.OrphanPolicy)
	v.SetDefault("validation.validated_by", defaults.Validation.ValidatedBy)

	v.SetDefault("log.level", defaults.Log.Level)

	v.SetDefault("metrics.addr", defaults.Metrics.Addr)
}

// New returns a viper instance with defaults and environment overrides
// wired. If file is non-empty it is read as the config file; a missing
// default config file is not an error.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := file != ""
	if !explicit {
		file = GetPaths().ConfigFile
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || isMissingFile(err)) {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var problems []string
	if !contains(store.Backends(), c.Store.Backend) {
		problems = append(problems, fmt.Sprintf("store.backend: %q is not one of %v", c.Store.Backend, store.Backends()))
	}
	if c.Store.Backend != store.BackendMemory && c.Store.Path == "" {
		problems = append(problems, "store.path: required for persistent backends")
	}
	if c.Validation.OrphanPolicy != OrphanRetain && c.Validation.OrphanPolicy != OrphanPrune {
		problems = append(problems, fmt.Sprintf("validation.orphan_policy: %q is not retain or prune", c.Validation.OrphanPolicy))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// StorePath resolves the store path against the data directory.
func (c *Config) StorePath() string {
	if c.Store.Path == "" || filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(GetPaths().Data, c.Store.Path)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// isMissingFile reports whether viper failed because the file is absent.
// SetConfigFile bypasses the search path, so viper surfaces the raw
// *fs.PathError rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
