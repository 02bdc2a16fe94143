package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joss/seccompare/internal/config"
	"github.com/joss/seccompare/internal/ingest"
	"github.com/joss/seccompare/internal/logging"
	"github.com/joss/seccompare/internal/metrics"
	"github.com/joss/seccompare/internal/session"
	"github.com/joss/seccompare/internal/storage"
	"github.com/joss/seccompare/internal/store"
	"github.com/joss/seccompare/internal/validation"
	"github.com/joss/seccompare/internal/view"
)

// App holds the wired services shared by every command.
type App struct {
	Config      *config.Config
	KV          store.KV
	Store       *storage.SessionStore
	Sessions    *session.Manager
	Validations *validation.Repository
	Ingester    *ingest.Ingester
	Metrics     *metrics.Metrics
}

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"store":      "store.backend",
	"store-path": "store.path",
	"log-level":  "log.level",
}

// NewApp loads configuration and opens the store.
func NewApp(cmd *cobra.Command) (*App, error) {
	v, err := config.New(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	return Wire(cfg, metrics.Global())
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

// Wire opens the configured backend and builds the service graph on top of it.
func Wire(cfg *config.Config, m *metrics.Metrics) (*App, error) {
	logging.SetLevel(cfg.Log.Level)

	path := cfg.StorePath()
	if cfg.Store.Backend != store.BackendMemory {
		dir := path
		if cfg.Store.Backend == store.BackendSQLite {
			dir = filepath.Dir(path)
		}
		if err := config.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	kv, err := storage.Open(storage.OpenOptions{
		Backend:    cfg.Store.Backend,
		Path:       path,
		SyncWrites: cfg.Store.SyncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	st := storage.NewSessionStore(kv, storage.WithMetrics(m))
	sessions := session.NewManager(st, session.OrphanPolicy(cfg.Validation.OrphanPolicy))

	return &App{
		Config:   cfg,
		KV:       kv,
		Store:    st,
		Sessions: sessions,
		Validations: validation.NewRepository(st, sessions,
			validation.WithValidatedBy(cfg.Validation.ValidatedBy),
			validation.WithMetrics(m)),
		Ingester: ingest.NewIngester(sessions),
		Metrics:  m,
	}, nil
}

// Binding returns a view binding over the app's services.
func (a *App) Binding() *view.Binding {
	return view.NewBinding(a.Sessions, a.Validations)
}

// WatchPath is the on-disk location of the store, or "" for memory.
func (a *App) WatchPath() string {
	if a.Config.Store.Backend == store.BackendMemory {
		return ""
	}
	return a.Config.StorePath()
}

// Close releases the store.
func (a *App) Close() {
	if a.KV == nil {
		return
	}
	if err := a.KV.Close(); err != nil {
		logging.New("cli").Warn("store_close_failed", nil, err)
	}
	a.KV = nil
}
