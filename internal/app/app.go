// Package app wires together configuration, the logger, the HTTP source
// and the local store into a single Deps struct that commands receive at
// runtime.
package app

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/derickschaefer/spread/internal/config"
	"github.com/derickschaefer/spread/internal/source"
	"github.com/derickschaefer/spread/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store is nil until OpenStore or RequireStore is called.
type Deps struct {
	Config *config.Config
	Logger *log.Logger
	Source *source.Client
	Store  *store.Store
}

// New builds a Deps from resolved config. The store is opened lazily.
func New(cfg *config.Config, logger *log.Logger) *Deps {
	if logger == nil {
		logger = log.Default()
	}
	return &Deps{
		Config: cfg,
		Logger: logger,
		Source: source.NewClient(cfg.Timeout, cfg.Rate, logger),
	}
}

// RequireStore opens the bbolt database at Config.DBPath, or returns an
// error if it cannot be opened.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path configured (set --db or %s)", config.EnvDBPath)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	d.Logger.Debug("store opened", "path", s.Path())
	d.Store = s
	return nil
}

// OpenStore is the best-effort variant used by the layout cache: a store
// that cannot be opened disables caching instead of failing the command.
func (d *Deps) OpenStore() bool {
	if d.Config.NoCache {
		return false
	}
	if err := d.RequireStore(); err != nil {
		d.Logger.Warn("layout cache disabled", "err", err)
		return false
	}
	return true
}

// Close releases the store if it was opened.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
