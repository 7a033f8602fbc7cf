// Package engine orchestrates weekly snapshot batches: it validates
// parameters, discovers clients, and runs each client through the
// pipeline stages with per-client failure isolation.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/adpulse-labs/adpulse/internal/audit"
	"github.com/adpulse-labs/adpulse/internal/state"
	"github.com/adpulse-labs/adpulse/pkg/core"
)

// Config configures an Engine. When Store is nil one is constructed
// from Driver and DSN and migrated on startup.
type Config struct {
	Store  core.Store
	Driver string
	DSN    string
	Logger *slog.Logger
	// UserID identifies the actor on audit entries. Batch runs default
	// to "system".
	UserID string
}

// Engine runs snapshot batches against one backing store.
type Engine struct {
	store     core.Store
	logger    *slog.Logger
	audit     *audit.Logger
	ownsStore bool
}

// New builds an Engine, opening and migrating the backing store when
// one was not injected.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	userID := cfg.UserID
	if userID == "" {
		userID = "system"
	}

	e := &Engine{logger: logger}

	if cfg.Store != nil {
		e.store = cfg.Store
	} else {
		store, err := state.NewStore(cfg.Driver, logger)
		if err != nil {
			return nil, err
		}
		if err := store.Open(cfg.DSN); err != nil {
			return nil, err
		}
		if err := store.Migrate(); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to migrate store: %w", err)
		}
		e.store = store
		e.ownsStore = true
	}

	e.audit = audit.New(e.store, logger, userID)
	return e, nil
}

// Close releases the backing store if the engine opened it.
func (e *Engine) Close() error {
	if !e.ownsStore {
		return nil
	}
	return e.store.Close()
}
