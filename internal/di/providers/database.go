package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/quillpost/quillpost-server/internal/config"
	"github.com/quillpost/quillpost-server/internal/logger"
	"github.com/quillpost/quillpost-server/internal/store"
	"github.com/quillpost/quillpost-server/internal/store/postgres"
	"github.com/quillpost/quillpost-server/internal/store/sqlite"
)

// StoreHandle wraps the article store with shutdown capability.
type StoreHandle struct {
	store.ArticleStore
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the article store selected by DB_DRIVER.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		db, err := postgres.Open(ctx, cfg.Database.URL, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", config.DriverPostgres)
		return &StoreHandle{ArticleStore: db}, nil

	case config.DriverSQLite:
		dbPath := cfg.SQLitePath()
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}

		db, err := sqlite.Open(dbPath, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", config.DriverSQLite, "path", dbPath)
		return &StoreHandle{ArticleStore: db}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
