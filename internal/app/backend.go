package app

import (
	"fmt"

	"shopsmart/internal/config"
	"shopsmart/internal/database"
	"shopsmart/internal/metrics"
	"shopsmart/internal/storage"

	"go.uber.org/zap"
)

// Backend is the local state selected by configuration: the slot storage
// history lives in, and the metrics database when one is kept.
type Backend struct {
	KV      storage.KV
	Metrics *metrics.Store

	db *database.DB
}

// OpenBackend opens the storage named by cfg.HistoryBackend. The SQLite
// database is opened for every backend but memory and holds the metrics.
func OpenBackend(cfg *config.Config, log *zap.Logger) (*Backend, error) {
	if cfg.HistoryBackend == config.BackendMemory {
		return &Backend{KV: storage.NewMemory()}, nil
	}

	db, err := database.NewDB(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	b := &Backend{Metrics: metrics.NewStore(db.SQL), db: db}

	switch cfg.HistoryBackend {
	case config.BackendSQLite:
		b.KV = database.NewKV(db.SQL)
	default:
		fs, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open history directory: %w", err)
		}
		b.KV = fs
	}
	return b, nil
}

// Recorder returns the metrics sink, nil when metrics are not kept.
func (b *Backend) Recorder() metrics.Recorder {
	if b.Metrics == nil {
		return nil
	}
	return b.Metrics
}

// Close releases the database.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
