package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aleister1102/slotwatch/internal/config"
	"github.com/rs/zerolog"
)

// SQLStore persists tracked resources and their slots. Every method runs in its
// own statement or transaction; there are no cross-call transactions.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	mu      sync.RWMutex
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSQLStoreFromConfig opens the backend selected by the storage section.
func NewSQLStoreFromConfig(cfg config.StorageConfig, logger zerolog.Logger) (*SQLStore, error) {
	return NewSQLStore(cfg.Driver, cfg.DataSourceName(), logger)
}

// NewSQLStore opens the database and ensures the schema. For sqlite the data
// source is a file path or ":memory:"; for postgres it is a connection string.
func NewSQLStore(driver, dataSourceName string, logger zerolog.Logger) (*SQLStore, error) {
	logger = logger.With().Str("module", "SQLStore").Logger()

	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	if d.name == "sqlite" && dataSourceName != ":memory:" {
		dbDir := filepath.Dir(dataSourceName)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error().Err(err).Str("directory", dbDir).Msg("Failed to create database directory")
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	db, err := sql.Open(d.driverName, dataSourceName)
	if err != nil {
		logger.Error().Err(err).Str("driver", d.name).Msg("Failed to open database")
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}

	if d.name == "sqlite" {
		// One connection: an in-memory database lives and dies with its connection,
		// and a single writer is all sqlite allows anyway.
		db.SetMaxOpenConns(1)
	}

	store := &SQLStore{
		db:      db,
		dialect: d,
		logger:  logger,
		now:     time.Now,
	}

	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		logger.Error().Err(err).Msg("Failed to initialize database schema")
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logger.Info().Str("driver", d.name).Msg("Database initialized and schema verified")
	return store, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return storeErr("ping", s.db.PingContext(ctx))
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) q(query string) string {
	return s.dialect.rebind(query)
}

func (s *SQLStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return storeErr(op, tx.Commit())
}
