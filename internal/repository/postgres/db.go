package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/erpflow/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

var (
	dbInstance *DB
	once       sync.Once
)

// NewDB creates the shared connection pool used by the server.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	var err error
	once.Do(func() {
		connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

		var db *sqlx.DB
		db, err = sqlx.Connect("postgres", connStr)
		if err != nil {
			return
		}

		maxOpen := cfg.MaxOpen
		if maxOpen <= 0 {
			maxOpen = 25
		}
		maxIdle := cfg.MaxIdle
		if maxIdle <= 0 {
			maxIdle = 5
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxIdle)
		db.SetConnMaxLifetime(5 * time.Minute)

		dbInstance = newDB(db, maxOpen)
	})

	return dbInstance, err
}

// Wrap adapts an already opened *sql.DB, e.g. the pgx pool the CLI opens.
func Wrap(db *sql.DB, driverName string) *DB {
	return newDB(sqlx.NewDb(db, driverName), 10)
}

func newDB(db *sqlx.DB, maxOpen int) *DB {
	// keep a few connections free for advisory-lock sessions and reads
	limit := int64(maxOpen - 2)
	if limit < 1 {
		limit = 1
	}
	return &DB{DB: db, sem: semaphore.NewWeighted(limit)}
}

// WithTx executes fn within a transaction. fn's error rolls the transaction
// back and is returned unchanged.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return db.withTx(ctx, nil, fn)
}

// WithReadTx executes fn within a read-only transaction.
func (db *DB) WithReadTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return db.withTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (db *DB) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return wrapErr("begin transaction", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit transaction", err)
	}

	return nil
}
