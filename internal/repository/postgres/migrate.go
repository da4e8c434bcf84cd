package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// rawTablesAfter is the migration the generated raw tables depend on.
const rawTablesAfter = "001_upload_journal.sql"

// Migrate applies pending embedded migrations in name order, each in its own
// transaction. Raw tables are rendered from the family schema and re-applied
// on every run; their DDL is idempotent.
func Migrate(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return wrapErr("create schema_migrations", err)
	}

	var applied []string
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return wrapErr("list migrations", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if !done[name] {
			body, err := migrationFS.ReadFile("migrations/" + name)
			if err != nil {
				return fmt.Errorf("read migration %s: %w", name, err)
			}
			err = db.WithTx(ctx, func(tx *sqlx.Tx) error {
				if _, err := tx.ExecContext(ctx, string(body)); err != nil {
					return wrapErr("apply "+name, err)
				}
				_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, name)
				return wrapErr("record "+name, err)
			})
			if err != nil {
				return err
			}
			log.Info().Str("migration", name).Msg("Migration applied")
		}
		if name == rawTablesAfter {
			if err := createRawTables(ctx, db); err != nil {
				return err
			}
		}
	}
	return nil
}

func createRawTables(ctx context.Context, db *DB) error {
	return db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, def := range schema.Families() {
			if _, err := tx.ExecContext(ctx, def.RawTableDDL()); err != nil {
				return wrapErr("create "+def.RawTable, err)
			}
		}
		return nil
	})
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
