package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// FactSpec describes a fact or dimension table keyed by a business key. Every
// such table carries row_hash and updated_at columns.
type FactSpec struct {
	Table   string
	Key     []string
	Columns []string
}

type UpsertResult struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

func (r *UpsertResult) Add(o UpsertResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Unchanged += o.Unchanged
}

// UpsertSQL renders the named upsert. Conflicting rows are only rewritten when
// their row_hash differs, so RETURNING yields nothing for unchanged rows and
// xmax = 0 tells inserts from updates.
func (s FactSpec) UpsertSQL() string {
	cols := append(append([]string{}, s.Key...), s.Columns...)
	cols = append(cols, "row_hash")

	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
	}
	sets := make([]string, 0, len(s.Columns)+2)
	for _, c := range s.Columns {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	sets = append(sets, "row_hash = EXCLUDED.row_hash", "updated_at = NOW()")

	return fmt.Sprintf(`INSERT INTO %s (%s, updated_at) VALUES (%s, NOW())
ON CONFLICT (%s) DO UPDATE SET %s
WHERE %s.row_hash IS DISTINCT FROM EXCLUDED.row_hash
RETURNING (xmax = 0) AS inserted`,
		s.Table, strings.Join(cols, ", "), strings.Join(named, ", "),
		strings.Join(s.Key, ", "), strings.Join(sets, ", "), s.Table)
}

// UpsertFacts writes rows through spec inside tx. Row structs must carry db
// tags for every key and column plus row_hash.
func UpsertFacts[T any](ctx context.Context, tx *sqlx.Tx, spec FactSpec, rows []T) (UpsertResult, error) {
	var res UpsertResult
	if len(rows) == 0 {
		return res, nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, spec.UpsertSQL())
	if err != nil {
		return res, wrapErr("prepare upsert "+spec.Table, err)
	}
	defer stmt.Close()

	for i := range rows {
		var inserted bool
		err := stmt.QueryRowxContext(ctx, &rows[i]).Scan(&inserted)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res.Unchanged++
		case err != nil:
			return res, wrapErr("upsert "+spec.Table, err)
		case inserted:
			res.Inserted++
		default:
			res.Updated++
		}
	}
	return res, nil
}

// AdvisoryXactLock serialises writers of key until tx ends.
func AdvisoryXactLock(ctx context.Context, tx *sqlx.Tx, key string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return wrapErr("advisory lock "+key, err)
	}
	return nil
}

// WrapErr exposes the driver error classification to the derivation packages.
func WrapErr(op string, err error) error {
	return wrapErr(op, err)
}
