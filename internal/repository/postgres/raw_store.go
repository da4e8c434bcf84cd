package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/loader"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/jmoiron/sqlx"
)

// RawStore writes loader batches into the raw tables. Each session pins one
// pool connection holding the family's session-level advisory lock.
type RawStore struct {
	db *DB
}

func NewRawStore(db *DB) *RawStore {
	return &RawStore{db: db}
}

func rawLockKey(family domain.Family) string {
	return "raw:" + string(family)
}

func (s *RawStore) Acquire(ctx context.Context, family domain.Family) (loader.Session, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, wrapErr("acquire connection", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock(hashtext($1))`, rawLockKey(family)); err != nil {
		conn.Close()
		return nil, wrapErr("advisory lock", err)
	}
	return &rawSession{conn: conn, family: family}, nil
}

type rawSession struct {
	conn   *sqlx.Conn
	family domain.Family
}

// Insert writes recs in one transaction, split into statements that stay
// under the bind parameter limit.
func (s *rawSession) Insert(ctx context.Context, def schema.Definition, uploadID int64, snapshot *time.Time, recs []loader.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, wrapErr("begin raw batch", err)
	}
	inserted := 0
	for _, chunk := range splitRecords(recs, rowsPerStatement(def)) {
		n, err := insertChunk(ctx, tx, def, uploadID, snapshot, chunk)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, wrapErr("commit raw batch", err)
	}
	return inserted, nil
}

func insertChunk(ctx context.Context, tx *sqlx.Tx, def schema.Definition, uploadID int64, snapshot *time.Time, recs []loader.Record) (int, error) {
	query, args, err := buildRawInsert(def, uploadID, snapshot, recs)
	if err != nil {
		return 0, err
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, wrapErr("insert "+def.RawTable, err)
	}
	defer rows.Close()
	inserted := 0
	for rows.Next() {
		inserted++
	}
	if err := rows.Err(); err != nil {
		return 0, wrapErr("insert "+def.RawTable, err)
	}
	return inserted, nil
}

// maxBindParams is the Postgres wire protocol limit on parameters per statement.
const maxBindParams = 65535

func rowsPerStatement(def schema.Definition) int {
	n := maxBindParams / len(def.InsertColumns())
	if n < 1 {
		return 1
	}
	return n
}

func splitRecords(recs []loader.Record, size int) [][]loader.Record {
	var out [][]loader.Record
	for len(recs) > size {
		out = append(out, recs[:size])
		recs = recs[size:]
	}
	if len(recs) > 0 {
		out = append(out, recs)
	}
	return out
}

// Release unlocks with a fresh context so a cancelled job still frees the lock.
func (s *rawSession) Release() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.conn.ExecContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, rawLockKey(s.family))
	closeErr := s.conn.Close()
	if err != nil {
		return wrapErr("advisory unlock", err)
	}
	return closeErr
}

// buildRawInsert renders one multi-row INSERT ... ON CONFLICT DO NOTHING.
// RETURNING id yields a row only for records that were actually new.
func buildRawInsert(def schema.Definition, uploadID int64, snapshot *time.Time, recs []loader.Record) (string, []any, error) {
	cols := def.InsertColumns()
	width := len(cols)
	args := make([]any, 0, width*len(recs))
	values := make([]string, 0, len(recs))

	for _, rec := range recs {
		raw, err := json.Marshal(rec.Raw)
		if err != nil {
			return "", nil, fmt.Errorf("encode raw_data for row %d: %w", rec.SourceRow, err)
		}
		ph := make([]string, width)
		for i := range ph {
			ph[i] = fmt.Sprintf("$%d", len(args)+i+1)
		}
		values = append(values, "("+strings.Join(ph, ", ")+")")

		args = append(args, uploadID, rec.SourceRow, rec.RowHash)
		if def.Periodic {
			args = append(args, *snapshot)
		}
		args = append(args, rec.Values...)
		args = append(args, string(raw))
	}

	conflict := "(row_hash)"
	if def.Periodic {
		conflict = "(snapshot_date, row_hash)"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT %s DO NOTHING RETURNING id",
		def.RawTable, strings.Join(cols, ", "), strings.Join(values, ", "), conflict)
	return query, args, nil
}
