// Package pgtest connects integration tests to the database named by
// INTEGRATION_DATABASE_URL. Tests skip when it is unset.
package pgtest

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/loader"
	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
)

// Open returns a migrated database or skips t.
func Open(t testing.TB) *postgres.DB {
	t.Helper()
	url := os.Getenv("INTEGRATION_DATABASE_URL")
	if url == "" {
		t.Skip("INTEGRATION_DATABASE_URL not set")
	}
	sqlDB, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := postgres.Wrap(sqlDB, "pgx")
	require.NoError(t, postgres.Migrate(context.Background(), db))
	return db
}

// Token is unique per call. Tests put it in business keys so runs against a
// shared database never collide.
func Token() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Upload registers a journal row that raw rows can reference.
func Upload(t testing.TB, db *postgres.DB, family domain.Family) int64 {
	t.Helper()
	var id int64
	err := db.GetContext(context.Background(), &id, `
		INSERT INTO upload_journal (file_name, original_name, file_hash, family, status)
		VALUES ($1, $1, $2, $3, 'loading')
		RETURNING id`, "test-"+string(family)+".xlsx", Token(), string(family))
	require.NoError(t, err)
	return id
}

// Row is one raw record keyed by column DB name. Absent columns load as null.
type Row map[string]any

// Load writes rows into the family's raw table through the RawStore and
// returns the number of rows that were new.
func Load(t testing.TB, db *postgres.DB, family domain.Family, uploadID int64, snapshot *time.Time, rows ...Row) int {
	t.Helper()
	def, ok := schema.Lookup(family)
	require.True(t, ok, "family %s", family)

	recs := make([]loader.Record, len(rows))
	for i, r := range rows {
		values := make([]any, len(def.Columns))
		for j, c := range def.Columns {
			values[j] = r[c.DB]
		}
		hash, _ := r["row_hash"].(string)
		if hash == "" {
			hash = Token()
		}
		recs[i] = loader.Record{SourceRow: i + 2, RowHash: hash, Values: values, Raw: map[string]string{}}
	}

	ctx := context.Background()
	sess, err := postgres.NewRawStore(db).Acquire(ctx, family)
	require.NoError(t, err)
	defer sess.Release()
	n, err := sess.Insert(ctx, def, uploadID, snapshot, recs)
	require.NoError(t, err)
	return n
}
