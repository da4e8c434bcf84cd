package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/loader"
	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/andresuchdata/erpflow/internal/transform"
	"github.com/jmoiron/sqlx"
)

// Repository is the Postgres upload journal.
type Repository struct {
	db *postgres.DB
}

// NewRepository creates a new journal repository
func NewRepository(db *postgres.DB) *Repository {
	return &Repository{db: db}
}

const uploadColumns = `
	id, file_name, original_name, file_size, file_hash, COALESCE(object_key, '') AS object_key,
	COALESCE(family, '') AS family, snapshot_date, status, rows_loaded, rows_updated, rows_skipped,
	rows_failed, facts_inserted, facts_updated, facts_unchanged, COALESCE(error_kind, '') AS error_kind,
	COALESCE(error_message, '') AS error_message, row_errors, reprocess_of, uploaded_at, processed_at`

// guard restricts every update to non-terminal entries.
const guard = `status NOT IN ('completed', 'failed')`

// Create inserts a pending entry and sets its ID.
func (r *Repository) Create(ctx context.Context, u *Upload) error {
	if u.Status == "" {
		u.Status = StatusPending
	}
	if u.UploadedAt.IsZero() {
		u.UploadedAt = time.Now()
	}
	query := `
		INSERT INTO upload_journal (
			file_name, original_name, file_size, file_hash, object_key, snapshot_date,
			status, reprocess_of, uploaded_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		u.FileName, u.OriginalName, u.FileSize, u.FileHash, u.ObjectKey, u.SnapshotDate,
		u.Status, u.ReprocessOf, u.UploadedAt,
	).Scan(&u.ID)
	if err != nil {
		return postgres.WrapErr("create upload", err)
	}
	return nil
}

// Get retrieves an entry by ID
func (r *Repository) Get(ctx context.Context, id int64) (*Upload, error) {
	var u Upload
	err := r.db.GetContext(ctx, &u, `SELECT `+uploadColumns+` FROM upload_journal WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, postgres.WrapErr("get upload", err)
	}
	return &u, nil
}

// List returns the newest entries first.
func (r *Repository) List(ctx context.Context, limit int) ([]Upload, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []Upload
	if err := r.db.SelectContext(ctx, &out,
		`SELECT `+uploadColumns+` FROM upload_journal ORDER BY uploaded_at DESC, id DESC LIMIT $1`, limit); err != nil {
		return nil, postgres.WrapErr("list uploads", err)
	}
	return out, nil
}

func (r *Repository) FindByHash(ctx context.Context, hash string) (*Upload, error) {
	var u Upload
	err := r.db.GetContext(ctx, &u,
		`SELECT `+uploadColumns+` FROM upload_journal WHERE file_hash = $1 ORDER BY id DESC LIMIT 1`, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.WrapErr("find upload by hash", err)
	}
	return &u, nil
}

func (r *Repository) SetFamily(ctx context.Context, id int64, family domain.Family, snapshot *time.Time) error {
	return r.update(ctx, id, `family = $2, snapshot_date = COALESCE($3::date, snapshot_date)`, string(family), snapshot)
}

func (r *Repository) MarkLoading(ctx context.Context, id int64) error {
	return r.update(ctx, id, `status = 'loading'`)
}

func (r *Repository) MarkLoaded(ctx context.Context, id int64, c loader.Counters) error {
	return r.update(ctx, id, `
		status = 'loaded', rows_loaded = $2, rows_updated = $3, rows_skipped = $4, rows_failed = $5,
		row_errors = $6::jsonb`,
		c.Loaded, c.Updated, c.Skipped, c.Failed, jsonList(c.Errors))
}

func (r *Repository) Complete(ctx context.Context, id int64, c transform.Counters) error {
	return r.update(ctx, id, `
		status = 'completed', facts_inserted = $2, facts_updated = $3, facts_unchanged = $4,
		row_errors = CASE WHEN $5::jsonb = '[]'::jsonb THEN row_errors
		                  ELSE COALESCE(row_errors, '[]'::jsonb) || $5::jsonb END,
		processed_at = NOW()`,
		c.Inserted, c.Updated, c.Unchanged, jsonList(c.Errors))
}

func (r *Repository) Fail(ctx context.Context, id int64, kind, message string, rowErrors []string) error {
	return r.update(ctx, id, `
		status = 'failed', error_kind = NULLIF($2, ''), error_message = $3,
		row_errors = CASE WHEN $4::jsonb = '[]'::jsonb THEN row_errors ELSE $4::jsonb END,
		processed_at = NOW()`,
		kind, message, jsonList(rowErrors))
}

// update applies set to a non-terminal entry.
func (r *Repository) update(ctx context.Context, id int64, set string, args ...any) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE upload_journal SET `+set+` WHERE id = $1 AND `+guard,
		append([]any{id}, args...)...)
	if err != nil {
		return postgres.WrapErr("update upload", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return postgres.WrapErr("update upload", err)
	}
	if n > 0 {
		return nil
	}

	var status Status
	err = r.db.GetContext(ctx, &status, `SELECT status FROM upload_journal WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("upload %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return postgres.WrapErr("update upload", err)
	}
	return fmt.Errorf("upload %d is %s: %w", id, status, domain.ErrTerminal)
}

// AppendStep records a step. Steps are never updated.
func (r *Repository) AppendStep(ctx context.Context, s Step) error {
	var counters any
	if len(s.Counters) > 0 {
		counters = string(s.Counters)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO upload_journal_steps (upload_id, name, status, counters, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4::jsonb, NULLIF($5, ''), $6, $7)`,
		s.UploadID, s.Name, s.Status, counters, s.Error, s.StartedAt, s.FinishedAt)
	if err != nil {
		return postgres.WrapErr("append step", err)
	}
	return nil
}

func (r *Repository) Steps(ctx context.Context, id int64) ([]Step, error) {
	var out []Step
	if err := r.db.SelectContext(ctx, &out, `
		SELECT id, upload_id, name, status, counters, COALESCE(error, '') AS error, started_at, finished_at
		FROM upload_journal_steps
		WHERE upload_id = $1
		ORDER BY id`, id); err != nil {
		return nil, postgres.WrapErr("list steps", err)
	}
	return out, nil
}

// Stats retrieves journal statistics since a point in time.
func (r *Repository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	var s Stats
	err := r.db.WithReadTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &s, `
			SELECT COUNT(*) AS uploads,
			       COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			       COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			       COUNT(*) FILTER (WHERE status NOT IN ('completed', 'failed')) AS in_flight,
			       COALESCE(SUM(rows_loaded), 0) AS rows_loaded,
			       MAX(processed_at) AS last_processed_at
			FROM upload_journal
			WHERE uploaded_at >= $1`, since)
	})
	if err != nil {
		return nil, postgres.WrapErr("journal stats", err)
	}
	return &s, nil
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(boundErrors(items))
	return string(b)
}
