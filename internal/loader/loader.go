// Package loader writes workbook rows into the per-family raw tables. Loads are
// idempotent: a row whose content hash is already stored is skipped.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/andresuchdata/erpflow/internal/workbook"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

type Config struct {
	BatchSize     int
	MaxErrors     int
	RetryAttempts int
	RetryBackoff  time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		MaxErrors:     50,
		RetryAttempts: 3,
		RetryBackoff:  500 * time.Millisecond,
	}
}

// Options are the per-load inputs.
type Options struct {
	UploadID int64
	// SnapshotDate scopes periodic families. Zero means resolve it from the
	// workbook, falling back to UploadedAt.
	SnapshotDate time.Time
	UploadedAt   time.Time
}

type Counters struct {
	Loaded  int      `json:"loaded"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func (c *Counters) addError(max int, msg string) {
	if max > 0 && len(c.Errors) >= max {
		return
	}
	c.Errors = append(c.Errors, msg)
}

// Store hands out a family-scoped session. While a session is held no other
// load of the same family can write.
type Store interface {
	Acquire(ctx context.Context, family domain.Family) (Session, error)
}

// Session inserts batches of records. Insert returns how many records were
// new; records whose hash already exists in scope are ignored. Each call is
// atomic. Database failures wrap domain.ErrDatabase, and also
// domain.ErrTransient when another attempt may succeed.
type Session interface {
	Insert(ctx context.Context, def schema.Definition, uploadID int64, snapshot *time.Time, recs []Record) (int, error)
	Release() error
}

type Loader struct {
	store Store
	cfg   Config
}

func New(store Store, cfg Config) *Loader {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = def.MaxErrors
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}
	return &Loader{store: store, cfg: cfg}
}

// SnapshotDate resolves the snapshot date for a periodic load: explicit, else
// embedded in the workbook, else the upload date.
func SnapshotDate(s *workbook.Sheet, def schema.Definition, explicit, uploadedAt time.Time) time.Time {
	if !explicit.IsZero() {
		return dateOf(explicit)
	}
	if headerRow, err := HeaderRow(s, def); err == nil {
		if d, ok := s.ReportDate(headerRow); ok {
			return d
		}
	}
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}
	return dateOf(uploadedAt)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Load parses s as family def and writes its rows in bounded batches. Batches
// committed before a failure or cancellation stay committed.
func (l *Loader) Load(ctx context.Context, s *workbook.Sheet, def schema.Definition, opts Options) (Counters, error) {
	logger := log.With().Int64("upload_id", opts.UploadID).Str("family", def.Family.String()).Logger()

	records, counters, err := Parse(s, def, l.cfg.MaxErrors)
	if err != nil {
		return counters, err
	}

	var snapshot *time.Time
	if def.Periodic {
		d := SnapshotDate(s, def, opts.SnapshotDate, opts.UploadedAt)
		snapshot = &d
	}
	if len(records) == 0 {
		logger.Info().Int("failed", counters.Failed).Msg("No data rows to load")
		return counters, nil
	}

	sess, err := l.store.Acquire(ctx, def.Family)
	if err != nil {
		if ctx.Err() != nil {
			return counters, domain.ErrCancelled
		}
		return counters, fmt.Errorf("failed to acquire %s load lock: %w", def.Family, err)
	}
	defer func() {
		if relErr := sess.Release(); relErr != nil {
			logger.Error().Err(relErr).Msg("Failed to release load session")
		}
	}()

	for start := 0; start < len(records); start += l.cfg.BatchSize {
		if ctx.Err() != nil {
			logger.Warn().Int("loaded", counters.Loaded).Msg("Load cancelled between batches")
			return counters, domain.ErrCancelled
		}
		end := start + l.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		inserted, err := l.insertWithRetry(ctx, sess, def, opts.UploadID, snapshot, batch)
		if err != nil {
			if errors.Is(err, domain.ErrCancelled) {
				return counters, err
			}
			counters.Failed += len(batch)
			counters.addError(l.cfg.MaxErrors, fmt.Sprintf("rows %d-%d: %v", batch[0].SourceRow, batch[len(batch)-1].SourceRow, err))
			return counters, err
		}
		counters.Loaded += inserted
		counters.Skipped += len(batch) - inserted
	}

	logger.Info().
		Int("loaded", counters.Loaded).
		Int("skipped", counters.Skipped).
		Int("failed", counters.Failed).
		Msg("Raw load finished")
	return counters, nil
}

// retryPolicy backs off exponentially from RetryBackoff and gives up after
// RetryAttempts retries or when ctx ends.
func (l *Loader) retryPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.cfg.RetryBackoff
	b.MaxElapsedTime = 0
	retries := l.cfg.RetryAttempts
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

func (l *Loader) insertWithRetry(ctx context.Context, sess Session, def schema.Definition, uploadID int64, snapshot *time.Time, batch []Record) (int, error) {
	var inserted, attempts int
	op := func() error {
		attempts++
		n, err := sess.Insert(ctx, def, uploadID, snapshot, batch)
		switch {
		case err == nil:
			inserted = n
			return nil
		case ctx.Err() != nil:
			return backoff.Permanent(domain.ErrCancelled)
		case !errors.Is(err, domain.ErrTransient):
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempts).Dur("backoff", wait).Str("family", def.Family.String()).Msg("Retrying raw batch")
	}

	err := backoff.RetryNotify(op, l.retryPolicy(ctx), notify)
	switch {
	case err == nil:
		return inserted, nil
	case ctx.Err() != nil || errors.Is(err, domain.ErrCancelled):
		return 0, domain.ErrCancelled
	case errors.Is(err, domain.ErrTransient):
		return 0, fmt.Errorf("batch failed after %d attempts: %w", attempts, err)
	}
	return 0, err
}
