package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/loader"
	"github.com/andresuchdata/erpflow/internal/transform"
)

// maxRowErrors bounds the row errors kept on a journal entry.
const maxRowErrors = 100

// Journal records the lifecycle of every upload. Every mutation of a terminal
// entry fails with domain.ErrTerminal; a missing entry yields domain.ErrNotFound.
type Journal interface {
	Create(ctx context.Context, u *Upload) error
	Get(ctx context.Context, id int64) (*Upload, error)
	List(ctx context.Context, limit int) ([]Upload, error)
	// FindByHash returns the newest entry with the given file hash, or nil.
	FindByHash(ctx context.Context, hash string) (*Upload, error)

	SetFamily(ctx context.Context, id int64, family domain.Family, snapshot *time.Time) error
	MarkLoading(ctx context.Context, id int64) error
	MarkLoaded(ctx context.Context, id int64, c loader.Counters) error
	Complete(ctx context.Context, id int64, c transform.Counters) error
	Fail(ctx context.Context, id int64, kind, message string, rowErrors []string) error

	AppendStep(ctx context.Context, s Step) error
	Steps(ctx context.Context, id int64) ([]Step, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

func boundErrors(errs []string) []string {
	if len(errs) > maxRowErrors {
		return errs[:maxRowErrors]
	}
	return errs
}
