package pipeline

import (
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/jmoiron/sqlx/types"
)

// Status is the lifecycle state of an upload journal entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusLoading   Status = "loading"
	StatusLoaded    Status = "loaded"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepStatus is the outcome of one orchestrator step.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// Step names, in execution order.
const (
	StepClassify   = "classify"
	StepLoad       = "load"
	StepTransform  = "transform"
	StepLeadTime   = "leadtime"
	StepAlerts     = "alerts"
	StepInvalidate = "invalidate_cache"
)

// Upload is one upload journal entry.
type Upload struct {
	ID             int64          `db:"id" json:"id"`
	FileName       string         `db:"file_name" json:"file_name"`
	OriginalName   string         `db:"original_name" json:"original_name"`
	FileSize       int64          `db:"file_size" json:"file_size"`
	FileHash       string         `db:"file_hash" json:"file_hash"`
	ObjectKey      string         `db:"object_key" json:"object_key,omitempty"`
	Family         domain.Family  `db:"family" json:"family"`
	SnapshotDate   *time.Time     `db:"snapshot_date" json:"snapshot_date,omitempty"`
	Status         Status         `db:"status" json:"status"`
	RowsLoaded     int            `db:"rows_loaded" json:"rows_loaded"`
	RowsUpdated    int            `db:"rows_updated" json:"rows_updated"`
	RowsSkipped    int            `db:"rows_skipped" json:"rows_skipped"`
	RowsFailed     int            `db:"rows_failed" json:"rows_failed"`
	FactsInserted  int            `db:"facts_inserted" json:"facts_inserted"`
	FactsUpdated   int            `db:"facts_updated" json:"facts_updated"`
	FactsUnchanged int            `db:"facts_unchanged" json:"facts_unchanged"`
	ErrorKind      string         `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage   string         `db:"error_message" json:"error_message,omitempty"`
	RowErrors      types.JSONText `db:"row_errors" json:"row_errors,omitempty"`
	ReprocessOf    *int64         `db:"reprocess_of" json:"reprocess_of,omitempty"`
	UploadedAt     time.Time      `db:"uploaded_at" json:"uploaded_at"`
	ProcessedAt    *time.Time     `db:"processed_at" json:"processed_at,omitempty"`
}

// Step is an append-only record of one orchestrator step.
type Step struct {
	ID         int64          `db:"id" json:"id"`
	UploadID   int64          `db:"upload_id" json:"upload_id"`
	Name       string         `db:"name" json:"name"`
	Status     StepStatus     `db:"status" json:"status"`
	Counters   types.JSONText `db:"counters" json:"counters,omitempty"`
	Error      string         `db:"error" json:"error,omitempty"`
	StartedAt  time.Time      `db:"started_at" json:"started_at"`
	FinishedAt time.Time      `db:"finished_at" json:"finished_at"`
}

// Job is one workbook to ingest. The journal entry must already exist.
type Job struct {
	UploadID     int64
	Path         string
	OriginalName string
	// SnapshotDate overrides the workbook's own report date for periodic
	// families.
	SnapshotDate time.Time
	UploadedAt   time.Time
}

// Config holds the pool settings.
type Config struct {
	WorkerCount int
	QueueSize   int
	// JobTimeout bounds a single job; zero means no limit.
	JobTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		WorkerCount: 4,
		QueueSize:   64,
		JobTimeout:  30 * time.Minute,
	}
}

// Stats summarises the journal since a point in time.
type Stats struct {
	Uploads       int64      `db:"uploads" json:"uploads"`
	Completed     int64      `db:"completed" json:"completed"`
	Failed        int64      `db:"failed" json:"failed"`
	InFlight      int64      `db:"in_flight" json:"in_flight"`
	RowsLoaded    int64      `db:"rows_loaded" json:"rows_loaded"`
	LastProcessed *time.Time `db:"last_processed_at" json:"last_processed_at,omitempty"`
}
