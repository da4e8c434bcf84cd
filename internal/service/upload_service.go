package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/classifier"
	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/pipeline"
	"github.com/andresuchdata/erpflow/internal/workbook"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UploadPool is the part of *pipeline.Pool the upload service drives.
type UploadPool interface {
	Submit(job pipeline.Job) error
	Cancel(ctx context.Context, uploadID int64) error
	Reprocess(ctx context.Context, uploadID int64) (*pipeline.Upload, error)
}

// Archiver keeps a remote copy of accepted workbooks.
type Archiver interface {
	Store(ctx context.Context, fileName, srcPath string) (string, error)
}

type UploadService struct {
	journal    pipeline.Journal
	pool       UploadPool
	archive    Archiver
	classifier *classifier.Classifier
	uploadDir  string

	open func(path string) (*workbook.Sheet, error)
	now  func() time.Time
}

// NewUploadService wires the upload flow. archive may be nil, in which case
// uploads cannot be reprocessed.
func NewUploadService(journal pipeline.Journal, pool UploadPool, archive Archiver, uploadDir string) *UploadService {
	return &UploadService{
		journal:    journal,
		pool:       pool,
		archive:    archive,
		classifier: classifier.Default(),
		uploadDir:  uploadDir,
		open:       workbook.Open,
		now:        time.Now,
	}
}

// UploadRequest is one workbook handed in by a caller.
type UploadRequest struct {
	Name         string
	Reader       io.Reader
	// SnapshotDate overrides the report date of periodic families.
	SnapshotDate *time.Time
	// ObjectKey marks a workbook that is already archived; it is recorded
	// as is instead of archiving a second copy.
	ObjectKey    string
}

type UploadResult struct {
	UploadID    int64           `json:"upload_id"`
	Family      domain.Family   `json:"family"`
	Status      pipeline.Status `json:"status"`
	DuplicateOf *int64          `json:"duplicate_of,omitempty"`
}

// Accept registers the workbook and queues it for ingestion. An unrecognised
// workbook is journaled as failed and the returned error wraps
// domain.ErrUnknownFormat.
func (s *UploadService) Accept(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	job, result, err := s.Register(ctx, req)
	if err != nil {
		return result, err
	}

	if err := s.pool.Submit(*job); err != nil {
		if jErr := s.journal.Fail(ctx, job.UploadID, "", err.Error(), nil); jErr != nil {
			log.Error().Err(jErr).Int64("upload_id", job.UploadID).Msg("Upload: failed to mark upload failed")
		}
		return nil, err
	}

	log.Info().Int64("upload_id", job.UploadID).Str("family", result.Family.String()).Msg("Upload queued")
	return result, nil
}

// Register stores the workbook, archives it, journals it and classifies it,
// returning the job to run. Callers that ingest synchronously run the job
// themselves instead of queueing it.
func (s *UploadService) Register(ctx context.Context, req UploadRequest) (*pipeline.Job, *UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(req.Name))
	if ext == "" {
		ext = ".xlsx"
	}
	fileName := uuid.NewString() + ext
	path := filepath.Join(s.uploadDir, fileName)

	size, hash, err := saveFile(path, req.Reader)
	if err != nil {
		return nil, nil, err
	}

	entry := &pipeline.Upload{
		FileName:     fileName,
		OriginalName: req.Name,
		FileSize:     size,
		FileHash:     hash,
		SnapshotDate: req.SnapshotDate,
		UploadedAt:   s.now(),
	}
	logger := log.With().Str("file", req.Name).Str("file_hash", hash).Logger()

	result := &UploadResult{}
	if prev, err := s.journal.FindByHash(ctx, hash); err != nil {
		logger.Warn().Err(err).Msg("Upload: duplicate lookup failed")
	} else if prev != nil {
		result.DuplicateOf = &prev.ID
		logger.Info().Int64("previous_upload_id", prev.ID).Msg("Upload: identical file already ingested")
	}

	entry.ObjectKey = req.ObjectKey
	if s.archive != nil && entry.ObjectKey == "" {
		key, err := s.archive.Store(ctx, fileName, path)
		if err != nil {
			logger.Warn().Err(err).Msg("Upload: archive failed, reprocess will be unavailable")
		} else {
			entry.ObjectKey = key
		}
	}

	if err := s.journal.Create(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("create journal entry: %w", err)
	}
	result.UploadID = entry.ID

	family, err := s.classify(path)
	if err != nil {
		if jErr := s.journal.Fail(ctx, entry.ID, domain.ErrorKind(err), err.Error(), nil); jErr != nil {
			logger.Error().Err(jErr).Int64("upload_id", entry.ID).Msg("Upload: failed to mark upload failed")
		}
		result.Status = pipeline.StatusFailed
		result.Family = domain.FamilyUnknown
		return nil, result, err
	}
	result.Family = family
	result.Status = pipeline.StatusPending

	job := &pipeline.Job{
		UploadID:     entry.ID,
		Path:         path,
		OriginalName: req.Name,
		UploadedAt:   entry.UploadedAt,
	}
	if req.SnapshotDate != nil {
		job.SnapshotDate = *req.SnapshotDate
	}
	return job, result, nil
}

// classify only decides the family for the response; the orchestrator
// classifies again when the job runs.
func (s *UploadService) classify(path string) (domain.Family, error) {
	sheet, err := s.open(path)
	if err != nil {
		return domain.FamilyUnknown, fmt.Errorf("%w: %v", domain.ErrUnknownFormat, err)
	}
	res, err := s.classifier.ClassifySheet(sheet)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyHeader) {
			return domain.FamilyUnknown, fmt.Errorf("%w: %v", domain.ErrUnknownFormat, err)
		}
		return domain.FamilyUnknown, err
	}
	return res.Family, nil
}

func (s *UploadService) Status(ctx context.Context, id int64) (*pipeline.Upload, []pipeline.Step, error) {
	u, err := s.journal.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	steps, err := s.journal.Steps(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if steps == nil {
		steps = make([]pipeline.Step, 0)
	}
	return u, steps, nil
}

func (s *UploadService) History(ctx context.Context, limit int) ([]pipeline.Upload, error) {
	if limit <= 0 {
		limit = 50
	}
	out, err := s.journal.List(ctx, limit)
	if out == nil {
		out = make([]pipeline.Upload, 0)
	}
	return out, err
}

func (s *UploadService) Cancel(ctx context.Context, id int64) error {
	return s.pool.Cancel(ctx, id)
}

func (s *UploadService) Reprocess(ctx context.Context, id int64) (*pipeline.Upload, error) {
	return s.pool.Reprocess(ctx, id)
}

// saveFile writes r to path and returns its size and MD5.
func saveFile(path string, r io.Reader) (int64, string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	h := md5.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		_ = os.Remove(path)
		return 0, "", fmt.Errorf("write upload file: %w", err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
