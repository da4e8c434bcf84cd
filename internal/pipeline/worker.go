package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrQueueFull   = errors.New("ingest queue is full")
	ErrPoolClosed  = errors.New("ingest pool is shut down")
	ErrNotTerminal = errors.New("upload is still in progress")
	ErrNoArchive   = errors.New("upload has no archived workbook")
)

// Runner ingests one job synchronously. *Orchestrator is the production Runner.
type Runner interface {
	Run(ctx context.Context, job Job) error
}

// Archive restores an archived workbook to a local path.
type Archive interface {
	Restore(ctx context.Context, u Upload) (string, error)
}

// Pool runs jobs on a fixed number of workers fed by a bounded queue.
type Pool struct {
	runner  Runner
	journal Journal
	archive Archive
	config  Config

	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	queued  map[int64]struct{}
	dropped map[int64]struct{}
	running map[int64]context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a new worker pool. Call Start before submitting.
func NewPool(runner Runner, journal Journal, archive Archive, config Config) *Pool {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		runner:  runner,
		journal: journal,
		archive: archive,
		config:  config,
		jobs:    make(chan Job, config.QueueSize),
		queued:  make(map[int64]struct{}),
		dropped: make(map[int64]struct{}),
		running: make(map[int64]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
	log.Info().Int("workers", p.config.WorkerCount).Int("queue", p.config.QueueSize).Msg("Ingest pool started")
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		p.queued[job.UploadID] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

// Cancel stops a queued or running job. The journal entry ends failed with
// the message "cancelled".
func (p *Pool) Cancel(ctx context.Context, uploadID int64) error {
	p.mu.Lock()
	if stop, ok := p.running[uploadID]; ok {
		p.mu.Unlock()
		stop()
		return nil
	}
	if _, ok := p.queued[uploadID]; ok {
		delete(p.queued, uploadID)
		p.dropped[uploadID] = struct{}{}
		p.mu.Unlock()
		return p.journal.Fail(ctx, uploadID, domain.ErrorKind(domain.ErrCancelled), "cancelled", nil)
	}
	p.mu.Unlock()
	return fmt.Errorf("upload %d is not queued or running: %w", uploadID, domain.ErrNotFound)
}

// Reprocess restores a terminal upload's workbook and submits it as a new
// journal entry. Terminal entries stay untouched.
func (p *Pool) Reprocess(ctx context.Context, uploadID int64) (*Upload, error) {
	prev, err := p.journal.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if !prev.Status.Terminal() {
		return nil, fmt.Errorf("upload %d is %s: %w", uploadID, prev.Status, ErrNotTerminal)
	}
	if p.archive == nil || prev.ObjectKey == "" {
		return nil, fmt.Errorf("upload %d: %w", uploadID, ErrNoArchive)
	}

	path, err := p.archive.Restore(ctx, *prev)
	if err != nil {
		return nil, fmt.Errorf("restore upload %d: %w", uploadID, err)
	}

	next := &Upload{
		FileName:     prev.FileName,
		OriginalName: prev.OriginalName,
		FileSize:     prev.FileSize,
		FileHash:     prev.FileHash,
		ObjectKey:    prev.ObjectKey,
		SnapshotDate: prev.SnapshotDate,
		ReprocessOf:  &prev.ID,
		UploadedAt:   time.Now(),
	}
	if err := p.journal.Create(ctx, next); err != nil {
		return nil, err
	}

	job := Job{UploadID: next.ID, Path: path, OriginalName: next.OriginalName, UploadedAt: next.UploadedAt}
	if prev.SnapshotDate != nil {
		job.SnapshotDate = *prev.SnapshotDate
	}
	if err := p.Submit(job); err != nil {
		_ = p.journal.Fail(ctx, next.ID, "", err.Error(), nil)
		return nil, err
	}
	log.Info().Int64("upload_id", next.ID).Int64("reprocess_of", prev.ID).Msg("Upload resubmitted")
	return next, nil
}

// Shutdown stops accepting jobs and waits for queued ones to drain. When ctx
// expires first, running jobs are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		ctx, stop, ok := p.begin(job.UploadID)
		if !ok {
			log.Debug().Int64("upload_id", job.UploadID).Msg("Skipping cancelled job")
			continue
		}
		if err := p.runner.Run(ctx, job); err != nil {
			log.Warn().Err(err).Int("worker", id).Int64("upload_id", job.UploadID).Msg("Job failed")
		}
		stop()
		p.finish(job.UploadID)
	}
}

// begin moves a job from queued to running. It reports false for a job
// cancelled while queued.
func (p *Pool) begin(uploadID int64) (context.Context, context.CancelFunc, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.dropped[uploadID]; ok {
		delete(p.dropped, uploadID)
		return nil, nil, false
	}
	delete(p.queued, uploadID)

	var (
		ctx  context.Context
		stop context.CancelFunc
	)
	if p.config.JobTimeout > 0 {
		ctx, stop = context.WithTimeout(p.ctx, p.config.JobTimeout)
	} else {
		ctx, stop = context.WithCancel(p.ctx)
	}
	p.running[uploadID] = stop
	return ctx, stop, true
}

func (p *Pool) finish(uploadID int64) {
	p.mu.Lock()
	delete(p.running, uploadID)
	p.mu.Unlock()
}

// Pending reports the number of queued and running jobs.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queued) + len(p.running)
}
