package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/erpflow/internal/alerts"
	"github.com/andresuchdata/erpflow/internal/classifier"
	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/leadtime"
	"github.com/andresuchdata/erpflow/internal/loader"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/andresuchdata/erpflow/internal/transform"
	"github.com/andresuchdata/erpflow/internal/workbook"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Loader interface {
	Load(ctx context.Context, s *workbook.Sheet, def schema.Definition, opts loader.Options) (loader.Counters, error)
}

type Transformer interface {
	Transform(ctx context.Context, family domain.Family, scope transform.Scope) (transform.Counters, error)
}

type LeadTimeRefresher interface {
	Refresh(ctx context.Context) (leadtime.Counters, error)
}

type AlertDetector interface {
	Detect(ctx context.Context, now time.Time) (alerts.Counters, error)
}

// CacheInvalidator drops cached dashboard responses after facts change.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Orchestrator runs one workbook through every ingestion step, journaling
// each step as it goes.
type Orchestrator struct {
	classifier  *classifier.Classifier
	loader      Loader
	transformer Transformer
	leadTime    LeadTimeRefresher
	alerts      AlertDetector
	journal     Journal
	cache       CacheInvalidator

	open func(path string) (*workbook.Sheet, error)
	now  func() time.Time
}

type Deps struct {
	Classifier  *classifier.Classifier
	Loader      Loader
	Transformer Transformer
	LeadTime    LeadTimeRefresher
	Alerts      AlertDetector
	Journal     Journal
	Cache       CacheInvalidator
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(d Deps) *Orchestrator {
	c := d.Classifier
	if c == nil {
		c = classifier.Default()
	}
	return &Orchestrator{
		classifier:  c,
		loader:      d.Loader,
		transformer: d.Transformer,
		leadTime:    d.LeadTime,
		alerts:      d.Alerts,
		journal:     d.Journal,
		cache:       d.Cache,
		open:        workbook.Open,
		now:         time.Now,
	}
}

// Run ingests job end to end. Any step error fails the journal entry; the
// returned error is the step's.
func (o *Orchestrator) Run(ctx context.Context, job Job) error {
	logger := log.With().Int64("upload_id", job.UploadID).Str("file", job.OriginalName).Logger()
	start := o.now()
	var rowErrors []string

	err := o.run(ctx, job, logger, &rowErrors)
	if err != nil && ctx.Err() != nil && !errors.Is(err, domain.ErrCancelled) {
		err = fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	if err != nil {
		kind := domain.ErrorKind(err)
		msg := err.Error()
		if errors.Is(err, domain.ErrCancelled) {
			msg = "cancelled"
		}
		if jErr := o.journal.Fail(context.WithoutCancel(ctx), job.UploadID, kind, msg, rowErrors); jErr != nil {
			logger.Error().Err(jErr).Msg("Failed to mark upload failed")
		}
		logger.Error().Err(err).Str("kind", kind).Msg("Ingestion failed")
		return err
	}

	logger.Info().Dur("took", o.now().Sub(start)).Msg("Ingestion completed")
	return nil
}

func (o *Orchestrator) run(ctx context.Context, job Job, logger zerolog.Logger, rowErrors *[]string) error {
	var (
		sheet *workbook.Sheet
		def   schema.Definition
	)
	err := o.step(ctx, job.UploadID, StepClassify, func() (any, error) {
		s, err := o.open(job.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUnknownFormat, err)
		}
		res, err := o.classifier.ClassifySheet(s)
		if err != nil {
			return res, err
		}
		sheet = s
		def, _ = schema.Lookup(res.Family)
		return res, nil
	})
	if err != nil {
		return err
	}

	var snapshot *time.Time
	if def.Periodic {
		d := loader.SnapshotDate(sheet, def, job.SnapshotDate, job.UploadedAt)
		snapshot = &d
	}
	if err := o.journal.SetFamily(ctx, job.UploadID, def.Family, snapshot); err != nil {
		return err
	}
	logger = logger.With().Str("family", def.Family.String()).Logger()
	logger.Info().Msg("Workbook classified")

	if err := o.journal.MarkLoading(ctx, job.UploadID); err != nil {
		return err
	}
	var loaded loader.Counters
	err = o.step(ctx, job.UploadID, StepLoad, func() (any, error) {
		opts := loader.Options{UploadID: job.UploadID, UploadedAt: job.UploadedAt}
		if snapshot != nil {
			opts.SnapshotDate = *snapshot
		}
		c, err := o.loader.Load(ctx, sheet, def, opts)
		loaded = c
		return c, err
	})
	*rowErrors = append(*rowErrors, loaded.Errors...)
	if err != nil {
		return err
	}
	if err := o.journal.MarkLoaded(ctx, job.UploadID, loaded); err != nil {
		return err
	}

	var facts transform.Counters
	err = o.step(ctx, job.UploadID, StepTransform, func() (any, error) {
		scope := transform.Scope{}
		if snapshot != nil {
			scope.SnapshotDate = *snapshot
		}
		c, err := o.transformer.Transform(ctx, def.Family, scope)
		facts = c
		return c, err
	})
	if err != nil {
		*rowErrors = append(*rowErrors, facts.Errors...)
		return err
	}

	if def.Family.TriggersLeadTime() {
		if err := o.step(ctx, job.UploadID, StepLeadTime, func() (any, error) {
			return o.leadTime.Refresh(ctx)
		}); err != nil {
			return err
		}
	} else {
		o.skip(ctx, job.UploadID, StepLeadTime)
	}

	if def.Family.TriggersAlerts() {
		if err := o.step(ctx, job.UploadID, StepAlerts, func() (any, error) {
			return o.alerts.Detect(ctx, o.now())
		}); err != nil {
			return err
		}
	} else {
		o.skip(ctx, job.UploadID, StepAlerts)
	}

	// a stale dashboard is not worth failing an ingestion over
	if o.cache != nil {
		if err := o.step(ctx, job.UploadID, StepInvalidate, func() (any, error) {
			return nil, o.cache.InvalidateAll(ctx)
		}); err != nil {
			logger.Warn().Err(err).Msg("Dashboard cache invalidation failed")
		}
	}

	return o.journal.Complete(ctx, job.UploadID, facts)
}

// step runs fn and appends its outcome to the journal. A cancelled context
// turns any failure into domain.ErrCancelled.
func (o *Orchestrator) step(ctx context.Context, uploadID int64, name string, fn func() (any, error)) error {
	started := o.now()
	if ctx.Err() != nil {
		return domain.ErrCancelled
	}
	counters, err := fn()
	if err != nil && ctx.Err() != nil {
		err = domain.ErrCancelled
	}

	s := Step{UploadID: uploadID, Name: name, Status: StepCompleted, StartedAt: started, FinishedAt: o.now()}
	if counters != nil {
		if b, mErr := json.Marshal(counters); mErr == nil {
			s.Counters = b
		}
	}
	if err != nil {
		s.Status = StepFailed
		s.Error = err.Error()
	}
	if jErr := o.journal.AppendStep(context.WithoutCancel(ctx), s); jErr != nil {
		log.Error().Err(jErr).Int64("upload_id", uploadID).Str("step", name).Msg("Failed to journal step")
	}
	return err
}

func (o *Orchestrator) skip(ctx context.Context, uploadID int64, name string) {
	now := o.now()
	s := Step{UploadID: uploadID, Name: name, Status: StepSkipped, StartedAt: now, FinishedAt: now}
	if err := o.journal.AppendStep(context.WithoutCancel(ctx), s); err != nil {
		log.Error().Err(err).Int64("upload_id", uploadID).Str("step", name).Msg("Failed to journal step")
	}
}
