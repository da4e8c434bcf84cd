package drive

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Watcher polls a Drive folder and imports workbooks that are new or were
// modified since the last poll.
type Watcher struct {
	source   Source
	ingest   *IngestService
	folderID string
	interval time.Duration

	mu   sync.Mutex
	seen map[string]string // file id -> modified time
}

func NewWatcher(source Source, ingest *IngestService, folderID string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Watcher{
		source:   source,
		ingest:   ingest,
		folderID: folderID,
		interval: interval,
		seen:     make(map[string]string),
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("folder_id", w.folderID).Msg("Drive: poll failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll imports the folder's unseen workbooks once.
func (w *Watcher) Poll(ctx context.Context) ([]*Result, error) {
	files, err := w.source.ListFiles(ctx, w.folderID)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if !importable(f) || !w.changed(f) {
			continue
		}
		res, err := w.ingest.ingest(ctx, f)
		if err != nil {
			// a queue-full or transient error is retried on the next poll
			log.Warn().Err(err).Str("file", f.Name).Msg("Drive: import failed")
			if res == nil || res.Upload == nil {
				continue
			}
		}
		w.markSeen(f)
		results = append(results, res)
	}
	if len(results) > 0 {
		log.Info().Int("imported", len(results)).Str("folder_id", w.folderID).Msg("Drive: poll imported files")
	}
	return results, nil
}

func (w *Watcher) changed(f *File) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	mod, ok := w.seen[f.ID]
	return !ok || mod != f.ModifiedTime
}

func (w *Watcher) markSeen(f *File) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen[f.ID] = f.ModifiedTime
}
