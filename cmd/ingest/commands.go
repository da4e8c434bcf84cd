package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/andresuchdata/erpflow/internal/service"
	"github.com/andresuchdata/erpflow/internal/transform"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// ingestFile registers one workbook and runs it to completion.
func ingestFile(ctx context.Context, c *cli.Context, localPath, name, objectKey string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	req := service.UploadRequest{Name: name, Reader: f, ObjectKey: objectKey}
	if ts := c.Timestamp("snapshot-date"); ts != nil {
		req.SnapshotDate = ts
	}

	a := appFrom(c)
	job, res, err := a.Uploads.Register(ctx, req)
	if err != nil {
		if res != nil {
			log.Error().Err(err).Int64("upload_id", res.UploadID).Str("file", name).Msg("Workbook rejected")
		}
		return err
	}
	return a.Orchestrator.Run(ctx, *job)
}

func loadFiles(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one workbook path is required")
	}

	var failed int
	for _, p := range paths {
		start := time.Now()
		err := ingestFile(c.Context, c, p, filepath.Base(p), "")
		if err != nil {
			failed++
			log.Error().Err(err).Str("file", p).Msg("Load failed")
			if !c.Bool("keep-going") {
				return err
			}
			continue
		}
		log.Info().Str("file", p).Dur("took", time.Since(start)).Msg("Loaded")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d workbooks failed", failed, len(paths))
	}
	return nil
}

// rebuildOrder splits the requested families into dimension families, which
// run first, and the rest, which run concurrently.
func rebuildOrder(names []string) (dims, facts []domain.Family, err error) {
	wanted := make(map[domain.Family]bool)
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			f := domain.Family(part)
			if _, ok := schema.Lookup(f); !ok {
				return nil, nil, fmt.Errorf("unknown family %q", part)
			}
			wanted[f] = true
		}
	}
	for _, d := range schema.Families() {
		if len(wanted) > 0 && !wanted[d.Family] {
			continue
		}
		if d.Family == domain.FamilySalesHierarchy {
			dims = append(dims, d.Family)
		} else {
			facts = append(facts, d.Family)
		}
	}
	return dims, facts, nil
}

func rebuild(c *cli.Context) error {
	a := appFrom(c)
	ctx := c.Context

	dims, facts, err := rebuildOrder(c.StringSlice("family"))
	if err != nil {
		return err
	}
	var scope transform.Scope
	if ts := c.Timestamp("snapshot-date"); ts != nil {
		scope.SnapshotDate = *ts
	}

	run := func(ctx context.Context, f domain.Family) error {
		counters, err := a.Transformer.Transform(ctx, f, scope)
		if err != nil {
			return fmt.Errorf("transform %s: %w", f, err)
		}
		log.Info().Str("family", f.String()).
			Int("inserted", counters.Inserted).
			Int("updated", counters.Updated).
			Int("unchanged", counters.Unchanged).
			Msg("Rebuilt")
		return nil
	}

	for _, f := range dims {
		if err := run(ctx, f); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.Int("concurrency")))
	for _, f := range facts {
		g.Go(func() error { return run(gctx, f) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	lt, err := a.LeadTime.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh lead times: %w", err)
	}
	log.Info().Interface("counters", lt).Msg("Lead times refreshed")

	al, err := a.Alerts.Detect(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("detect alerts: %w", err)
	}
	log.Info().Interface("counters", al).Msg("Alerts refreshed")

	if err := a.Cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("Dashboard cache invalidation failed")
	}
	return nil
}

func storageImport(c *cli.Context) error {
	a := appFrom(c)
	if a.Archive == nil {
		return errors.New("object storage is not configured (STORAGE_ENDPOINT)")
	}
	ctx := c.Context

	objects, err := a.Archive.List(ctx)
	if err != nil {
		return err
	}

	prefix := c.String("prefix")
	var imported, failed int
	for _, obj := range objects {
		if prefix != "" && !strings.HasPrefix(obj.Key, prefix) {
			continue
		}
		ext := strings.ToLower(path.Ext(obj.Key))
		if ext != ".xlsx" {
			continue
		}
		if c.Bool("dry-run") {
			fmt.Fprintf(c.App.Writer, "%s\t%d\n", obj.Key, obj.Size)
			continue
		}

		local, err := a.Archive.Fetch(ctx, obj.Key)
		if err != nil {
			return err
		}
		err = ingestFile(ctx, c, local, path.Base(obj.Key), obj.Key)
		_ = os.Remove(local)
		if err != nil {
			failed++
			log.Error().Err(err).Str("key", obj.Key).Msg("Import failed")
			continue
		}
		imported++
	}
	log.Info().Int("imported", imported).Int("failed", failed).Msg("Storage import finished")
	return nil
}

func history(c *cli.Context) error {
	a := appFrom(c)
	ctx := c.Context

	stats, err := a.Journal.Stats(ctx, time.Now().Add(-c.Duration("since")))
	if err != nil {
		return err
	}
	uploads, err := a.Journal.List(ctx, c.Int("limit"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "uploads\t%d\ncompleted\t%d\nfailed\t%d\nin flight\t%d\nrows loaded\t%d\n\n",
		stats.Uploads, stats.Completed, stats.Failed, stats.InFlight, stats.RowsLoaded)
	fmt.Fprintln(w, "ID\tFILE\tFAMILY\tSTATUS\tLOADED\tSKIPPED\tFACTS\tUPLOADED\tERROR")
	for _, u := range uploads {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			u.ID, u.OriginalName, u.Family, u.Status, u.RowsLoaded, u.RowsSkipped,
			u.FactsInserted+u.FactsUpdated, u.UploadedAt.Format("2006-01-02 15:04"), truncate(u.ErrorMessage, 60))
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
