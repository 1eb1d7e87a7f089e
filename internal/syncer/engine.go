package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/BebopxD/studip-client/internal/pathgen"
	"github.com/BebopxD/studip-client/internal/store"
)

// defaultDownloadWorkers bounds the download pool when no config is given.
const defaultDownloadWorkers = 4

// Options configures an Engine.
type Options struct {
	// Root is the sync directory files are materialized under, for views
	// without a base override.
	Root string

	// Workers bounds the parallel download pool.
	Workers int

	// SkipCopyrighted leaves copyrighted files unmaterialized.
	SkipCopyrighted bool

	// DefaultSync is the policy assigned to newly discovered courses.
	DefaultSync store.SyncMode
}

// Engine ties the metadata store to the remote collaborators.
type Engine struct {
	store   *store.Store
	source  MetadataSource
	fetcher FileFetcher
	opts    Options
	logger  *slog.Logger
}

// New creates an engine. Source and fetcher may be nil when only the
// corresponding phase is never run.
func New(st *store.Store, source MetadataSource, fetcher FileFetcher, opts Options, logger *slog.Logger) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = defaultDownloadWorkers
	}

	return &Engine{store: st, source: source, fetcher: fetcher, opts: opts, logger: logger}
}

// Update fetches the remote metadata feed and replaces the stored set in
// one store transaction. An interrupt or crash mid-update leaves the
// previous snapshot intact.
func (e *Engine) Update(ctx context.Context) (store.ReplaceStats, error) {
	if e.source == nil {
		return store.ReplaceStats{}, errors.New("syncer: no metadata source configured")
	}

	runID := uuid.NewString()
	e.logger.Info("starting metadata update", "run_id", runID)

	set, err := e.source.FetchMetadata(ctx)
	if err != nil {
		return store.ReplaceStats{}, fmt.Errorf("fetch metadata: %w", err)
	}

	set.DefaultSync = e.opts.DefaultSync

	stats, err := e.store.ReplaceMetadata(ctx, *set)
	if err != nil {
		return store.ReplaceStats{}, err
	}

	e.logger.Info("metadata update complete", "run_id", runID)

	return stats, nil
}

// downloadJob is one (view, file) pair that needs materialization.
type downloadJob struct {
	view store.View
	file store.File
	path string // absolute target path
}

// Download materializes every fully synced file that has no checkout in
// some view. Fetches run through a bounded worker pool; store writes
// (checkout, local date) happen only after a completed fetch, so an
// interrupt never leaves checkout state ahead of the disk.
func (e *Engine) Download(ctx context.Context) (*DownloadReport, error) {
	if e.fetcher == nil {
		return nil, errors.New("syncer: no file fetcher configured")
	}

	report := &DownloadReport{}

	jobs, err := e.collectJobs(ctx, report)
	if err != nil {
		return nil, err
	}

	if len(jobs) == 0 {
		e.logger.Info("all files up to date")
		return report, nil
	}

	e.logger.Info("starting downloads", "count", len(jobs), "workers", e.opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	var mu gosync.Mutex

	for i := range jobs {
		job := &jobs[i]
		g.Go(func() error {
			err := e.materialize(gctx, job)
			if err != nil {
				// Context errors abort the run; per-file failures are
				// recorded and the other workers continue.
				if gctx.Err() != nil {
					return err
				}

				mu.Lock()
				report.Errors = append(report.Errors, DownloadError{
					FileID: job.file.ID, View: job.view.Name, Path: job.path, Err: err,
				})
				mu.Unlock()

				e.logger.Warn("download failed",
					"file", job.file.ID, "view", job.view.Name, "path", job.path, "error", err)

				return nil
			}

			mu.Lock()
			report.Downloaded++
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	e.logger.Info("downloads complete",
		"downloaded", report.Downloaded, "failed", len(report.Errors),
		"up_to_date", report.UpToDate, "copyrighted_skipped", report.Copyrighted)

	return report, nil
}

// collectJobs renders target paths for every (view, file) pair without a
// checkout. Reads run after the update phase completed, so the rendered
// paths are stable for the rest of the run.
func (e *Engine) collectJobs(ctx context.Context, report *DownloadReport) ([]downloadJob, error) {
	views, err := e.store.ListViews(ctx)
	if err != nil {
		return nil, err
	}

	files, err := e.store.ListFiles(ctx, store.Modes(store.SyncFull))
	if err != nil {
		return nil, err
	}

	var jobs []downloadJob

	for _, f := range files {
		if f.Copyrighted && e.opts.SkipCopyrighted {
			report.Copyrighted++
			continue
		}

		for _, v := range views {
			needs, err := e.store.NeedsCheckout(ctx, v.ID, f.ID)
			if err != nil {
				return nil, err
			}

			if !needs {
				report.UpToDate++
				continue
			}

			jobs = append(jobs, downloadJob{
				view: v,
				file: f,
				path: filepath.FromSlash(pathgen.RenderInto(e.opts.Root, v, f)),
			})
		}
	}

	return jobs, nil
}

// materialize fetches one file into place and records the checkout. The
// bytes land in a uniquely named partial file first and are renamed over
// the target only when complete.
func (e *Engine) materialize(ctx context.Context, job *downloadJob) error {
	if err := os.MkdirAll(filepath.Dir(job.path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	partial := fmt.Sprintf("%s.%s.partial", job.path, uuid.NewString())

	if err := e.fetchInto(ctx, job.file.ID, partial); err != nil {
		os.Remove(partial)
		return err
	}

	if err := os.Rename(partial, job.path); err != nil {
		os.Remove(partial)
		return fmt.Errorf("move into place: %w", err)
	}

	if err := e.store.RecordCheckout(ctx, job.view.ID, job.file.ID); err != nil {
		return err
	}

	return e.store.SetLocalDate(ctx, job.file.ID, time.Now())
}

// fetchInto streams the remote bytes to the given partial path.
func (e *Engine) fetchInto(ctx context.Context, fileID, dest string) error {
	body, err := e.fetcher.FetchFile(ctx, fileID)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer body.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create partial file: %w", err)
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return fmt.Errorf("write: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}
