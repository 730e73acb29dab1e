package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-studio/internal/archive"
	"github.com/aliskhannn/catalog-studio/internal/manifest"
	"github.com/aliskhannn/catalog-studio/internal/model"
)

const (
	// DefaultArchiveFolder is created inside the output directory when no
	// archive folder is configured.
	DefaultArchiveFolder = "Finished_Originals"

	lockFile = ".catalog-studio.lock"
)

var (
	// ErrOutputDir is returned when the output directory is missing or not a directory.
	ErrOutputDir = errors.New("invalid output directory")

	// ErrRunLocked is returned when another run holds the output directory.
	ErrRunLocked = errors.New("output directory is locked by another run")
)

// itemProcessor processes a single input file.
type itemProcessor interface {
	Process(ctx context.Context, path, outputDir string) (model.ProcessRecord, error)
	Config() model.ProcessingConfig
	RemoverAvailable() bool
}

// eventPublisher announces processed items to downstream systems.
type eventPublisher interface {
	Publish(ctx context.Context, event model.ProcessedEvent) error
}

// uploader copies a run's outputs to remote storage.
type uploader interface {
	Upload(ctx context.Context, runID, dir string, names []string) error
}

// Report summarises a finished run.
type Report struct {
	RunID         string
	ManifestPath  string
	Total         int
	Records       []model.ProcessRecord
	Failures      []model.Failure
	Moved         int
	ArchiveErrors []model.Failure
}

// Succeeded returns the number of items written to the manifest.
func (r Report) Succeeded() int {
	return len(r.Records)
}

// Orchestrator runs batches sequentially, isolating per-item failures.
type Orchestrator struct {
	processor      itemProcessor
	events         eventPublisher
	uploader       uploader
	manifestPrefix string
	now            func() time.Time
}

// NewOrchestrator creates an Orchestrator around p.
func NewOrchestrator(p itemProcessor, manifestPrefix string) *Orchestrator {
	return &Orchestrator{
		processor:      p,
		manifestPrefix: manifestPrefix,
		now:            time.Now,
	}
}

// WithEvents publishes an event for every processed item.
func (o *Orchestrator) WithEvents(e eventPublisher) *Orchestrator {
	o.events = e
	return o
}

// WithUploader uploads outputs and the manifest once a run has finished.
func (o *Orchestrator) WithUploader(u uploader) *Orchestrator {
	o.uploader = u
	return o
}

// WithClock overrides the clock used for the manifest name and events.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// RunQueue runs every queued path and clears the queue once the run has
// completed, whether or not individual items failed. A run-level error leaves
// the queue untouched.
func (o *Orchestrator) RunQueue(ctx context.Context, q *Queue, outputDir string) (Report, error) {
	rep, err := o.Run(ctx, q.Paths(), outputDir)
	if err != nil && rep.ManifestPath == "" {
		return rep, err
	}

	q.Clear()

	return rep, err
}

// Run processes paths in order into outputDir. Each success becomes a manifest
// row and, if configured, its original is moved to the archive folder. Failed
// items are reported and skipped. Errors returned by Run are run-level: they
// happen before any item is touched, or when the manifest cannot be finalised.
func (o *Orchestrator) Run(ctx context.Context, paths []string, outputDir string) (Report, error) {
	cfg := o.processor.Config()

	info, err := os.Stat(outputDir)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrOutputDir, err)
	}
	if !info.IsDir() {
		return Report{}, fmt.Errorf("%w: %s is not a directory", ErrOutputDir, outputDir)
	}

	// Hold the output directory for the duration of the run.
	lock := flock.New(filepath.Join(outputDir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return Report{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrRunLocked, outputDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			zlog.Logger.Warn().Err(err).Msg("failed to release run lock")
		}
	}()

	archiveDir := cfg.ArchiveDir
	if archiveDir == "" {
		archiveDir = filepath.Join(outputDir, DefaultArchiveFolder)
	}
	if cfg.MoveOriginals {
		if err := os.MkdirAll(archiveDir, os.ModePerm); err != nil {
			return Report{}, fmt.Errorf("create archive folder: %w", err)
		}
	}

	started := o.now()
	mw, err := manifest.Create(outputDir, manifest.FileName(o.manifestPrefix, started), cfg.WritesPNG())
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		RunID:        uuid.NewString(),
		ManifestPath: mw.Path(),
		Total:        len(paths),
	}

	log := zlog.Logger.With().Str("run_id", rep.RunID).Logger()
	log.Info().
		Int("total", rep.Total).
		Str("output", outputDir).
		Str("manifest", rep.ManifestPath).
		Msg("processing started")

	if cfg.RemoveBackground && !o.processor.RemoverAvailable() {
		log.Warn().Msg("background removal requested but no remover is available; every item will fail")
	}

	for i, path := range paths {
		name := filepath.Base(path)

		rec, err := o.processor.Process(ctx, path, outputDir)
		if err != nil {
			rep.Failures = append(rep.Failures, model.Failure{Original: name, Path: path, Reason: err.Error()})
			log.Error().
				Err(err).
				Int("index", i+1).
				Int("total", rep.Total).
				Str("file", name).
				Msg("failed to process image")
			continue
		}

		if err := mw.Write(rec); err != nil {
			rep.Failures = append(rep.Failures, model.Failure{Original: name, Path: path, Reason: err.Error()})
			log.Error().Err(err).Str("file", name).Msg("failed to write manifest row")
			continue
		}
		rep.Records = append(rep.Records, rec)

		ev := log.Info().
			Int("index", i+1).
			Int("total", rep.Total).
			Str("file", name).
			Str("jpg", rec.JPG)
		if rec.PNG != "" {
			ev = ev.Str("png", rec.PNG)
		}
		ev.Msg("image processed")

		if cfg.MoveOriginals {
			dst, err := archive.Move(path, archiveDir)
			if err != nil {
				rep.ArchiveErrors = append(rep.ArchiveErrors, model.Failure{Original: name, Path: path, Reason: err.Error()})
				log.Warn().Err(err).Str("file", name).Msg("couldn't move original")
			} else {
				rep.Moved++
				log.Info().Str("file", name).Str("dest", dst).Msg("moved original")
			}
		}

		if o.events != nil {
			event := model.ProcessedEvent{RunID: rep.RunID, Record: rec, ProcessedAt: o.now()}
			if err := o.events.Publish(ctx, event); err != nil {
				log.Warn().Err(err).Str("file", name).Msg("failed to publish processed event")
			}
		}
	}

	if err := mw.Close(); err != nil {
		return rep, err
	}

	log.Info().
		Int("succeeded", rep.Succeeded()).
		Int("total", rep.Total).
		Str("manifest", rep.ManifestPath).
		Msg("processing done")

	if o.uploader != nil {
		names := make([]string, 0, 2*len(rep.Records)+1)
		for _, rec := range rep.Records {
			names = append(names, rec.Outputs()...)
		}
		names = append(names, filepath.Base(rep.ManifestPath))

		if err := o.uploader.Upload(ctx, rep.RunID, outputDir, names); err != nil {
			log.Error().Err(err).Msg("failed to upload run outputs")
		}
	}

	return rep, nil
}
