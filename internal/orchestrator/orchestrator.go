package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grabbot/grabbot/internal/config"
	"github.com/grabbot/grabbot/internal/gate"
	"github.com/grabbot/grabbot/internal/logging"
	"github.com/grabbot/grabbot/internal/metrics"
	"github.com/grabbot/grabbot/internal/tracing"
	"github.com/grabbot/grabbot/internal/ytdlp"
	"github.com/grabbot/grabbot/pkg/models"
)

// Fetcher performs the byte transfer for one encoding of a media item,
// writing into destDir. It must honor context cancellation and must not
// write outside destDir.
type Fetcher interface {
	Fetch(ctx context.Context, url, formatID, destDir string) (string, error)
}

// Notifier delivers a finished artifact back to the user.
type Notifier interface {
	SendFile(ctx context.Context, userID int64, path string, kind models.MediaKind) error
}

// Archiver optionally retains delivered artifacts before the working area
// is destroyed.
type Archiver interface {
	Archive(ctx context.Context, jobID, path string) error
}

// Orchestrator supervises download jobs: it bounds global concurrency
// through the gate, enforces the per-job wall-clock deadline, owns the
// job's temporary working area, and converts every possible failure into
// exactly one terminal JobOutcome. No job is retried here.
type Orchestrator struct {
	gate     *gate.Gate
	fetcher  Fetcher
	notifier Notifier
	archiver Archiver // nil when archival is disabled
	cfg      config.DownloadConfig
	log      *logging.Logger
}

// New creates an orchestrator. archiver may be nil.
func New(g *gate.Gate, fetcher Fetcher, notifier Notifier, archiver Archiver, cfg config.DownloadConfig, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		gate:     g,
		fetcher:  fetcher,
		notifier: notifier,
		archiver: archiver,
		cfg:      cfg,
		log:      log,
	}
}

// Run executes one job to its terminal outcome. The deadline clock starts
// here, at admission, before the concurrency slot is acquired: a job stuck
// behind a saturated gate can time out from queueing delay alone. That is a
// deliberate policy choice, not an accident of implementation.
func (o *Orchestrator) Run(ctx context.Context, job models.DownloadJob) (outcome models.JobOutcome) {
	start := time.Now()
	metrics.JobsInProgress.Inc()

	span, ctx := tracing.StartSpan(ctx, "job.run")
	tracing.SetTag(span, "job_id", job.ID)
	tracing.SetTag(span, "kind", string(job.Kind))

	defer func() {
		metrics.JobsInProgress.Dec()
		metrics.JobDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(start).Seconds())
		metrics.RecordOutcome(outcomeLabel(outcome))
		if !outcome.Success {
			tracing.LogError(span, errors.New(outcome.Detail))
		}
		tracing.FinishSpan(span)
		o.logOutcome(job, outcome, time.Since(start))
	}()

	// Nothing propagates past Run as an unhandled fault.
	defer func() {
		if r := recover(); r != nil {
			outcome = models.FailureOutcome(job.ID, models.ErrKindUnknown, fmt.Sprintf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	// Scoped working area, removed on every exit path.
	workDir := filepath.Join(o.cfg.TempDir, job.ID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return models.FailureOutcome(job.ID, models.ErrKindUnknown, fmt.Sprintf("failed to create working area: %v", err))
	}
	defer os.RemoveAll(workDir)

	gateStart := time.Now()
	if err := o.gate.Acquire(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.FailureOutcome(job.ID, models.ErrKindTimeout, "timed out waiting for a download slot")
		}
		return models.FailureOutcome(job.ID, models.ErrKindUnknown, fmt.Sprintf("admission cancelled: %v", err))
	}
	defer o.gate.Release()
	metrics.GateWaitTime.Observe(time.Since(gateStart).Seconds())

	type fetchResult struct {
		path string
		err  error
	}
	done := make(chan fetchResult, 1)
	go func() {
		path, err := o.fetcher.Fetch(ctx, job.SourceURL, job.FormatID, workDir)
		done <- fetchResult{path: path, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		// Cancellation propagates through the shared context; await the
		// fetcher's teardown before declaring the outcome so nothing is
		// still writing into the working area when it is removed.
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.FailureOutcome(job.ID, models.ErrKindTimeout, "download deadline exceeded")
		}
		return models.FailureOutcome(job.ID, models.ErrKindUnknown, "job cancelled")
	}

	if res.err != nil {
		return o.classifyFetchError(job, res.err)
	}

	artifact, err := o.locateArtifact(workDir, res.path)
	if err != nil {
		// A completed fetch without an artifact is a collaborator contract
		// violation, so it is logged louder than ordinary failures.
		o.log.WithJobID(job.ID).ErrorWithErr("Fetch completed but artifact is missing", err)
		return models.FailureOutcome(job.ID, models.ErrKindArtifactMissing, "downloaded file not found")
	}

	st, err := os.Stat(artifact)
	if err != nil {
		return models.FailureOutcome(job.ID, models.ErrKindArtifactMissing, fmt.Sprintf("failed to stat artifact: %v", err))
	}

	// Declared sizes are estimates; re-validate what actually landed on disk.
	if st.Size() > o.cfg.SizeCeiling {
		return models.FailureOutcome(job.ID, models.ErrKindTooLarge, fmt.Sprintf("artifact is %d bytes, ceiling is %d", st.Size(), o.cfg.SizeCeiling))
	}
	metrics.ArtifactSizeBytes.Observe(float64(st.Size()))

	if err := o.notifier.SendFile(ctx, job.UserID, artifact, job.Kind); err != nil {
		return models.FailureOutcome(job.ID, models.ErrKindDelivery, fmt.Sprintf("delivery failed: %v", err))
	}

	if o.archiver != nil {
		if err := o.archiver.Archive(ctx, job.ID, artifact); err != nil {
			o.log.WithJobID(job.ID).WithError(err).Warn("Failed to archive artifact")
		}
	}

	return models.SuccessOutcome(job.ID, artifact, st.Size())
}

// classifyFetchError maps fetcher failures onto the outcome taxonomy.
func (o *Orchestrator) classifyFetchError(job models.DownloadJob, err error) models.JobOutcome {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.FailureOutcome(job.ID, models.ErrKindTimeout, "download deadline exceeded")
	case errors.Is(err, context.Canceled):
		return models.FailureOutcome(job.ID, models.ErrKindUnknown, "job cancelled")
	case errors.Is(err, ytdlp.ErrQuotaExceeded):
		return models.FailureOutcome(job.ID, models.ErrKindTooLarge, err.Error())
	default:
		return models.FailureOutcome(job.ID, models.ErrKindUnknown, err.Error())
	}
}

// locateArtifact resolves the produced file. The fetcher's reported path is
// trusted when it exists; otherwise the working area is scanned. The area
// is job-exclusive, so any regular file in it belongs to this job; with
// several present (subtitle sidecars and the like) the largest wins.
func (o *Orchestrator) locateArtifact(workDir, reported string) (string, error) {
	if reported != "" {
		if _, err := os.Stat(reported); err == nil {
			return reported, nil
		}
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", fmt.Errorf("failed to scan working area: %w", err)
	}

	var best string
	var bestSize int64 = -1
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(workDir, entry.Name())
			bestSize = info.Size()
		}
	}

	if best == "" {
		return "", errors.New("working area is empty")
	}
	return best, nil
}

func (o *Orchestrator) logOutcome(job models.DownloadJob, outcome models.JobOutcome, elapsed time.Duration) {
	log := o.log.WithJobID(job.ID).WithUserID(job.UserID)
	if outcome.Success {
		log.LogJobEvent(job.ID, "completed", map[string]interface{}{
			"kind":        string(job.Kind),
			"size_bytes":  outcome.ArtifactSize,
			"duration_ms": elapsed.Milliseconds(),
		})
		return
	}
	log.LogJobEvent(job.ID, "failed", map[string]interface{}{
		"kind":        string(job.Kind),
		"error_kind":  string(outcome.ErrorKind),
		"detail":      outcome.Detail,
		"duration_ms": elapsed.Milliseconds(),
	})
}

func outcomeLabel(outcome models.JobOutcome) string {
	if outcome.Success {
		return "success"
	}
	return string(outcome.ErrorKind)
}
