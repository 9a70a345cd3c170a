package align

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maitreyyi/SANA-Development-sub001/internal/core/event"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// tailLimit bounds the log tail returned while a job is still running.
const tailLimit = 4 * 1024

// Engine drives job state transitions: it reads a descriptor, decides
// whether to invoke the aligner, runs it, captures output, and writes
// the terminal descriptor. Dispatch is purely on the persisted status,
// so triggering the same job any number of times, concurrently or
// sequentially, invokes the aligner at most once.
type Engine struct {
	store  *job.Store
	bus    event.Bus
	sem    *semaphore.Weighted
	binDir string
	grace  time.Duration
}

// Config holds the engine's runtime parameters.
type Config struct {
	BinDir        string
	MaxConcurrent int
	RunGrace      time.Duration
}

func NewEngine(store *job.Store, bus event.Bus, cfg Config) *Engine {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RunGrace <= 0 {
		cfg.RunGrace = 5 * time.Minute
	}
	return &Engine{
		store:  store,
		bus:    bus,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		binDir: cfg.BinDir,
		grace:  cfg.RunGrace,
	}
}

// Outcome reports what a process trigger observed or produced.
type Outcome struct {
	Status  job.Status
	Started bool   // this call performed the invocation
	Tail    string // current log tail, set when the job was already running
}

// Process handles one "process this job id" trigger.
//
//   - unknown id: job.ErrNotFound
//   - terminal status: reported back, no invocation
//   - processing: reported back with the current log tail, no invocation
//   - preprocessed: claim the job, run the aligner, write the terminal
//     descriptor
//
// An aligner failure is recovered into a terminal failed descriptor and
// a normal Outcome. A packaging failure after a successful run is NOT
// recovered: it returns a *job.PackagingError and the descriptor stays
// in processing.
func (e *Engine) Process(ctx context.Context, id string) (*Outcome, error) {
	j, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}

	switch j.Status {
	case job.StatusProcessed, job.StatusFailed:
		return &Outcome{Status: j.Status}, nil
	case job.StatusProcessing:
		return &Outcome{Status: j.Status, Tail: tailLog(e.store.Dir(id), tailLimit)}, nil
	}

	// Bound the number of concurrent aligner processes before claiming,
	// so a caller that gives up while queued leaves the job runnable.
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for run slot: %w", err)
	}
	defer e.sem.Release(1)

	args := BuildCommand(filepath.Join(e.binDir, j.ModelVersion.Binary()), j)

	// Persist processing before invoking; a concurrent trigger losing
	// this compare-and-swap observes processing and short-circuits.
	claimed, err := e.store.Transition(id, job.StatusPreprocessed, job.StatusProcessing, func(j *job.Job) {
		j.Command = args
	})
	if err != nil {
		var conflict *job.ConflictError
		if errors.As(err, &conflict) {
			return &Outcome{Status: conflict.Current, Tail: tailLog(e.store.Dir(id), tailLimit)}, nil
		}
		return nil, err
	}

	e.bus.Publish(ctx, event.Event{
		Type:    event.EventJobStarted,
		Payload: event.JobEvent{JobID: id, UserID: claimed.Owner, Version: string(claimed.ModelVersion)},
	})

	return e.execute(ctx, claimed, args)
}

func (e *Engine) execute(ctx context.Context, j *job.Job, args []string) (*Outcome, error) {
	dir := e.store.Dir(j.ID)

	runCtx, cancel := context.WithTimeout(context.Background(), e.runtimeLimit(j))
	defer cancel()

	runErr := run(runCtx, dir, args)
	if runErr != nil {
		return e.fail(ctx, j, runErr)
	}

	archive := job.ArchiveName(j.ID)
	if err := pack(dir, archive); err != nil {
		return nil, &job.PackagingError{Err: err}
	}
	if err := verifyArchive(dir, archive); err != nil {
		return nil, &job.PackagingError{Err: err}
	}

	done, err := e.store.Transition(j.ID, job.StatusProcessing, job.StatusProcessed, func(j *job.Job) {
		j.Archive = archive
	})
	if err != nil {
		return nil, err
	}

	e.bus.Publish(ctx, event.Event{
		Type:    event.EventJobCompleted,
		Payload: event.JobEvent{JobID: j.ID, UserID: j.Owner, Version: string(j.ModelVersion), Archive: archive},
	})

	return &Outcome{Status: done.Status, Started: true}, nil
}

// fail recovers an aligner failure into a terminal failed descriptor.
// The trigger request itself still succeeds.
func (e *Engine) fail(ctx context.Context, j *job.Job, runErr error) (*Outcome, error) {
	dir := e.store.Dir(j.ID)
	e.writeErrorLog(dir, runErr)

	failed, err := e.store.Transition(j.ID, job.StatusProcessing, job.StatusFailed, func(j *job.Job) {
		j.ErrorLog = job.ErrorLogName
	})
	if err != nil {
		return nil, err
	}

	e.bus.Publish(ctx, event.Event{
		Type:    event.EventJobFailed,
		Payload: event.JobEvent{JobID: j.ID, UserID: j.Owner, Version: string(j.ModelVersion), Error: runErr.Error()},
	})

	return &Outcome{Status: failed.Status, Started: true}, nil
}

// writeErrorLog snapshots the captured run output into the error log,
// appending the failure reason. Best effort: results queries fall back
// to a fixed message when the log is unreadable.
func (e *Engine) writeErrorLog(dir string, runErr error) {
	output, _ := os.ReadFile(filepath.Join(dir, job.RunLogName))
	body := append(output, []byte(runErr.Error()+"\n")...)
	if err := os.WriteFile(filepath.Join(dir, job.ErrorLogName), body, 0o644); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("could not write error log")
	}
}

// runtimeLimit derives the invocation deadline from the job's t option
// (minutes) plus a grace period, so a hung aligner surfaces as a timeout
// instead of blocking forever.
func (e *Engine) runtimeLimit(j *job.Job) time.Duration {
	minutes := j.Options.Standard["t"]
	if minutes < 1 {
		minutes = 1
	}
	return time.Duration(minutes)*time.Minute + e.grace
}
