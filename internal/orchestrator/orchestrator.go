// Package orchestrator owns the job lifecycle: accepting submissions,
// dispatching renders to a bounded worker pool, uploading artifacts, and
// retiring completed jobs after a retention window.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/renderlab/render-service/internal/job"
	"github.com/renderlab/render-service/internal/storage"
)

// ErrQueueFull is returned when the dispatch queue cannot accept another job.
var ErrQueueFull = errors.New("render queue is full")

// Renderer executes one render attempt. Satisfied by *render.Pipeline.
type Renderer interface {
	Render(ctx context.Context, jobID, source string) *job.Outcome
}

// Config holds orchestrator settings.
type Config struct {
	// Concurrency is the number of worker goroutines rendering jobs.
	Concurrency int
	// QueueSize bounds the number of accepted-but-not-started jobs.
	QueueSize int
	// Retention is how long terminal jobs stay queryable.
	Retention time.Duration
	// SweepInterval is how often expired jobs are removed.
	SweepInterval time.Duration
}

type trackedJob struct {
	job  job.Job
	done chan struct{}
}

// Orchestrator is the only owner of job state. All mutations happen under
// its lock; callers only ever see value snapshots.
type Orchestrator struct {
	cfg      Config
	pipeline Renderer
	store    storage.ArtifactStore
	logger   *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*trackedJob

	queue    chan string
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates an orchestrator. Call Start before submitting jobs.
func New(cfg Config, pipeline Renderer, store storage.ArtifactStore, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		pipeline: pipeline,
		store:    store,
		logger:   logger,
		jobs:     make(map[string]*trackedJob),
		queue:    make(chan string, cfg.QueueSize),
		stopChan: make(chan struct{}),
	}
}

// Start spawns the worker pool and the retention sweeper.
func (o *Orchestrator) Start(ctx context.Context) {
	o.logger.Info("Spawning render worker pool",
		slog.Int("concurrency", o.cfg.Concurrency),
		slog.Int("queue_size", o.cfg.QueueSize),
	)

	for i := 0; i < o.cfg.Concurrency; i++ {
		o.wg.Add(1)
		go o.workerLoop(ctx, i)
	}

	o.wg.Add(1)
	go o.sweepLoop(ctx)
}

// Stop shuts the pool down and waits for in-flight renders to finish.
func (o *Orchestrator) Stop() {
	o.logger.Info("Stopping orchestrator...")
	close(o.stopChan)
	o.wg.Wait()
	o.logger.Info("Orchestrator stopped")
}

// Submit records a new job and queues it for rendering without blocking on
// the render itself. An empty jobID gets a generated one. Submitting an id
// that is already tracked returns that id with ErrJobExists; the existing
// job is never rendered a second time.
func (o *Orchestrator) Submit(jobID, sourceCode string) (string, error) {
	if jobID == "" {
		jobID = uuid.New().String()
	}

	o.mu.Lock()
	if _, ok := o.jobs[jobID]; ok {
		o.mu.Unlock()
		return jobID, job.ErrJobExists
	}
	o.jobs[jobID] = &trackedJob{
		job: job.Job{
			ID:         jobID,
			SourceCode: sourceCode,
			State:      job.StatePending,
			CreatedAt:  time.Now(),
		},
		done: make(chan struct{}),
	}
	o.mu.Unlock()

	select {
	case o.queue <- jobID:
	default:
		// Queue saturated; drop the record so a resubmission is possible.
		o.mu.Lock()
		delete(o.jobs, jobID)
		o.mu.Unlock()
		return "", ErrQueueFull
	}

	o.logger.Info("Job accepted",
		slog.String("job_id", jobID),
		slog.Int("source_bytes", len(sourceCode)),
	)

	return jobID, nil
}

// Status returns a snapshot of the job. Terminal snapshots never change
// between calls.
func (o *Orchestrator) Status(jobID string) (job.Job, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	tracked, ok := o.jobs[jobID]
	if !ok {
		return job.Job{}, job.ErrJobNotFound
	}
	return tracked.job, nil
}

// Await blocks until the job reaches a terminal state or ctx is done, then
// returns the terminal snapshot.
func (o *Orchestrator) Await(ctx context.Context, jobID string) (job.Job, error) {
	o.mu.RLock()
	tracked, ok := o.jobs[jobID]
	o.mu.RUnlock()
	if !ok {
		return job.Job{}, job.ErrJobNotFound
	}

	select {
	case <-tracked.done:
		return o.Status(jobID)
	case <-ctx.Done():
		return job.Job{}, ctx.Err()
	}
}

// ArtifactKey derives the deterministic storage key for a job's artifact.
func ArtifactKey(jobID string) string {
	return fmt.Sprintf("renders/%s.mp4", jobID)
}

// workerLoop is the processing loop of one pool worker.
func (o *Orchestrator) workerLoop(ctx context.Context, workerNum int) {
	defer o.wg.Done()

	for {
		select {
		case <-o.stopChan:
			o.logger.Info("Render worker stopping",
				slog.Int("worker_num", workerNum),
			)
			return

		case <-ctx.Done():
			o.logger.Info("Render worker stopping - context canceled",
				slog.Int("worker_num", workerNum),
			)
			return

		case jobID := <-o.queue:
			o.execute(ctx, jobID)
		}
	}
}

// execute runs one job end to end and always resolves it to a terminal
// state; pipeline failures are never swallowed.
func (o *Orchestrator) execute(ctx context.Context, jobID string) {
	source, ok := o.claim(jobID)
	if !ok {
		return
	}

	outcome := o.pipeline.Render(ctx, jobID, source)
	if outcome.Err != nil {
		o.logger.Error("Render failed",
			slog.String("job_id", jobID),
			slog.String("kind", string(outcome.Err.Kind)),
			slog.String("error", outcome.Err.Error()),
		)
		o.fail(jobID, outcome.Log(), outcome.Err)
		return
	}

	key := ArtifactKey(jobID)
	url, err := o.store.Upload(ctx, key, outcome.Artifact)
	if err != nil {
		// Distinct from render errors so retries can target the storage
		// leg alone. The render log is kept on the failed job.
		o.logger.Error("Artifact upload failed",
			slog.String("job_id", jobID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		o.fail(jobID, outcome.Log(), &job.RenderError{
			Kind:    job.KindStorageError,
			Message: err.Error(),
			Stdout:  outcome.Stdout,
			Stderr:  outcome.Stderr,
		})
		return
	}

	o.succeed(jobID, outcome.Log(), key, url)
}

// claim transitions the job PENDING -> RUNNING and returns its source. Only
// one worker can win the transition; anything not PENDING is left alone.
func (o *Orchestrator) claim(jobID string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tracked, ok := o.jobs[jobID]
	if !ok || tracked.job.State != job.StatePending {
		return "", false
	}
	tracked.job.State = job.StateRunning

	return tracked.job.SourceCode, true
}

func (o *Orchestrator) succeed(jobID, log, key, url string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tracked, ok := o.jobs[jobID]
	if !ok || tracked.job.State != job.StateRunning {
		return
	}
	tracked.job.State = job.StateSucceeded
	tracked.job.CompletedAt = time.Now()
	tracked.job.Log = log
	tracked.job.ArtifactKey = key
	tracked.job.ArtifactURL = url
	close(tracked.done)

	o.logger.Info("Job succeeded",
		slog.String("job_id", jobID),
		slog.String("artifact_url", url),
	)
}

func (o *Orchestrator) fail(jobID, log string, renderErr *job.RenderError) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tracked, ok := o.jobs[jobID]
	if !ok || tracked.job.State != job.StateRunning {
		return
	}
	tracked.job.State = job.StateFailed
	tracked.job.CompletedAt = time.Now()
	tracked.job.Log = log
	tracked.job.Error = renderErr
	close(tracked.done)
}

// sweepLoop periodically removes terminal jobs older than the retention
// window to bound memory growth.
func (o *Orchestrator) sweepLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.sweep(time.Now())
		}
	}
}

// sweep removes jobs whose completion is older than the retention window.
func (o *Orchestrator) sweep(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for id, tracked := range o.jobs {
		if !tracked.job.State.Terminal() {
			continue
		}
		if now.Sub(tracked.job.CompletedAt) > o.cfg.Retention {
			delete(o.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		o.logger.Info("Swept expired jobs",
			slog.Int("removed", removed),
		)
	}
}
