package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/renderlab/render-service/internal/job"
)

// Config holds the renderer invocation contract.
type Config struct {
	// Command is the renderer executable (or container wrapper).
	Command string
	// ExtraArgs are fixed arguments inserted before the generated ones.
	ExtraArgs []string
	// Quality is the renderer quality profile passed with -q.
	Quality string
	// Timeout bounds one render attempt wall-clock; the process is killed
	// when it is exceeded.
	Timeout time.Duration
}

// Pipeline turns submitted source into artifact bytes: workspace setup,
// renderer subprocess, artifact discovery. It owns the per-attempt timeout
// and guarantees the workspace is gone on every exit path.
type Pipeline struct {
	cfg        Config
	workspaces *WorkspaceManager
	runner     Runner
	logger     *slog.Logger
}

// NewPipeline creates a render pipeline.
func NewPipeline(cfg Config, workspaces *WorkspaceManager, runner Runner, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		workspaces: workspaces,
		runner:     runner,
		logger:     logger,
	}
}

// Render executes one render attempt for jobID. It never returns a Go error:
// every failure mode is classified into the outcome so the orchestrator can
// record it on the job.
func (p *Pipeline) Render(ctx context.Context, jobID, source string) *job.Outcome {
	sceneName := DetectSceneName(source)

	p.logger.Info("Starting render",
		slog.String("job_id", jobID),
		slog.String("scene", sceneName),
		slog.String("quality", p.cfg.Quality),
	)

	ws, err := p.workspaces.Acquire(jobID)
	if err != nil {
		return failure(&job.RenderError{
			Kind:    job.KindSpawnFailure,
			Message: fmt.Sprintf("workspace setup failed: %s", err),
		})
	}
	defer ws.Release()

	if err := ws.Write(sourceFileName, []byte(source)); err != nil {
		return failure(&job.RenderError{
			Kind:    job.KindSpawnFailure,
			Message: fmt.Sprintf("failed to persist source: %s", err),
		})
	}

	mediaDir := filepath.Join(ws.Root(), "media")
	args := append([]string{}, p.cfg.ExtraArgs...)
	args = append(args,
		"-q", p.cfg.Quality,
		"--media_dir", mediaDir,
		sourceFileName,
		sceneName,
	)

	runCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	res := p.runner.Run(runCtx, ws.Root(), p.cfg.Command, args...)
	stdout, stderr := string(res.Stdout), string(res.Stderr)

	if !res.Spawned() {
		return failure(&job.RenderError{
			Kind:     job.KindSpawnFailure,
			Message:  res.SpawnErr.Error(),
			Stderr:   stderr,
			ExitCode: res.ExitCode,
		})
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return failure(&job.RenderError{
			Kind:     job.KindTimeout,
			Message:  fmt.Sprintf("render exceeded %s", p.cfg.Timeout),
			Stdout:   stdout,
			Stderr:   stderr,
			ExitCode: res.ExitCode,
		})
	}

	if res.ExitCode != 0 {
		return failure(&job.RenderError{
			Kind:     job.KindRenderFailure,
			Message:  fmt.Sprintf("renderer exited with code %d", res.ExitCode),
			Stdout:   stdout,
			Stderr:   stderr,
			ExitCode: res.ExitCode,
		})
	}

	// The renderer reported success; the artifact must exist. A zero exit
	// with no artifact is its own failure kind, never coerced into a
	// render failure.
	artifactPath, err := Locate(mediaDir, sceneName)
	if err != nil {
		return failure(&job.RenderError{
			Kind:    job.KindArtifactMissing,
			Message: err.Error(),
			Stdout:  stdout,
			Stderr:  stderr,
		})
	}

	// Read the bytes out before the deferred release deletes the tree.
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return failure(&job.RenderError{
			Kind:    job.KindArtifactMissing,
			Message: fmt.Sprintf("failed to read artifact: %s", err),
			Stdout:  stdout,
			Stderr:  stderr,
		})
	}

	p.logger.Info("Render succeeded",
		slog.String("job_id", jobID),
		slog.String("scene", sceneName),
		slog.Int("artifact_bytes", len(data)),
	)

	return &job.Outcome{
		Artifact: data,
		Stdout:   stdout,
		Stderr:   stderr,
	}
}

func failure(err *job.RenderError) *job.Outcome {
	return &job.Outcome{
		Stdout: err.Stdout,
		Stderr: err.Stderr,
		Err:    err,
	}
}
