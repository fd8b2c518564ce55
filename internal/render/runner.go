package render

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// ExitSpawnFailure is the reserved exit code reported when the renderer
// process could not be started at all. Real processes cannot exit with a
// negative code, so it never collides with a genuine renderer exit.
const ExitSpawnFailure = -1

// RunResult captures everything a finished (or failed-to-start) process left
// behind. A non-zero exit code is a normal, reportable outcome here, never an
// error.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int

	// SpawnErr is set only when the process never started; its message is
	// also copied into Stderr so downstream diagnostics read uniformly.
	SpawnErr error
}

// Spawned reports whether the process actually started.
func (r *RunResult) Spawned() bool {
	return r.SpawnErr == nil
}

// Runner executes one external command and drains its output. Cancellation
// and timeouts are the caller's responsibility via ctx; the runner itself
// imposes no deadline.
type Runner interface {
	Run(ctx context.Context, dir string, command string, args ...string) *RunResult
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run starts the command in dir and waits for it to finish. Both streams are
// collected into in-memory buffers, so arbitrarily large output cannot
// deadlock a pipe. When ctx expires the process is killed and the partial
// output is still returned.
func (e *ExecRunner) Run(ctx context.Context, dir string, command string, args ...string) *RunResult {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("Spawning renderer process",
		slog.String("command", command),
		slog.Any("args", args),
		slog.String("dir", dir),
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		e.logger.Error("Failed to spawn renderer process",
			slog.String("command", command),
			slog.String("error", err.Error()),
		)
		return &RunResult{
			Stderr:   []byte(err.Error()),
			ExitCode: ExitSpawnFailure,
			SpawnErr: err,
		}
	}

	// Wait returns an *exec.ExitError on non-zero exit; that is a normal
	// outcome for us, so only the exit code is kept.
	err := cmd.Wait()
	exitCode := 0
	if err != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	e.logger.Debug("Renderer process finished",
		slog.String("command", command),
		slog.Int("exit_code", exitCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &RunResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}
}
