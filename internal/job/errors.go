package job

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a job failed.
type ErrorKind string

const (
	// KindSpawnFailure means the renderer process could not be started at
	// all (binary missing, permission denied). An environment problem, not
	// attributable to the submitted source.
	KindSpawnFailure ErrorKind = "SPAWN_FAILURE"

	// KindRenderFailure means the renderer ran and exited non-zero.
	KindRenderFailure ErrorKind = "RENDER_FAILURE"

	// KindTimeout means the render exceeded its wall-clock budget and the
	// process was killed.
	KindTimeout ErrorKind = "TIMEOUT"

	// KindArtifactMissing means the renderer exited zero but no artifact
	// was found under any known output location. Kept distinct from
	// RENDER_FAILURE: the subprocess claimed success, which is worth
	// reporting separately.
	KindArtifactMissing ErrorKind = "ARTIFACT_MISSING"

	// KindStorageError means the render succeeded but the artifact upload
	// (or a later download) failed.
	KindStorageError ErrorKind = "STORAGE_ERROR"
)

var (
	// ErrJobNotFound is returned when a job id is unknown to the orchestrator.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned when a caller-supplied job id is already tracked.
	ErrJobExists = errors.New("job already exists")
)

// RenderError is the structured failure attached to a FAILED job. Stderr and
// Stdout are preserved verbatim; nothing is summarized away.
type RenderError struct {
	Kind     ErrorKind
	Message  string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (e *RenderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}
