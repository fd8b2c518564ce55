package job

import "time"

// State describes where a job is in its lifecycle.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
)

// Terminal reports whether a state is final. Terminal jobs never change again.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Job is one tracked render request. The orchestrator owns the authoritative
// copy; everything handed out to callers is a value snapshot.
type Job struct {
	ID          string
	SourceCode  string
	State       State
	CreatedAt   time.Time
	CompletedAt time.Time

	// ArtifactURL is set only when State is SUCCEEDED.
	ArtifactURL string
	// ArtifactKey is the storage key the artifact was uploaded under.
	ArtifactKey string

	// Log holds the renderer's combined diagnostic output (stdout then
	// stderr). Populated on every terminal state so failures stay
	// diagnosable and successes keep their render log.
	Log string

	// Error is set only when State is FAILED.
	Error *RenderError
}

// Outcome is the result of one render pipeline invocation. Exactly one of
// Artifact or Err is meaningful.
type Outcome struct {
	// Artifact holds the rendered bytes on success.
	Artifact []byte

	// Stdout and Stderr carry the renderer's output verbatim, success or not.
	Stdout string
	Stderr string

	Err *RenderError
}

// Log formats the captured renderer output for storage on the job record.
func (o *Outcome) Log() string {
	if o.Stderr == "" {
		return o.Stdout
	}
	if o.Stdout == "" {
		return o.Stderr
	}
	return o.Stdout + "\n" + o.Stderr
}
