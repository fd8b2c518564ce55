package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// WorkspaceManager hands out isolated per-job directories under a single work
// root. One live workspace per job id; jobs are not re-entrant, so a second
// Acquire for the same id is an implementation error.
type WorkspaceManager struct {
	root   string
	logger *slog.Logger

	mu   sync.Mutex
	live map[string]struct{}
}

// NewWorkspaceManager creates a manager rooted at root. The root directory is
// created if it does not exist.
func NewWorkspaceManager(root string, logger *slog.Logger) (*WorkspaceManager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work root: %w", err)
	}
	return &WorkspaceManager{
		root:   root,
		logger: logger,
		live:   make(map[string]struct{}),
	}, nil
}

// Acquire creates the workspace directory for jobID and returns a handle to
// it. Fails if a workspace for that id is already live.
func (m *WorkspaceManager) Acquire(jobID string) (*Workspace, error) {
	m.mu.Lock()
	if _, ok := m.live[jobID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("workspace for job %s already acquired", jobID)
	}
	m.live[jobID] = struct{}{}
	m.mu.Unlock()

	path := filepath.Join(m.root, "job-"+jobID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		m.forget(jobID)
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	m.logger.Debug("Workspace acquired",
		slog.String("job_id", jobID),
		slog.String("path", path),
	)

	return &Workspace{manager: m, jobID: jobID, path: path}, nil
}

func (m *WorkspaceManager) forget(jobID string) {
	m.mu.Lock()
	delete(m.live, jobID)
	m.mu.Unlock()
}

// Workspace is an isolated filesystem scope for one render attempt. Never
// shared between jobs.
type Workspace struct {
	manager *WorkspaceManager
	jobID   string
	path    string

	releaseOnce sync.Once
}

// Root returns the workspace directory path.
func (w *Workspace) Root() string {
	return w.path
}

// Write stores data at rel inside the workspace, creating parent directories
// as needed.
func (w *Workspace) Write(rel string, data []byte) error {
	full := filepath.Join(w.path, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create workspace subdirectory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workspace file: %w", err)
	}
	return nil
}

// Release removes the workspace directory. Idempotent and never escalates:
// a cleanup failure is logged, not returned, because artifact correctness
// takes priority over tidiness.
func (w *Workspace) Release() {
	w.releaseOnce.Do(func() {
		if err := os.RemoveAll(w.path); err != nil {
			w.manager.logger.Warn("Failed to remove workspace",
				slog.String("job_id", w.jobID),
				slog.String("path", w.path),
				slog.String("error", err.Error()),
			)
		} else {
			w.manager.logger.Debug("Workspace released",
				slog.String("job_id", w.jobID),
			)
		}
		w.manager.forget(w.jobID)
	})
}
