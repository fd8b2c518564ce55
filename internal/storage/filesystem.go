package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore keeps artifacts as plain files under a root directory.
// Intended for single-box deployments and tests.
type FilesystemStore struct {
	root    string
	baseURL string
	logger  *slog.Logger
}

// NewFilesystemStore creates a store rooted at root, creating it if needed.
func NewFilesystemStore(root, baseURL string, logger *slog.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root: %w", err)
	}
	return &FilesystemStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Upload writes data under key, creating parent directories as needed.
func (s *FilesystemStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.Info("Artifact stored",
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)

	return s.baseURL + "/" + key, nil
}

// Download reads the artifact stored under key.
func (s *FilesystemStore) Download(ctx context.Context, key string) ([]byte, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}
