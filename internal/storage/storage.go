// Package storage provides durable artifact persistence behind a small
// upload/download capability.
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when a key has no stored artifact.
var ErrObjectNotFound = errors.New("object not found")

// ArtifactStore is the durable object store the orchestrator uploads render
// artifacts to. Upload returns a URL the caller can hand out as the artifact
// reference.
type ArtifactStore interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}
