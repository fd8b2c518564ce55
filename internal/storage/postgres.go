package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/renderlab/render-service/shared/postgresql"
)

// PostgresStore keeps artifacts in a Postgres table, keyed by artifact key.
// Suits deployments that already run Postgres and want artifacts covered by
// the same backup story.
type PostgresStore struct {
	db      *sqlx.DB
	baseURL string
	logger  *slog.Logger
}

// NewPostgresStore creates a store on top of an existing Postgres client.
// baseURL is prepended to keys to form the public artifact URL.
func NewPostgresStore(pg *postgresql.Client, baseURL string, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:      pg.GetDB(),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Upload stores data under key, replacing any previous object.
func (s *PostgresStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	query := `
		INSERT INTO artifacts (artifact_key, data, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (artifact_key) DO UPDATE
		SET data = EXCLUDED.data, created_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, key, data); err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	s.logger.Info("Artifact uploaded",
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)

	return s.baseURL + "/" + key, nil
}

// Download retrieves the object stored under key.
func (s *PostgresStore) Download(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT data FROM artifacts WHERE artifact_key = $1`

	var data []byte
	err := s.db.GetContext(ctx, &data, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to download artifact: %w", err)
	}

	return data, nil
}
