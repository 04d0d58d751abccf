package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore keeps checkpoints in the same database that holds the
// connection registry, one row per (connection, kind). Rows are
// independent, so a crash can never mix a new token for one kind with
// a stale token for another.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize checkpoint schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS watch_checkpoints (
		connection_id TEXT NOT NULL,
		resource_kind TEXT NOT NULL,
		token TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (connection_id, resource_kind)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, connectionID, kind string) (string, bool, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `
		SELECT token FROM watch_checkpoints
		WHERE connection_id = $1 AND resource_kind = $2
	`, connectionID, kind).Scan(&token)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return token, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, connectionID, kind, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watch_checkpoints (connection_id, resource_kind, token, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (connection_id, resource_kind) DO UPDATE SET
			token = EXCLUDED.token,
			updated_at = NOW()
	`, connectionID, kind, token)
	if err != nil {
		return fmt.Errorf("failed to persist checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, connectionID, kind string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM watch_checkpoints
		WHERE connection_id = $1 AND resource_kind = $2
	`, connectionID, kind)
	if err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}
