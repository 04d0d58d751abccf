package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rootline/clusterwatch/internal/types"
)

// PostgresSink writes change events into the shared event store. The
// unique index on (connection_id, event_id) plus ON CONFLICT DO
// NOTHING gives the idempotent-insert contract the watch engine
// relies on under redelivery.
type PostgresSink struct {
	db           *sql.DB
	connectionID string
}

func NewPostgresSink(db *sql.DB, connectionID string) (*PostgresSink, error) {
	s := &PostgresSink{db: db, connectionID: connectionID}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize event schema: %w", err)
	}
	return s, nil
}

func (s *PostgresSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS change_events (
		id BIGSERIAL PRIMARY KEY,
		connection_id TEXT NOT NULL,
		source TEXT NOT NULL,
		event_id TEXT NOT NULL,
		transition TEXT NOT NULL,
		title TEXT NOT NULL,
		description JSONB,
		author TEXT,
		timestamp TIMESTAMP NOT NULL,
		locator TEXT,
		status TEXT,
		event_metadata JSONB,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (connection_id, event_id)
	);
	CREATE INDEX IF NOT EXISTS idx_change_events_timestamp ON change_events(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_change_events_connection ON change_events(connection_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresSink) Write(ctx context.Context, event types.ChangeEvent) error {
	description, err := json.Marshal(event.Description)
	if err != nil {
		return fmt.Errorf("failed to marshal description: %w", err)
	}
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO change_events (
			connection_id, source, event_id, transition, title,
			description, author, timestamp, locator, status, event_metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (connection_id, event_id) DO NOTHING
	`, s.connectionID, event.Source, event.EventID, string(event.Transition),
		event.Title, description, event.Author, event.Timestamp,
		event.Locator, event.Status, metadata)
	if err != nil {
		return fmt.Errorf("failed to insert change event: %w", err)
	}
	return nil
}
