package postgres

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
        user_id    TEXT PRIMARY KEY,
        email      TEXT NOT NULL UNIQUE,
        first_name TEXT NOT NULL DEFAULT '',
        last_name  TEXT NOT NULL DEFAULT '',
        avatar     TEXT NOT NULL DEFAULT ''
    )`,
	`CREATE TABLE IF NOT EXISTS conversations (
        conversation_id   TEXT PRIMARY KEY,
        participant_lo    TEXT NOT NULL,
        participant_hi    TEXT NOT NULL,
        is_group          BOOLEAN NOT NULL DEFAULT FALSE,
        last_message_id   TEXT,
        last_message_time TIMESTAMPTZ,
        UNIQUE (participant_lo, participant_hi)
    )`,
	`CREATE TABLE IF NOT EXISTS messages (
        message_id      TEXT PRIMARY KEY,
        conversation_id TEXT NOT NULL REFERENCES conversations(conversation_id),
        sender_id       TEXT NOT NULL,
        recipient_id    TEXT NOT NULL,
        message_type    TEXT NOT NULL,
        content         TEXT NOT NULL DEFAULT '',
        file_ref        TEXT NOT NULL DEFAULT '',
        timestamp       TIMESTAMPTZ NOT NULL DEFAULT now(),
        is_read         BOOLEAN NOT NULL DEFAULT FALSE,
        is_archived     BOOLEAN NOT NULL DEFAULT FALSE
    )`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender_recipient
        ON messages (sender_id, recipient_id, is_read)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_timestamp
        ON messages (timestamp)`,
}

// EnsureSchema applies the DDL statements. All statements are idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Bootstrap opens a connection, applies the schema, and closes it. Used at
// service startup when the deployment has no external migration step.
func Bootstrap(ctx context.Context, dsn string) error {
	if dsn == "" {
		return nil
	}
	db, err := Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return EnsureSchema(ctx, db)
}
