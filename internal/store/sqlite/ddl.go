package sqlite

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
        is_group          INTEGER NOT NULL DEFAULT 0,
        last_message_id   TEXT,
        last_message_time TIMESTAMP,
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
        timestamp       TIMESTAMP NOT NULL,
        is_read         INTEGER NOT NULL DEFAULT 0,
        is_archived     INTEGER NOT NULL DEFAULT 0
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
