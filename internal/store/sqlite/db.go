package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL for the messaging schema. Timestamps are
// written from Go in UTC rather than sqlite defaults so they round-trip
// through the driver as time.Time.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			display_name VARCHAR(100) NOT NULL,
			role         VARCHAR(20)  NOT NULL,
			created_at   DATETIME     NOT NULL
		);`,
		// One conversation per practitioner/client pair, enforced here
		// rather than by application-level find-then-create.
		`CREATE TABLE IF NOT EXISTS conversations (
			id              TEXT PRIMARY KEY,
			practitioner_id TEXT     NOT NULL REFERENCES users(id),
			client_id       TEXT     NOT NULL REFERENCES users(id),
			created_at      DATETIME NOT NULL,
			updated_at      DATETIME NOT NULL,
			UNIQUE (practitioner_id, client_id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT     NOT NULL REFERENCES conversations(id),
			author_id       TEXT     NOT NULL REFERENCES users(id),
			content         TEXT     NOT NULL,
			created_at      DATETIME NOT NULL,
			read_at         DATETIME DEFAULT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS reactions (
			id         TEXT PRIMARY KEY,
			message_id TEXT     NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			user_id    TEXT     NOT NULL,
			emoji      TEXT     NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (message_id, user_id, emoji)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_practitioner ON conversations(practitioner_id);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_client ON conversations(client_id);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(conversation_id, read_at);`,
		`CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
