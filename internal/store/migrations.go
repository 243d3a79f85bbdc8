package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create conversations and transcript messages",
		SQL: `
			CREATE TABLE conversations (
				id             TEXT PRIMARY KEY,
				appointment_id TEXT NOT NULL DEFAULT '',
				clinic_id      TEXT NOT NULL DEFAULT '',
				closed         INTEGER NOT NULL DEFAULT 0,
				participants   TEXT,
				last_message   TEXT,
				created_at     TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_conversations_updated ON conversations (updated_at);

			CREATE TABLE transcript_messages (
				id              TEXT NOT NULL,
				conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				sender_id       TEXT NOT NULL,
				content         TEXT NOT NULL,
				image_url       TEXT NOT NULL DEFAULT '',
				read            INTEGER NOT NULL DEFAULT 0,
				client_tag      TEXT NOT NULL DEFAULT '',
				created_at      TEXT NOT NULL,
				PRIMARY KEY (conversation_id, id)
			);

			CREATE INDEX idx_transcript_conversation ON transcript_messages (conversation_id, created_at);
		`,
	},
}
