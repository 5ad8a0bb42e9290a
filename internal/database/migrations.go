package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS conversation_logs (
    id TEXT PRIMARY KEY,
    file_path TEXT NOT NULL,
    file_format TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    raw_content TEXT NOT NULL,
    language TEXT,
    message_count INTEGER DEFAULT 0,
    metadata TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS blog_posts (
    id TEXT PRIMARY KEY,
    conversation_log_id TEXT NOT NULL REFERENCES conversation_logs(id),
    title TEXT NOT NULL,
    summary TEXT NOT NULL,
    tags TEXT,
    content TEXT NOT NULL,
    metadata TEXT,
    status TEXT NOT NULL DEFAULT 'draft' CHECK(status IN ('draft', 'published', 'archived')),
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS processing_history (
    id TEXT PRIMARY KEY,
    conversation_log_id TEXT NOT NULL REFERENCES conversation_logs(id),
    blog_post_id TEXT REFERENCES blog_posts(id),
    status TEXT NOT NULL CHECK(status IN ('processing', 'completed', 'failed', 'skipped')),
    error_message TEXT,
    started_at TEXT DEFAULT (datetime('now')),
    finished_at TEXT
);

CREATE TABLE IF NOT EXISTS prompt_suggestions (
    id TEXT PRIMARY KEY,
    conversation_log_id TEXT NOT NULL REFERENCES conversation_logs(id),
    original_prompt TEXT NOT NULL,
    analysis TEXT NOT NULL,
    candidates TEXT NOT NULL,
    reasoning TEXT NOT NULL,
    expected_effect TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS kb_documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_logs_path_hash ON conversation_logs(file_path, content_hash);
CREATE INDEX IF NOT EXISTS idx_posts_log ON blog_posts(conversation_log_id);
CREATE INDEX IF NOT EXISTS idx_history_log ON processing_history(conversation_log_id);
CREATE INDEX IF NOT EXISTS idx_suggestions_log ON prompt_suggestions(conversation_log_id);
CREATE INDEX IF NOT EXISTS idx_kb_source ON kb_documents(source);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
