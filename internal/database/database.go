package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Stats contains aggregate database statistics.
type Stats struct {
	ConversationLogs int
	BlogPosts        int
	DraftPosts       int
	PromptSuggestions int
	CompletedRuns    int
	FailedRuns       int
	KnowledgeDocs    int
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM conversation_logs", &s.ConversationLogs},
		{"SELECT COUNT(*) FROM blog_posts", &s.BlogPosts},
		{"SELECT COUNT(*) FROM blog_posts WHERE status = 'draft'", &s.DraftPosts},
		{"SELECT COUNT(*) FROM prompt_suggestions", &s.PromptSuggestions},
		{"SELECT COUNT(*) FROM processing_history WHERE status = 'completed'", &s.CompletedRuns},
		{"SELECT COUNT(*) FROM processing_history WHERE status = 'failed'", &s.FailedRuns},
		{"SELECT COUNT(*) FROM kb_documents", &s.KnowledgeDocs},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
