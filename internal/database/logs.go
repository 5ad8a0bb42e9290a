package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// InsertConversationLog stores a parsed conversation log. If the log has no
// ID yet, one is assigned.
func (db *DB) InsertConversationLog(cl *ConversationLog) error {
	if cl.ID == "" {
		cl.ID = uuid.NewString()
	}

	metaJSON, err := json.Marshal(cl.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO conversation_logs (id, file_path, file_format, content_hash, raw_content, language, message_count, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cl.ID, cl.FilePath, cl.FileFormat, cl.ContentHash, cl.RawContent, cl.Language, cl.MessageCount, string(metaJSON))
	if err != nil {
		return fmt.Errorf("inserting conversation log: %w", err)
	}
	return nil
}

// GetConversationLogByHash looks up a log by file path and content hash.
// Returns nil if no matching log exists.
func (db *DB) GetConversationLogByHash(filePath, contentHash string) (*ConversationLog, error) {
	row := db.conn.QueryRow(`
		SELECT id, file_path, file_format, content_hash, raw_content, language, message_count, metadata, created_at
		FROM conversation_logs WHERE file_path = ? AND content_hash = ?`,
		filePath, contentHash)
	return scanConversationLog(row)
}

// GetConversationLog fetches a log by ID. Returns nil if not found.
func (db *DB) GetConversationLog(id string) (*ConversationLog, error) {
	row := db.conn.QueryRow(`
		SELECT id, file_path, file_format, content_hash, raw_content, language, message_count, metadata, created_at
		FROM conversation_logs WHERE id = ?`, id)
	return scanConversationLog(row)
}

func scanConversationLog(row *sql.Row) (*ConversationLog, error) {
	var cl ConversationLog
	var metaJSON sql.NullString
	err := row.Scan(&cl.ID, &cl.FilePath, &cl.FileFormat, &cl.ContentHash, &cl.RawContent,
		&cl.Language, &cl.MessageCount, &metaJSON, &cl.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation log: %w", err)
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &cl.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return &cl, nil
}
