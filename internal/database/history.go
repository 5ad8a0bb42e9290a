package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// StartProcessing records the beginning of a pipeline run and returns the record ID.
func (db *DB) StartProcessing(conversationLogID string) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(`
		INSERT INTO processing_history (id, conversation_log_id, status)
		VALUES (?, ?, 'processing')`,
		id, conversationLogID)
	if err != nil {
		return "", fmt.Errorf("inserting processing record: %w", err)
	}
	return id, nil
}

// FinishProcessing marks a run as completed, failed or skipped.
// blogPostID and errorMessage may be nil.
func (db *DB) FinishProcessing(id, status string, blogPostID, errorMessage *string) error {
	_, err := db.conn.Exec(`
		UPDATE processing_history
		SET status = ?, blog_post_id = ?, error_message = ?, finished_at = datetime('now')
		WHERE id = ?`,
		status, blogPostID, errorMessage, id)
	if err != nil {
		return fmt.Errorf("updating processing record: %w", err)
	}
	return nil
}

// GetProcessingHistory returns runs for a conversation log, newest-first.
func (db *DB) GetProcessingHistory(conversationLogID string) ([]*ProcessingRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, conversation_log_id, blog_post_id, status, error_message, started_at, finished_at
		FROM processing_history WHERE conversation_log_id = ?
		ORDER BY started_at DESC, id DESC`,
		conversationLogID)
	if err != nil {
		return nil, fmt.Errorf("querying processing history: %w", err)
	}
	defer rows.Close()

	var records []*ProcessingRecord
	for rows.Next() {
		var r ProcessingRecord
		var blogPostID, errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.ConversationLogID, &blogPostID, &r.Status, &errMsg, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning processing record: %w", err)
		}
		if blogPostID.Valid {
			r.BlogPostID = &blogPostID.String
		}
		if errMsg.Valid {
			r.ErrorMessage = &errMsg.String
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
