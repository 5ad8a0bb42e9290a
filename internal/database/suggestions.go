package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// InsertPromptSuggestion stores one prompt analysis result.
func (db *DB) InsertPromptSuggestion(ps *PromptSuggestion) error {
	if ps.ID == "" {
		ps.ID = uuid.NewString()
	}

	candJSON, err := json.Marshal(ps.Candidates)
	if err != nil {
		return fmt.Errorf("marshaling candidates: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO prompt_suggestions (id, conversation_log_id, original_prompt, analysis, candidates, reasoning, expected_effect)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ps.ID, ps.ConversationLogID, ps.OriginalPrompt, ps.Analysis, string(candJSON), ps.Reasoning, ps.ExpectedEffect)
	if err != nil {
		return fmt.Errorf("inserting prompt suggestion: %w", err)
	}
	return nil
}

// GetPromptSuggestions returns suggestions for a conversation log in insertion order.
func (db *DB) GetPromptSuggestions(conversationLogID string) ([]*PromptSuggestion, error) {
	rows, err := db.conn.Query(`
		SELECT id, conversation_log_id, original_prompt, analysis, candidates, reasoning, expected_effect, created_at
		FROM prompt_suggestions WHERE conversation_log_id = ?
		ORDER BY created_at ASC, id ASC`,
		conversationLogID)
	if err != nil {
		return nil, fmt.Errorf("querying prompt suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []*PromptSuggestion
	for rows.Next() {
		var ps PromptSuggestion
		var candJSON string
		var effect sql.NullString
		if err := rows.Scan(&ps.ID, &ps.ConversationLogID, &ps.OriginalPrompt, &ps.Analysis,
			&candJSON, &ps.Reasoning, &effect, &ps.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning prompt suggestion: %w", err)
		}
		if candJSON != "" {
			if err := json.Unmarshal([]byte(candJSON), &ps.Candidates); err != nil {
				return nil, fmt.Errorf("unmarshaling candidates: %w", err)
			}
		}
		if effect.Valid {
			ps.ExpectedEffect = effect.String
		}
		suggestions = append(suggestions, &ps)
	}
	return suggestions, rows.Err()
}
