package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// InsertBlogPost stores a generated blog post.
func (db *DB) InsertBlogPost(bp *BlogPost) error {
	if bp.ID == "" {
		bp.ID = uuid.NewString()
	}
	if bp.Status == "" {
		bp.Status = "draft"
	}

	tagsJSON, err := json.Marshal(bp.Tags)
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}
	metaJSON, err := json.Marshal(bp.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO blog_posts (id, conversation_log_id, title, summary, tags, content, metadata, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bp.ID, bp.ConversationLogID, bp.Title, bp.Summary, string(tagsJSON), bp.Content, string(metaJSON), bp.Status)
	if err != nil {
		return fmt.Errorf("inserting blog post: %w", err)
	}
	return nil
}

// GetBlogPost fetches a post by ID. Returns nil if not found.
func (db *DB) GetBlogPost(id string) (*BlogPost, error) {
	row := db.conn.QueryRow(`
		SELECT id, conversation_log_id, title, summary, tags, content, metadata, status, created_at, updated_at
		FROM blog_posts WHERE id = ?`, id)
	bp, err := scanBlogPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return bp, err
}

// ListBlogPosts returns posts newest-first, up to limit (0 means all).
func (db *DB) ListBlogPosts(limit int) ([]*BlogPost, error) {
	query := `
		SELECT id, conversation_log_id, title, summary, tags, content, metadata, status, created_at, updated_at
		FROM blog_posts ORDER BY created_at DESC, id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.conn.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.conn.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("listing blog posts: %w", err)
	}
	defer rows.Close()

	var posts []*BlogPost
	for rows.Next() {
		bp, err := scanBlogPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, bp)
	}
	return posts, rows.Err()
}

// UpdateBlogPostStatus sets the status of a post.
func (db *DB) UpdateBlogPostStatus(id, status string) error {
	_, err := db.conn.Exec(`
		UPDATE blog_posts SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, id)
	if err != nil {
		return fmt.Errorf("updating blog post status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlogPost(row rowScanner) (*BlogPost, error) {
	var bp BlogPost
	var tagsJSON, metaJSON sql.NullString
	err := row.Scan(&bp.ID, &bp.ConversationLogID, &bp.Title, &bp.Summary, &tagsJSON,
		&bp.Content, &metaJSON, &bp.Status, &bp.CreatedAt, &bp.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning blog post: %w", err)
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &bp.Tags); err != nil {
			return nil, fmt.Errorf("unmarshaling tags: %w", err)
		}
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &bp.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return &bp, nil
}
