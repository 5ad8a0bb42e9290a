package database

import (
	"encoding/json"
	"fmt"
)

// InsertKBDocument stores a knowledge base document with its embedding.
func (db *DB) InsertKBDocument(doc *KBDocument) error {
	embJSON, err := json.Marshal(doc.Embedding)
	if err != nil {
		return fmt.Errorf("marshaling embedding: %w", err)
	}

	res, err := db.conn.Exec(`
		INSERT INTO kb_documents (source, title, content, embedding)
		VALUES (?, ?, ?, ?)`,
		doc.Source, doc.Title, doc.Content, string(embJSON))
	if err != nil {
		return fmt.Errorf("inserting kb document: %w", err)
	}
	doc.ID, _ = res.LastInsertId()
	return nil
}

// ListKBDocuments returns all knowledge base documents with embeddings.
// The knowledge base is expected to stay small enough for a full scan.
func (db *DB) ListKBDocuments() ([]*KBDocument, error) {
	rows, err := db.conn.Query(`
		SELECT id, source, title, content, embedding, created_at
		FROM kb_documents ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying kb documents: %w", err)
	}
	defer rows.Close()

	var docs []*KBDocument
	for rows.Next() {
		var d KBDocument
		var embJSON string
		if err := rows.Scan(&d.ID, &d.Source, &d.Title, &d.Content, &embJSON, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning kb document: %w", err)
		}
		if err := json.Unmarshal([]byte(embJSON), &d.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshaling embedding: %w", err)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// HasKBSource reports whether a document from the given source already exists.
func (db *DB) HasKBSource(source string) (bool, error) {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM kb_documents WHERE source = ?", source).Scan(&count); err != nil {
		return false, fmt.Errorf("checking kb source: %w", err)
	}
	return count > 0, nil
}
