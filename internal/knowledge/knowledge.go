// Package knowledge implements a small embedding-backed knowledge base used
// to ground gap research and fact checking before falling back to web search.
package knowledge

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/kchou-lab/chatpress/internal/database"
	"github.com/kchou-lab/chatpress/internal/llm"
)

// Base is an embedding-similarity knowledge base over SQLite.
type Base struct {
	db       *database.DB
	embedder llm.Embedder

	TopK          int
	MinSimilarity float64
}

// Hit is one retrieved document with its similarity score.
type Hit struct {
	Document   *database.KBDocument
	Similarity float64
}

// New creates a knowledge base with the given retrieval parameters.
func New(db *database.DB, embedder llm.Embedder, topK int, minSimilarity float64) *Base {
	if topK <= 0 {
		topK = 5
	}
	return &Base{db: db, embedder: embedder, TopK: topK, MinSimilarity: minSimilarity}
}

// Search embeds the query and returns documents above the similarity
// threshold, best first, at most TopK. An empty result is not an error.
func (b *Base) Search(ctx context.Context, query string) ([]Hit, error) {
	docs, err := b.db.ListKBDocuments()
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	queryVec, err := llm.EmbedOne(ctx, b.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var hits []Hit
	for _, doc := range docs {
		sim := cosineSimilarity(queryVec, doc.Embedding)
		if sim >= b.MinSimilarity {
			hits = append(hits, Hit{Document: doc, Similarity: sim})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > b.TopK {
		hits = hits[:b.TopK]
	}
	return hits, nil
}

// IngestText chunks and embeds a document into the knowledge base.
// Returns the number of chunks stored.
func (b *Base) IngestText(ctx context.Context, source, title, content string) (int, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, fmt.Errorf("empty content for %s", source)
	}

	exists, err := b.db.HasKBSource(source)
	if err != nil {
		return 0, err
	}
	if exists {
		log.Printf("knowledge: source already ingested, skipping: %s", source)
		return 0, nil
	}

	chunks := chunkText(content, maxChunkChars)
	embeddings, err := b.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	for i, chunk := range chunks {
		doc := &database.KBDocument{
			Source:    source,
			Title:     title,
			Content:   chunk,
			Embedding: embeddings[i],
		}
		if err := b.db.InsertKBDocument(doc); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}

// maxChunkChars keeps each chunk comfortably inside embedding model limits.
const maxChunkChars = 1500

// chunkText splits content on blank lines, packing paragraphs into chunks of
// at most maxChars. A single oversized paragraph is split hard.
func chunkText(content string, maxChars int) []string {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		for len(p) > maxChars {
			chunks = append(chunks, flushChunk(&current), p[:maxChars])
			p = p[maxChars:]
		}
		if current.Len()+len(p) > maxChars && current.Len() > 0 {
			chunks = append(chunks, flushChunk(&current))
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	// Drop empties introduced by hard splits.
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

func flushChunk(b *strings.Builder) string {
	s := b.String()
	b.Reset()
	return s
}

// cosineSimilarity returns the cosine of the angle between two vectors, or 0
// for mismatched or zero vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
