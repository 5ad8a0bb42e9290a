// Package blog is the service layer: it parses conversation files, skips
// unchanged inputs, runs the pipeline and persists every artifact.
package blog

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/kchou-lab/chatpress/internal/chat"
	"github.com/kchou-lab/chatpress/internal/database"
	"github.com/kchou-lab/chatpress/internal/parse"
	"github.com/kchou-lab/chatpress/internal/pipeline"
)

// Outcome describes what processing a file produced.
type Outcome struct {
	Skipped        bool
	ConversationID string
	Post           *database.BlogPost
	Suggestions    []*database.PromptSuggestion
	QualityWarning string
	Escalations    []string
}

// Service orchestrates parse -> dedup -> pipeline -> persist.
type Service struct {
	db     *database.DB
	runner *pipeline.Runner
}

// NewService creates a blog service.
func NewService(db *database.DB, runner *pipeline.Runner) *Service {
	return &Service{db: db, runner: runner}
}

// ProcessFile converts one conversation log file into a stored blog post.
// A file whose content hash was already processed is skipped unless force is
// set. Every run leaves a processing_history record.
func (s *Service) ProcessFile(ctx context.Context, path string, force bool) (*Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	raw := string(data)
	hash := parse.ContentHash(raw)

	existing, err := s.db.GetConversationLogByHash(path, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil && !force {
		log.Printf("skipping %s: content unchanged (hash %.12s)", path, hash)
		return &Outcome{Skipped: true, ConversationID: existing.ID}, nil
	}

	parsed, err := parse.Content(raw, parse.DetectFormat(path))
	if err != nil {
		return nil, err
	}

	cl := existing
	if cl == nil {
		cl = &database.ConversationLog{
			FilePath:     path,
			FileFormat:   parsed.Format,
			ContentHash:  hash,
			RawContent:   raw,
			Language:     &parsed.Language,
			MessageCount: len(parsed.Messages),
			Metadata:     parsed.Metadata,
		}
		if err := s.db.InsertConversationLog(cl); err != nil {
			return nil, err
		}
	}

	return s.process(ctx, cl, parsed.Messages)
}

// process runs the pipeline for an already-stored conversation log and
// persists the results.
func (s *Service) process(ctx context.Context, cl *database.ConversationLog, messages []chat.Message) (*Outcome, error) {
	runID, err := s.db.StartProcessing(cl.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, messages, cl.ID)
	if err != nil {
		msg := err.Error()
		if ferr := s.db.FinishProcessing(runID, "failed", nil, &msg); ferr != nil {
			log.Printf("recording failure for run %s: %v", runID, ferr)
		}
		return nil, err
	}

	post := &database.BlogPost{
		ConversationLogID: cl.ID,
		Title:             result.Post.Title,
		Summary:           result.Post.Summary,
		Tags:              result.Post.Tags,
		Content:           result.Post.Content,
		Metadata:          result.Post.Metadata,
	}
	if err := s.db.InsertBlogPost(post); err != nil {
		msg := err.Error()
		s.db.FinishProcessing(runID, "failed", nil, &msg)
		return nil, fmt.Errorf("saving blog post: %w", err)
	}

	var stored []*database.PromptSuggestion
	for _, sug := range result.Suggestions {
		row := &database.PromptSuggestion{
			ConversationLogID: cl.ID,
			OriginalPrompt:    sug.OriginalPrompt,
			Analysis:          sug.Analysis,
			Reasoning:         sug.Reasoning,
			ExpectedEffect:    sug.ExpectedEffect,
		}
		for _, c := range sug.Candidates {
			row.Candidates = append(row.Candidates, database.PromptCandidate{
				Type: c.Type, Prompt: c.Prompt, Reasoning: c.Reasoning,
			})
		}
		if err := s.db.InsertPromptSuggestion(row); err != nil {
			log.Printf("saving prompt suggestion: %v", err)
			continue
		}
		stored = append(stored, row)
	}

	if err := s.db.FinishProcessing(runID, "completed", &post.ID, nil); err != nil {
		log.Printf("recording completion for run %s: %v", runID, err)
	}

	return &Outcome{
		ConversationID: cl.ID,
		Post:           post,
		Suggestions:    stored,
		QualityWarning: result.QualityWarning,
		Escalations:    result.Escalations,
	}, nil
}
