// Package pipeline wires the stages into the run graph
//
//	messages -> {Extract -> Extend -> Review} ∥ {Prompt Analysis} -> join -> Edit
//
// and owns the run-wide timeout, the branch join and the fatal-error
// boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kchou-lab/chatpress/internal/chat"
	"github.com/kchou-lab/chatpress/internal/edit"
	"github.com/kchou-lab/chatpress/internal/extend"
	"github.com/kchou-lab/chatpress/internal/extract"
	"github.com/kchou-lab/chatpress/internal/llm"
	"github.com/kchou-lab/chatpress/internal/memory"
	"github.com/kchou-lab/chatpress/internal/promptanalysis"
	"github.com/kchou-lab/chatpress/internal/review"
)

// StageError wraps a fatal stage failure with its run context.
type StageError struct {
	ProcessingID string
	Stage        string
	Err          error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed (run %s): %v", e.Stage, e.ProcessingID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result is the terminal output of a successful run.
type Result struct {
	ConversationID string
	ProcessingID   string
	Post           *edit.Post
	Suggestions    []promptanalysis.Suggestion

	// QualityWarning and Escalations carry the run's imperfections; callers
	// should render them distinctly from clean results.
	QualityWarning string
	Escalations    []string
}

// Config holds the runner's tunables.
type Config struct {
	Timeout    time.Duration
	TokenLimit int
	MaxFacts   int
}

// Runner executes the full pipeline for one conversation at a time per
// conversation id; runs for different ids proceed independently.
type Runner struct {
	provider  llm.Provider
	extractor *extract.Extractor
	extender  *extend.Extender
	reviewer  *review.Reviewer
	analyzer  *promptanalysis.Analyzer
	editor    *edit.Editor
	cfg       Config
	join      *joinTable
}

// New creates a Runner from its stage dependencies.
func New(provider llm.Provider, extractor *extract.Extractor, extender *extend.Extender,
	reviewer *review.Reviewer, analyzer *promptanalysis.Analyzer, editor *edit.Editor, cfg Config) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Runner{
		provider:  provider,
		extractor: extractor,
		extender:  extender,
		reviewer:  reviewer,
		analyzer:  analyzer,
		editor:    editor,
		cfg:       cfg,
		join:      newJoinTable(),
	}
}

// reviewBundle is everything the review branch hands across the join.
type reviewBundle struct {
	analysis *extract.Analysis
	content  string
	findings *review.Findings
	facts    string
}

// Run executes the pipeline under one wall-clock timeout. A timeout cancels
// all in-flight work and discards partial results; a half-joined editor
// state is never a valid outcome.
func (r *Runner) Run(ctx context.Context, messages []chat.Message, conversationID string) (*Result, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("empty conversation")
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	processingID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	st := r.join.state(conversationID)
	start := time.Now()
	log.Printf("pipeline run %s starting for conversation %s (%d messages)", processingID, conversationID, len(messages))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bundle, err := r.runReviewBranch(gctx, messages, processingID)
		if err != nil {
			return err
		}
		st.offerReview(bundle)
		return nil
	})
	g.Go(func() error {
		suggestions, err := r.analyzer.Analyze(gctx, messages)
		if err != nil {
			return &StageError{ProcessingID: processingID, Stage: "prompt_analysis", Err: err}
		}
		st.offerPrompts(suggestions)
		return nil
	})

	if err := g.Wait(); err != nil {
		r.join.discard(conversationID)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &StageError{ProcessingID: processingID, Stage: "pipeline",
				Err: fmt.Errorf("run exceeded timeout of %s", r.cfg.Timeout)}
		}
		return nil, err
	}

	joined, err := r.join.wait(ctx, conversationID)
	if err != nil {
		return nil, &StageError{ProcessingID: processingID, Stage: "join", Err: err}
	}

	post := r.editor.Edit(ctx, &edit.Input{
		Messages:    messages,
		Analysis:    joined.review.analysis,
		Content:     joined.review.content,
		Findings:    joined.review.findings,
		Suggestions: joined.prompts,
		Facts:       joined.review.facts,
	})

	log.Printf("pipeline run %s completed in %s (%d suggestions, %d escalations)",
		processingID, time.Since(start).Round(time.Millisecond), len(joined.prompts), len(joined.review.findings.Escalations))

	return &Result{
		ConversationID: conversationID,
		ProcessingID:   processingID,
		Post:           post,
		Suggestions:    joined.prompts,
		QualityWarning: joined.review.analysis.QualityWarning,
		Escalations:    joined.review.findings.Escalations,
	}, nil
}

// runReviewBranch executes Extract -> Extend -> Review with its own memory
// manager built from the immutable message list.
func (r *Runner) runReviewBranch(ctx context.Context, messages []chat.Message, processingID string) (*reviewBundle, error) {
	mem := memory.NewFromMessages(ctx, r.provider, r.cfg.TokenLimit, r.cfg.MaxFacts, messages)

	analysis, err := r.extractor.Extract(ctx, messages, mem)
	if err != nil {
		return nil, &StageError{ProcessingID: processingID, Stage: "extract", Err: err}
	}

	content, err := r.extender.Extend(ctx, analysis.FilteredContent)
	if err != nil {
		return nil, &StageError{ProcessingID: processingID, Stage: "extend", Err: err}
	}
	analysis.FilteredContent = content

	findings, err := r.reviewer.Review(ctx, content)
	if err != nil {
		return nil, &StageError{ProcessingID: processingID, Stage: "review", Err: err}
	}

	return &reviewBundle{
		analysis: analysis,
		content:  content,
		findings: findings,
		facts:    mem.FactsText(),
	}, nil
}
