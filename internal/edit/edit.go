// Package edit assembles the final blog post from the review branch and the
// prompt-analysis branch once both have completed.
package edit

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kchou-lab/chatpress/internal/chat"
	"github.com/kchou-lab/chatpress/internal/extract"
	"github.com/kchou-lab/chatpress/internal/llm"
	"github.com/kchou-lab/chatpress/internal/promptanalysis"
	"github.com/kchou-lab/chatpress/internal/review"
)

// Input carries everything the editor needs: both branches' outputs plus the
// grounding facts from conversation memory.
type Input struct {
	Messages    []chat.Message
	Analysis    *extract.Analysis
	Content     string // extended content from the review branch
	Findings    *review.Findings
	Suggestions []promptanalysis.Suggestion
	Facts       string // bullet list from the memory manager
}

// Post is the terminal artifact of a pipeline run.
type Post struct {
	Title    string
	Summary  string
	Tags     []string
	Content  string
	Metadata map[string]any
}

const maxTags = 5

// Editor produces the final post.
type Editor struct {
	provider llm.Provider
}

// New creates an Editor.
func New(provider llm.Provider) *Editor {
	return &Editor{provider: provider}
}

// Edit writes the post body, title and summary, and assembles metadata.
// Title and summary are anchored on the original user prompts to prevent
// topic drift, and grounded on extracted facts to reduce fabrication.
// Generation failures degrade; Edit never fails outright.
func (e *Editor) Edit(ctx context.Context, in *Input) *Post {
	originalPrompts := strings.Join(chat.UserPrompts(in.Messages, 0), "\n")

	body := e.writeBody(ctx, in)
	title, summary := e.titleAndSummary(ctx, originalPrompts, body, in.Facts)

	return &Post{
		Title:    title,
		Summary:  summary,
		Tags:     tagsFromConcepts(in.Analysis.CoreConcepts),
		Content:  body,
		Metadata: buildMetadata(in),
	}
}

// writeBody drafts the article body. On failure the extended content is used
// as-is; it is already publishable prose.
func (e *Editor) writeBody(ctx context.Context, in *Input) string {
	facts := in.Facts
	if facts == "" {
		facts = "(none recorded)"
	}
	steering := strings.Join(in.Findings.ImprovementSuggestions, "\n- ")
	if steering != "" {
		steering = "- " + steering
	}

	prompt := fmt.Sprintf(bodyPrompt, in.Content, facts, steering)
	body, err := e.provider.Generate(ctx, prompt, 4096)
	if err != nil {
		log.Printf("edit: body generation failed, using extended content: %v", err)
		return in.Content
	}
	body = strings.TrimSpace(llm.StripCodeFences(body))
	if body == "" {
		return in.Content
	}
	return body
}

// titleAndSummary degrades through three tiers: structured JSON output,
// JSON-object-in-text extraction, then plain-text cleanup. Some value is
// always produced.
func (e *Editor) titleAndSummary(ctx context.Context, originalPrompts, body, facts string) (string, string) {
	prompt := fmt.Sprintf(titleSummaryPrompt, originalPrompts, facts, truncate(body, 3000))

	// Tier 1: structured output.
	var resp struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := llm.GenerateJSON(ctx, e.provider, prompt, 512, &resp); err == nil &&
		strings.TrimSpace(resp.Title) != "" && strings.TrimSpace(resp.Summary) != "" {
		return strings.TrimSpace(resp.Title), strings.TrimSpace(resp.Summary)
	}

	// Tier 2: free-text completion, JSON object fished out of the text.
	text, err := e.provider.Generate(ctx, prompt, 512)
	if err == nil {
		if parsed := llm.ParseJSONResponse(text); parsed != nil {
			title := strings.TrimSpace(llm.GetString(parsed, "title", ""))
			summary := strings.TrimSpace(llm.GetString(parsed, "summary", ""))
			if title != "" && summary != "" {
				return title, summary
			}
		}
		// Tier 3: best-effort cleanup of whatever came back.
		if title := cleanupLine(text); title != "" {
			return title, fallbackSummary(originalPrompts)
		}
	} else {
		log.Printf("edit: title generation failed entirely: %v", err)
	}

	return fallbackTitle(originalPrompts), fallbackSummary(originalPrompts)
}

// cleanupLine strips fences and quotes and returns the first plausible
// title-like line of a free-text response.
func cleanupLine(text string) string {
	text = llm.StripCodeFences(text)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, `"'`+"`")
		line = strings.TrimPrefix(line, "# ")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "{") || strings.HasPrefix(line, "[") {
			continue
		}
		if n := len([]rune(line)); n >= 10 && n <= 120 {
			return line
		}
	}
	return ""
}

func fallbackTitle(originalPrompts string) string {
	line := cleanupLine(originalPrompts)
	if line == "" {
		return "Notes from a technical conversation"
	}
	return "Notes on: " + truncate(line, 80)
}

func fallbackSummary(originalPrompts string) string {
	line := cleanupLine(originalPrompts)
	if line == "" {
		return "A technical discussion, written up as a blog post."
	}
	return "A write-up of a conversation exploring: " + truncate(line, 140)
}

func tagsFromConcepts(concepts []string) []string {
	var tags []string
	for _, c := range concepts {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		tags = append(tags, c)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

func buildMetadata(in *Input) map[string]any {
	meta := map[string]any{
		"generated_at":             time.Now().UTC().Format(time.RFC3339),
		"participants":             chat.Participants(in.Messages),
		"message_count":            len(in.Messages),
		"user_intent":              in.Analysis.UserIntent,
		"substantive_score":        in.Analysis.SubstantiveScore,
		"logical_gaps":             len(in.Findings.LogicalGaps),
		"factual_inconsistencies":  len(in.Findings.FactualInconsistencies),
		"unclear_explanations":     len(in.Findings.UnclearExplanations),
		"fact_checks":              len(in.Findings.FactCheckResults),
		"review_escalations":       in.Findings.Escalations,
		"prompt_suggestion_count":  len(in.Suggestions),
	}
	if in.Analysis.QualityWarning != "" {
		meta["quality_warning"] = in.Analysis.QualityWarning
	}
	if first, last := chat.TimeBounds(in.Messages); first != nil && last != nil {
		meta["conversation_start"] = first.UTC().Format(time.RFC3339)
		meta["conversation_end"] = last.UTC().Format(time.RFC3339)
	}
	return meta
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
