// Package promptanalysis evaluates each user prompt in a conversation and
// generates improved alternatives. It runs as an independent pipeline branch,
// fanning out over prompts.
package promptanalysis

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kchou-lab/chatpress/internal/chat"
	"github.com/kchou-lab/chatpress/internal/llm"
	"github.com/kchou-lab/chatpress/internal/memory"
)

// Candidate is one alternative phrasing with the strategy that produced it.
// Type is a free-text strategy label chosen by the model.
type Candidate struct {
	Type      string `json:"type"`
	Prompt    string `json:"prompt"`
	Reasoning string `json:"reasoning"`
}

// Suggestion is the full analysis for one qualifying user prompt.
// Candidates always holds at least minCandidates entries.
type Suggestion struct {
	OriginalPrompt string
	Analysis       string
	Candidates     []Candidate
	Reasoning      string
	ExpectedEffect string
}

const (
	// User messages at or under this rune count are not worth analyzing.
	minPromptLen = 10
	// Every suggestion carries at least this many candidates; templates fill
	// any shortfall the model leaves.
	minCandidates = 3
)

// Analyzer runs prompt analysis against an LLM provider.
type Analyzer struct {
	provider   llm.Provider
	tokenLimit int
	maxFacts   int
}

// New creates an Analyzer. tokenLimit and maxFacts bound the per-prompt
// context memory.
func New(provider llm.Provider, tokenLimit, maxFacts int) *Analyzer {
	return &Analyzer{provider: provider, tokenLimit: tokenLimit, maxFacts: maxFacts}
}

// Analyze evaluates every qualifying user prompt concurrently. A failure
// analyzing one prompt drops that prompt from the result; it never aborts
// the siblings. The returned error is only ever a context cancellation.
//
// Each prompt's context is built from the messages preceding it, so an
// analysis can never see information the user had not yet provided.
func (a *Analyzer) Analyze(ctx context.Context, messages []chat.Message) ([]Suggestion, error) {
	var indices []int
	for i, m := range messages {
		if m.Role == chat.RoleUser && len([]rune(strings.TrimSpace(m.Content))) > minPromptLen {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil, nil
	}

	results := make([]*Suggestion, len(indices))
	g, gctx := errgroup.WithContext(ctx)
	for slot, msgIndex := range indices {
		slot, msgIndex := slot, msgIndex
		g.Go(func() error {
			s, err := a.analyzePrompt(gctx, messages[:msgIndex], messages[msgIndex])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("promptanalysis: skipping prompt %d: %v", msgIndex, err)
				return nil
			}
			results[slot] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	for _, s := range results {
		if s != nil {
			suggestions = append(suggestions, *s)
		}
	}
	return suggestions, nil
}

// analyzePrompt runs the four sequential sub-steps for one prompt.
func (a *Analyzer) analyzePrompt(ctx context.Context, preceding []chat.Message, prompt chat.Message) (*Suggestion, error) {
	mem := memory.NewFromMessages(ctx, a.provider, a.tokenLimit, a.maxFacts, preceding)
	contextText := mem.ContextText()
	if contextText == "" {
		contextText = "(conversation start, no prior context)"
	}

	analysis, err := a.evaluate(ctx, contextText, prompt.Content)
	if err != nil {
		return nil, fmt.Errorf("evaluating prompt: %w", err)
	}

	candidates := a.generateCandidates(ctx, contextText, prompt.Content, analysis)

	reasoning, err := a.synthesizeReasoning(ctx, prompt.Content, candidates)
	if err != nil {
		return nil, fmt.Errorf("synthesizing reasoning: %w", err)
	}

	// Expected effect is optional; a failure here degrades to empty.
	effect, err := a.expectedEffect(ctx, prompt.Content, candidates)
	if err != nil {
		log.Printf("promptanalysis: expected-effect summary failed: %v", err)
		effect = ""
	}

	return &Suggestion{
		OriginalPrompt: prompt.Content,
		Analysis:       analysis,
		Candidates:     candidates,
		Reasoning:      reasoning,
		ExpectedEffect: effect,
	}, nil
}

func (a *Analyzer) evaluate(ctx context.Context, contextText, prompt string) (string, error) {
	p := fmt.Sprintf(evaluatePrompt, contextText, prompt)
	response, err := a.provider.Generate(ctx, p, 512)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// generateCandidates guarantees minCandidates structurally: a top-up call
// covers model under-production, and deterministic templates cover the rest.
func (a *Analyzer) generateCandidates(ctx context.Context, contextText, prompt, analysis string) []Candidate {
	candidates := a.requestCandidates(ctx, contextText, prompt, analysis, minCandidates)

	if shortfall := minCandidates - len(candidates); shortfall > 0 {
		more := a.requestCandidates(ctx, contextText, prompt, analysis, shortfall)
		candidates = append(candidates, more...)
	}

	for _, tmpl := range templateCandidates(prompt) {
		if len(candidates) >= minCandidates {
			break
		}
		candidates = append(candidates, tmpl)
	}
	return candidates
}

func (a *Analyzer) requestCandidates(ctx context.Context, contextText, prompt, analysis string, n int) []Candidate {
	var resp struct {
		Candidates []Candidate `json:"candidates"`
	}
	p := fmt.Sprintf(candidatesPrompt, contextText, prompt, analysis, n)
	if err := llm.GenerateJSON(ctx, a.provider, p, 1024, &resp); err != nil {
		log.Printf("promptanalysis: candidate generation failed: %v", err)
		return nil
	}

	var out []Candidate
	for _, c := range resp.Candidates {
		if strings.TrimSpace(c.Prompt) == "" {
			continue
		}
		if c.Type == "" {
			c.Type = "rephrased"
		}
		out = append(out, c)
	}
	return out
}

// templateCandidates are the deterministic fallbacks used when the model
// cannot produce enough alternatives.
func templateCandidates(prompt string) []Candidate {
	return []Candidate{
		{
			Type:      "structured",
			Prompt:    fmt.Sprintf("%s\n\nPlease structure your answer: start with the core idea, then details, then common pitfalls.", prompt),
			Reasoning: "an explicit answer structure keeps the response organized and complete",
		},
		{
			Type:      "step_decomposition",
			Prompt:    fmt.Sprintf("Break this down into steps and address each one: %s", prompt),
			Reasoning: "decomposition prevents the model from skipping intermediate reasoning",
		},
		{
			Type:      "expert_persona",
			Prompt:    fmt.Sprintf("As a senior engineer in this domain, answer: %s", prompt),
			Reasoning: "an expert persona raises the technical depth of the answer",
		},
	}
}

func (a *Analyzer) synthesizeReasoning(ctx context.Context, prompt string, candidates []Candidate) (string, error) {
	top := candidates
	if len(top) > minCandidates {
		top = top[:minCandidates]
	}
	var list strings.Builder
	for i, c := range top {
		fmt.Fprintf(&list, "%d. [%s] %s\n", i+1, c.Type, c.Prompt)
	}

	p := fmt.Sprintf(reasoningPrompt, prompt, list.String())
	response, err := a.provider.Generate(ctx, p, 512)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

func (a *Analyzer) expectedEffect(ctx context.Context, prompt string, candidates []Candidate) (string, error) {
	best := ""
	if len(candidates) > 0 {
		best = candidates[0].Prompt
	}
	p := fmt.Sprintf(effectPrompt, prompt, best)
	response, err := a.provider.Generate(ctx, p, 128)
	if err != nil {
		return "", err
	}
	effect := strings.TrimSpace(response)
	if len([]rune(effect)) > 200 {
		effect = string([]rune(effect)[:200])
	}
	return effect, nil
}
