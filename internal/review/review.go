// Package review inspects drafted content for logical gaps, factual
// inconsistencies and unclear explanations, optionally fact-checks flagged
// claims, and produces improvement suggestions plus human escalations.
package review

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kchou-lab/chatpress/internal/llm"
	"github.com/kchou-lab/chatpress/internal/search"
)

// LogicalGap is a missing reasoning step.
type LogicalGap struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Severity    string `json:"severity"`
}

// Inconsistency is a pair of claims in the content that contradict each other.
type Inconsistency struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Claim1      string `json:"claim1"`
	Claim2      string `json:"claim2"`
	Severity    string `json:"severity"`
}

// UnclearExplanation is a passage a reader would struggle with.
type UnclearExplanation struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Suggestion  string `json:"suggestion"`
	Severity    string `json:"severity"`
}

// FactCheck is the verification outcome for one claim.
type FactCheck struct {
	Claim          string   `json:"claim"`
	Status         string   `json:"verification_status"` // verified, contradicted, unclear, unverifiable
	Confidence     string   `json:"confidence"`          // high, medium, low
	Evidence       string   `json:"evidence"`
	Contradictions []string `json:"contradictions"`
}

// Findings is the reviewer's complete output.
type Findings struct {
	LogicalGaps            []LogicalGap
	FactualInconsistencies []Inconsistency
	UnclearExplanations    []UnclearExplanation
	FactCheckResults       []FactCheck
	ImprovementSuggestions []string
	FactCheckingNeeds      []string

	// Escalations are human-readable strings for findings that must reach an
	// operator. They are data in the result, never auto-resolved.
	Escalations []string
}

// Searcher fetches web sources for search-augmented fact checking.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
	IsConfigured() bool
}

// Fact-check strategies.
const (
	MethodLLM    = "llm"
	MethodSearch = "search"
)

const (
	maxFactCheckCandidates = 20
	maxFactChecks          = 5
	minClaimLen            = 10
	minSuggestions         = 3
	maxSuggestions         = 10
)

// Reviewer runs content review against an LLM provider.
type Reviewer struct {
	provider llm.Provider
	searcher Searcher
	method   string
}

// New creates a Reviewer. searcher is only consulted when method is
// MethodSearch.
func New(provider llm.Provider, searcher Searcher, method string) *Reviewer {
	if method == "" {
		method = MethodLLM
	}
	return &Reviewer{provider: provider, searcher: searcher, method: method}
}

// Review runs the three detectors, fact-checks material claims and builds
// suggestions and escalations. Each detector is independently tolerant: a
// failed call contributes an empty list. The only fatal path is a
// search-provider failure during search-augmented fact checking.
func (r *Reviewer) Review(ctx context.Context, content string) (*Findings, error) {
	f := &Findings{}

	f.LogicalGaps = r.detectLogicalGaps(ctx, content)
	f.FactualInconsistencies = r.detectInconsistencies(ctx, content)
	f.UnclearExplanations = r.detectUnclear(ctx, content)

	f.FactCheckingNeeds = r.identifyFactCheckNeeds(ctx, content)
	if len(f.FactCheckingNeeds) > 0 {
		results, err := r.factCheck(ctx, f.FactCheckingNeeds)
		if err != nil {
			return nil, err
		}
		f.FactCheckResults = results
	}

	f.Escalations = buildEscalations(f)
	f.ImprovementSuggestions = r.buildSuggestions(ctx, f)
	return f, nil
}

func (r *Reviewer) detectLogicalGaps(ctx context.Context, content string) []LogicalGap {
	var resp struct {
		Gaps []LogicalGap `json:"logical_gaps"`
	}
	prompt := fmt.Sprintf(logicalGapsPrompt, content)
	if err := llm.GenerateJSON(ctx, r.provider, prompt, 1024, &resp); err != nil {
		log.Printf("review: logical gap detection failed: %v", err)
		return nil
	}
	return resp.Gaps
}

func (r *Reviewer) detectInconsistencies(ctx context.Context, content string) []Inconsistency {
	var resp struct {
		Inconsistencies []Inconsistency `json:"factual_inconsistencies"`
	}
	prompt := fmt.Sprintf(inconsistenciesPrompt, content)
	if err := llm.GenerateJSON(ctx, r.provider, prompt, 1024, &resp); err != nil {
		log.Printf("review: inconsistency detection failed: %v", err)
		return nil
	}
	return resp.Inconsistencies
}

func (r *Reviewer) detectUnclear(ctx context.Context, content string) []UnclearExplanation {
	var resp struct {
		Unclear []UnclearExplanation `json:"unclear_explanations"`
	}
	prompt := fmt.Sprintf(unclearPrompt, content)
	if err := llm.GenerateJSON(ctx, r.provider, prompt, 1024, &resp); err != nil {
		log.Printf("review: clarity detection failed: %v", err)
		return nil
	}
	return resp.Unclear
}

// identifyFactCheckNeeds picks the claims worth verifying: material,
// consequential statements rather than trivia. Candidate lines are capped to
// bound the prompt size.
func (r *Reviewer) identifyFactCheckNeeds(ctx context.Context, content string) []string {
	var candidates []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) <= minClaimLen || strings.HasPrefix(line, "#") {
			continue
		}
		candidates = append(candidates, line)
		if len(candidates) == maxFactCheckCandidates {
			break
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	var resp struct {
		Claims []string `json:"claims"`
	}
	prompt := fmt.Sprintf(factCheckNeedsPrompt, strings.Join(candidates, "\n"))
	if err := llm.GenerateJSON(ctx, r.provider, prompt, 1024, &resp); err != nil {
		log.Printf("review: fact-check triage failed: %v", err)
		return nil
	}

	var needs []string
	for _, c := range resp.Claims {
		c = strings.TrimSpace(c)
		if c != "" {
			needs = append(needs, c)
		}
	}
	return needs
}

// factCheck verifies the top claims with the configured strategy.
func (r *Reviewer) factCheck(ctx context.Context, claims []string) ([]FactCheck, error) {
	if len(claims) > maxFactChecks {
		claims = claims[:maxFactChecks]
	}

	var results []FactCheck
	for _, claim := range claims {
		var fc FactCheck
		var err error
		switch r.method {
		case MethodSearch:
			fc, err = r.checkWithSearch(ctx, claim)
			if err != nil {
				// Search-provider failure aborts the run.
				return nil, err
			}
		default:
			fc = r.checkWithLLM(ctx, claim)
		}
		results = append(results, fc)
	}
	return results, nil
}

// checkWithLLM asks the model to self-assess a claim. A failed call yields a
// placeholder result rather than an error.
func (r *Reviewer) checkWithLLM(ctx context.Context, claim string) FactCheck {
	var fc FactCheck
	prompt := fmt.Sprintf(factCheckLLMPrompt, claim)
	if err := llm.GenerateJSON(ctx, r.provider, prompt, 512, &fc); err != nil {
		log.Printf("review: fact check failed for %q: %v", claim, err)
		return FactCheck{Claim: claim, Status: "unclear", Confidence: "low", Evidence: "check failed"}
	}
	fc.Claim = claim
	return fc
}

// checkWithSearch fetches sources for the claim and asks the model to weigh
// the claim against them. The search call itself is load-bearing.
func (r *Reviewer) checkWithSearch(ctx context.Context, claim string) (FactCheck, error) {
	if r.searcher == nil || !r.searcher.IsConfigured() {
		return FactCheck{}, &search.ServiceError{Op: "auth", Err: fmt.Errorf("fact checking requires a configured search provider")}
	}
	results, err := r.searcher.Search(ctx, claim)
	if err != nil {
		return FactCheck{}, fmt.Errorf("fact-check search for %q: %w", claim, err)
	}

	var sources strings.Builder
	for _, res := range results {
		fmt.Fprintf(&sources, "Source: %s (%s)\n%s\n\n", res.Title, res.URL, res.Content)
	}
	if sources.Len() == 0 {
		sources.WriteString("(no sources found)")
	}

	var fc FactCheck
	prompt := fmt.Sprintf(factCheckSearchPrompt, claim, sources.String())
	if err := llm.GenerateJSON(ctx, r.provider, prompt, 512, &fc); err != nil {
		log.Printf("review: source-weighted fact check failed for %q: %v", claim, err)
		return FactCheck{Claim: claim, Status: "unclear", Confidence: "low", Evidence: "check failed"}, nil
	}
	fc.Claim = claim
	return fc, nil
}

// buildEscalations emits human-readable strings for high-severity findings
// and unresolved fact-check needs. Rule-based, no LLM call.
func buildEscalations(f *Findings) []string {
	var out []string
	for _, g := range f.LogicalGaps {
		if strings.EqualFold(g.Severity, "high") {
			out = append(out, fmt.Sprintf("high-severity logical gap at %s: %s", g.Location, g.Description))
		}
	}
	for _, in := range f.FactualInconsistencies {
		if strings.EqualFold(in.Severity, "high") {
			out = append(out, fmt.Sprintf("high-severity inconsistency: %s (%q vs %q)", in.Description, in.Claim1, in.Claim2))
		}
	}
	checked := make(map[string]bool, len(f.FactCheckResults))
	for _, fc := range f.FactCheckResults {
		checked[fc.Claim] = true
		if fc.Status == "contradicted" {
			out = append(out, fmt.Sprintf("claim contradicted by %s-confidence check: %s", fc.Confidence, fc.Claim))
		}
	}
	for _, need := range f.FactCheckingNeeds {
		if !checked[need] {
			out = append(out, fmt.Sprintf("unverified claim needs review: %s", need))
		}
	}
	return out
}

// buildSuggestions asks the model for actionable suggestions from the issue
// counts, then pads with rule-based entries so the result always lands in
// [minSuggestions, maxSuggestions].
func (r *Reviewer) buildSuggestions(ctx context.Context, f *Findings) []string {
	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	prompt := fmt.Sprintf(suggestionsPrompt,
		len(f.LogicalGaps), len(f.FactualInconsistencies), len(f.UnclearExplanations), len(f.FactCheckingNeeds))
	if err := llm.GenerateJSON(ctx, r.provider, prompt, 1024, &resp); err != nil {
		log.Printf("review: suggestion generation failed: %v", err)
	}

	var suggestions []string
	for _, s := range resp.Suggestions {
		s = strings.TrimSpace(s)
		if s != "" {
			suggestions = append(suggestions, s)
		}
		if len(suggestions) == maxSuggestions {
			break
		}
	}

	for _, fallback := range ruleBasedSuggestions(f) {
		if len(suggestions) >= minSuggestions {
			break
		}
		suggestions = append(suggestions, fallback)
	}
	return suggestions
}

func ruleBasedSuggestions(f *Findings) []string {
	var out []string
	if n := len(f.LogicalGaps); n > 0 {
		out = append(out, fmt.Sprintf("fill in the %d missing reasoning steps flagged by review", n))
	}
	if n := len(f.FactualInconsistencies); n > 0 {
		out = append(out, fmt.Sprintf("reconcile the %d contradictory claim pairs", n))
	}
	if n := len(f.UnclearExplanations); n > 0 {
		out = append(out, fmt.Sprintf("rework the %d passages flagged as unclear", n))
	}
	out = append(out,
		"tighten the introduction so the reader knows what problem the post solves",
		"add a short closing section summarizing the takeaways",
		"check code samples and commands for copy-paste correctness",
	)
	return out
}
