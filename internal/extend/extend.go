// Package extend finds knowledge gaps in extracted content, researches them
// against the knowledge base and the web, and weaves surviving findings back
// into the content.
package extend

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kchou-lab/chatpress/internal/knowledge"
	"github.com/kchou-lab/chatpress/internal/llm"
	"github.com/kchou-lab/chatpress/internal/search"
)

// Gap is a detected knowledge deficiency with a ready-to-run search query.
type Gap struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Query       string `json:"query"`
	Priority    string `json:"priority"`
}

// Finding is one research result attributed to the gap it fills.
type Finding struct {
	Gap     Gap
	Title   string
	URL     string
	Content string
}

// Searcher is the web search capability the extender falls back to when the
// knowledge base has nothing.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
	IsConfigured() bool
}

// KnowledgeSearcher queries the local knowledge base.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string) ([]knowledge.Hit, error)
}

// Extender enriches content. Research failures from the web-search provider
// are fatal; everything else degrades to the original content.
type Extender struct {
	provider llm.Provider
	kb       KnowledgeSearcher
	searcher Searcher
}

// New creates an Extender. kb and searcher may be nil, in which case the
// corresponding research source is skipped.
func New(provider llm.Provider, kb KnowledgeSearcher, searcher Searcher) *Extender {
	return &Extender{provider: provider, kb: kb, searcher: searcher}
}

const (
	// Research results shorter than this carry no usable information.
	minResultChars = 80
	maxGaps        = 5
)

// Substrings that mark a result as spam or low-value.
var blocklist = []string{
	"buy now", "subscribe to", "sign up today", "limited offer",
	"casino", "crypto giveaway",
}

var badDomains = []string{
	"pinterest.", "quora.com/unanswered", "answers.yahoo",
}

// Extend runs the gap-research-integrate state machine and returns the
// enriched content. A search.ServiceError aborts the run; any other failure
// returns the original content unchanged.
func (e *Extender) Extend(ctx context.Context, content string) (string, error) {
	gaps, err := e.identifyGaps(ctx, content)
	if err != nil {
		log.Printf("extend: gap identification failed, keeping original content: %v", err)
		return content, nil
	}
	if len(gaps) == 0 {
		return content, nil
	}
	if len(gaps) > maxGaps {
		gaps = gaps[:maxGaps]
	}

	findings, err := e.researchGaps(ctx, gaps)
	if err != nil {
		// Search-provider failure is the one fatal path in this stage.
		return "", err
	}
	findings = filterLowQuality(findings)
	if len(findings) == 0 {
		return content, nil
	}

	integrated, err := e.integrate(ctx, content, findings)
	if err != nil {
		log.Printf("extend: integration failed, keeping original content: %v", err)
		return content, nil
	}
	return integrated, nil
}

func (e *Extender) identifyGaps(ctx context.Context, content string) ([]Gap, error) {
	var resp struct {
		Gaps []Gap `json:"gaps"`
	}
	prompt := fmt.Sprintf(identifyGapsPrompt, content)
	if err := llm.GenerateJSON(ctx, e.provider, prompt, 1024, &resp); err != nil {
		return nil, err
	}

	var gaps []Gap
	for _, g := range resp.Gaps {
		if strings.TrimSpace(g.Query) == "" {
			continue
		}
		gaps = append(gaps, g)
	}
	return gaps, nil
}

// researchGaps resolves each gap: knowledge base first, web search when the
// KB comes up empty. Gaps run sequentially; they are few.
func (e *Extender) researchGaps(ctx context.Context, gaps []Gap) ([]Finding, error) {
	var findings []Finding
	for _, gap := range gaps {
		if e.kb != nil {
			hits, err := e.kb.Search(ctx, gap.Query)
			if err != nil {
				log.Printf("extend: knowledge base lookup failed for %q: %v", gap.Query, err)
			} else if len(hits) > 0 {
				for _, h := range hits {
					findings = append(findings, Finding{
						Gap:     gap,
						Title:   h.Document.Title,
						URL:     h.Document.Source,
						Content: h.Document.Content,
					})
				}
				continue
			}
		}

		if e.searcher == nil || !e.searcher.IsConfigured() {
			log.Printf("extend: no search provider for gap %q, skipping", gap.Query)
			continue
		}
		results, err := e.searcher.Search(ctx, gap.Query)
		if err != nil {
			return nil, fmt.Errorf("researching gap %q: %w", gap.Query, err)
		}
		for _, r := range results {
			findings = append(findings, Finding{Gap: gap, Title: r.Title, URL: r.URL, Content: r.Content})
		}
	}
	return findings, nil
}

// filterLowQuality drops individual findings that are too short or match the
// spam heuristics. A gap losing all its findings drops out of integration on
// its own; it never fails the stage.
func filterLowQuality(findings []Finding) []Finding {
	var kept []Finding
	for _, f := range findings {
		if len(f.Content) < minResultChars {
			continue
		}
		if matchesBlocklist(f.Title) || matchesBlocklist(f.Content) {
			continue
		}
		if matchesBadDomain(f.URL) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func matchesBlocklist(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range blocklist {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func matchesBadDomain(url string) bool {
	lower := strings.ToLower(url)
	for _, d := range badDomains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

func (e *Extender) integrate(ctx context.Context, content string, findings []Finding) (string, error) {
	var research strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&research, "Gap: %s\nSource: %s (%s)\n%s\n\n", f.Gap.Description, f.Title, f.URL, f.Content)
	}

	prompt := fmt.Sprintf(integratePrompt, content, research.String())
	result, err := e.provider.Generate(ctx, prompt, 4096)
	if err != nil {
		return "", err
	}
	result = strings.TrimSpace(llm.StripCodeFences(result))
	if result == "" {
		return "", fmt.Errorf("empty integration result")
	}
	return result, nil
}
