package edit

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kchou-lab/chatpress/internal/chat"
	"github.com/kchou-lab/chatpress/internal/extract"
	"github.com/kchou-lab/chatpress/internal/promptanalysis"
	"github.com/kchou-lab/chatpress/internal/review"
)

type keyedProvider struct {
	responses map[string]string
	errorKeys map[string]error
}

func (k *keyedProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	for key, err := range k.errorKeys {
		if strings.Contains(prompt, key) {
			return "", err
		}
	}
	for key, resp := range k.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return "", fmt.Errorf("no canned response for prompt: %.60s", prompt)
}

func (k *keyedProvider) IsConfigured() bool { return true }

func happyProvider() *keyedProvider {
	return &keyedProvider{responses: map[string]string{
		"polished technical blog post": "## What goroutines are\n\nGoroutines are cheap.",
		"Write a title":                `{"title":"Goroutines in Practice","summary":"How the Go runtime schedules goroutines, and what that means for your code."}`,
	}}
}

func testInput() *Input {
	return &Input{
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: "how do goroutines differ from threads?"},
			{Role: chat.RoleAssistant, Content: "they are multiplexed by the runtime"},
		},
		Analysis: &extract.Analysis{
			KeyInsights:      []string{"goroutines are cheap", "the runtime schedules them", "stacks grow"},
			CoreConcepts:     []string{"Goroutines", "Scheduler", "Stacks", "Channels", "Select", "GC"},
			UserIntent:       "understand Go concurrency",
			SubstantiveScore: 8,
		},
		Content:     "extended draft content about goroutines",
		Findings:    &review.Findings{ImprovementSuggestions: []string{"add an intro"}},
		Suggestions: []promptanalysis.Suggestion{{OriginalPrompt: "how do goroutines differ from threads?"}},
		Facts:       "- goroutines start with small stacks",
	}
}

func TestEdit(t *testing.T) {
	post := New(happyProvider()).Edit(context.Background(), testInput())

	if post.Title != "Goroutines in Practice" {
		t.Errorf("Title = %q", post.Title)
	}
	if post.Summary == "" {
		t.Error("empty Summary")
	}
	if !strings.Contains(post.Content, "What goroutines are") {
		t.Errorf("Content = %q", post.Content)
	}
	if len(post.Tags) != 5 {
		t.Errorf("len(Tags) = %d, want cap of 5", len(post.Tags))
	}
	if post.Tags[0] != "goroutines" {
		t.Errorf("Tags[0] = %q, want lowercased concept", post.Tags[0])
	}
	if post.Metadata["prompt_suggestion_count"] != 1 {
		t.Errorf("prompt_suggestion_count = %v", post.Metadata["prompt_suggestion_count"])
	}
	if post.Metadata["message_count"] != 2 {
		t.Errorf("message_count = %v", post.Metadata["message_count"])
	}
}

func TestBodyFailureFallsBackToDraft(t *testing.T) {
	p := happyProvider()
	p.errorKeys = map[string]error{"polished technical blog post": fmt.Errorf("model unavailable")}

	post := New(p).Edit(context.Background(), testInput())
	if post.Content != "extended draft content about goroutines" {
		t.Errorf("Content = %q, want the draft back", post.Content)
	}
}

func TestTitleTierTwoJSONInText(t *testing.T) {
	p := happyProvider()
	// Structured parsing fails on the preamble; tier 2 fishes the object out.
	p.responses["Write a title"] = "Sure! Here is the JSON you asked for:\n{\"title\":\"Fished Title\",\"summary\":\"Fished summary.\"}"

	post := New(p).Edit(context.Background(), testInput())
	if post.Title != "Fished Title" {
		t.Errorf("Title = %q", post.Title)
	}
	if post.Summary != "Fished summary." {
		t.Errorf("Summary = %q", post.Summary)
	}
}

func TestTitleTierThreePlainText(t *testing.T) {
	p := happyProvider()
	p.responses["Write a title"] = "\"A Plain Text Title About Goroutines\"\n"

	post := New(p).Edit(context.Background(), testInput())
	if post.Title != "A Plain Text Title About Goroutines" {
		t.Errorf("Title = %q", post.Title)
	}
	if post.Summary == "" {
		t.Error("tier-3 fallback must still produce a summary")
	}
}

func TestTitleTotalFailureStillProducesValues(t *testing.T) {
	p := happyProvider()
	p.errorKeys = map[string]error{"Write a title": fmt.Errorf("model unavailable")}

	post := New(p).Edit(context.Background(), testInput())
	if post.Title == "" || post.Summary == "" {
		t.Errorf("Title = %q, Summary = %q; both must be non-empty", post.Title, post.Summary)
	}
	if !strings.Contains(post.Title, "goroutines differ") {
		t.Errorf("fallback title should anchor on the original prompt, got %q", post.Title)
	}
}

func TestCleanupLine(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```\nGood Title Here For Post\n```", "Good Title Here For Post"},
		{"'Quoted Title About Things'", "Quoted Title About Things"},
		{"# Heading Title For A Post", "Heading Title For A Post"},
		{"{\"not\": \"a title\"}", ""},
		{"short", ""},
	}
	for _, c := range cases {
		if got := cleanupLine(c.in); got != c.want {
			t.Errorf("cleanupLine(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
