package blog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kchou-lab/chatpress/internal/database"
	"github.com/kchou-lab/chatpress/internal/edit"
	"github.com/kchou-lab/chatpress/internal/extend"
	"github.com/kchou-lab/chatpress/internal/extract"
	"github.com/kchou-lab/chatpress/internal/pipeline"
	"github.com/kchou-lab/chatpress/internal/promptanalysis"
	"github.com/kchou-lab/chatpress/internal/review"
)

type keyedProvider struct {
	mu        sync.Mutex
	responses map[string]string
	errorKeys map[string]error
}

func (k *keyedProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
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

// fixtureProvider mocks every stage. Candidate generation deliberately
// under-produces so the deterministic templates must fill all three slots.
func fixtureProvider() *keyedProvider {
	return &keyedProvider{
		responses: map[string]string{
			"Extract the key facts":             "FACT: the conversation explains context cancellation",
			"Condense this list":                "FACT: condensed",
			"Analyze this AI-chat conversation": `{"key_insights":["contexts carry deadlines","cancellation propagates down call trees","always call the cancel func"],"core_concepts":["context","cancellation","deadlines","goroutine leaks"],"user_intent":"learn context usage","substantive_score":9}`,
			"knowledge gaps":                    `{"gaps":[]}`,
			"Find logical gaps":                 `{"logical_gaps":[]}`,
			"Find factual":                      `{"factual_inconsistencies":[]}`,
			"Find unclear":                      `{"unclear_explanations":[]}`,
			"select only the material":          `{"claims":[]}`,
			"actionable suggestions":            `{"suggestions":["s1","s2","s3"]}`,
			"Evaluate how effective":            "Reasonably clear prompt.",
			"improved alternatives":             `{"candidates":[]}`,
			"what specifically":                 "Structure and persona framing improved.",
			"expected quality":                  "More complete answers.",
			"polished technical blog post":      "## Context in Go\n\nEvery context carries a deadline and a cancellation signal.",
			"Write a title":                     `{"title":"Understanding context.Context","summary":"How cancellation and deadlines flow through Go programs."}`,
		},
		errorKeys: map[string]error{},
	}
}

// Six messages, three user turns, one clear technical Q&A thread.
const conversationFile = `## User

I keep leaking goroutines in my HTTP handlers. How does context cancellation actually propagate, and when should I create a child context instead of passing the parent straight through to every downstream call?

## Assistant

Cancellation flows from parent to child: when a parent context is canceled every context derived from it is canceled too, which closes their Done channels and unblocks anything selecting on them. You create a child when you need a tighter deadline or want to cancel a subtree independently of its parent.

## User

So if my handler's request context gets canceled, do the database queries I started with it stop on their own as well?

## Assistant

Only if the driver honors the context. Most modern drivers check Done between network operations and abort the query, returning a context error. Work that never inspects the context keeps running, which is exactly how goroutine leaks happen in handlers.

## User

What is the rule of thumb for choosing between WithTimeout and WithDeadline in that situation then?

## Assistant

They are the same mechanism expressed differently: WithTimeout is WithDeadline with now plus a duration. Use WithTimeout for relative budgets like per-request limits, and WithDeadline when several operations must finish by one shared absolute point in time.
`

func newTestService(t *testing.T, p *keyedProvider) *Service {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	runner := pipeline.New(p,
		extract.New(p),
		extend.New(p, nil, nil),
		review.New(p, nil, review.MethodLLM),
		promptanalysis.New(p, 4096, 50),
		edit.New(p),
		pipeline.Config{Timeout: 30 * time.Second, TokenLimit: 4096, MaxFacts: 50},
	)
	return NewService(db, runner)
}

func writeConversation(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conv.md")
	if err := os.WriteFile(path, []byte(conversationFile), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessFileEndToEnd(t *testing.T) {
	svc := newTestService(t, fixtureProvider())
	path := writeConversation(t)

	out, err := svc.ProcessFile(context.Background(), path, false)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if out.Skipped {
		t.Fatal("first run must not be skipped")
	}
	if out.Post == nil || out.Post.Title == "" || out.Post.Summary == "" || out.Post.Content == "" {
		t.Fatalf("incomplete post: %+v", out.Post)
	}
	if len(out.Post.Tags) > 5 {
		t.Errorf("len(Tags) = %d, want <= 5", len(out.Post.Tags))
	}
	if len(out.Suggestions) != 3 {
		t.Fatalf("len(Suggestions) = %d, want one per user message", len(out.Suggestions))
	}
	for _, s := range out.Suggestions {
		if len(s.Candidates) != 3 {
			t.Errorf("candidates for %q = %d, want exactly 3 from the template fallback", s.OriginalPrompt, len(s.Candidates))
		}
	}

	// Everything landed in the database.
	stats, err := svc.db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.ConversationLogs != 1 || stats.BlogPosts != 1 || stats.PromptSuggestions != 3 || stats.CompletedRuns != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestProcessFileSkipsUnchangedContent(t *testing.T) {
	svc := newTestService(t, fixtureProvider())
	path := writeConversation(t)

	if _, err := svc.ProcessFile(context.Background(), path, false); err != nil {
		t.Fatalf("first ProcessFile: %v", err)
	}
	out, err := svc.ProcessFile(context.Background(), path, false)
	if err != nil {
		t.Fatalf("second ProcessFile: %v", err)
	}
	if !out.Skipped {
		t.Error("unchanged content must be skipped")
	}

	stats, _ := svc.db.GetStats()
	if stats.BlogPosts != 1 {
		t.Errorf("BlogPosts = %d, want still 1", stats.BlogPosts)
	}
}

func TestProcessFileForceReruns(t *testing.T) {
	svc := newTestService(t, fixtureProvider())
	path := writeConversation(t)

	if _, err := svc.ProcessFile(context.Background(), path, false); err != nil {
		t.Fatalf("first ProcessFile: %v", err)
	}
	out, err := svc.ProcessFile(context.Background(), path, true)
	if err != nil {
		t.Fatalf("forced ProcessFile: %v", err)
	}
	if out.Skipped {
		t.Error("forced run must not be skipped")
	}

	stats, _ := svc.db.GetStats()
	if stats.BlogPosts != 2 || stats.CompletedRuns != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestProcessFileRecordsFailure(t *testing.T) {
	p := fixtureProvider()
	p.errorKeys["Analyze this AI-chat conversation"] = fmt.Errorf("model unavailable")
	svc := newTestService(t, p)
	path := writeConversation(t)

	if _, err := svc.ProcessFile(context.Background(), path, false); err == nil {
		t.Fatal("expected pipeline failure to propagate")
	}

	stats, _ := svc.db.GetStats()
	if stats.FailedRuns != 1 {
		t.Errorf("FailedRuns = %d, want 1", stats.FailedRuns)
	}
	if stats.BlogPosts != 0 {
		t.Errorf("BlogPosts = %d, want 0 after failed run", stats.BlogPosts)
	}
}
