package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kchou-lab/chatpress/internal/database"
)

func setupServer(t *testing.T) (*Server, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv, err := New(db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, db
}

func seedPost(t *testing.T, db *database.DB) *database.BlogPost {
	t.Helper()
	cl := &database.ConversationLog{
		FilePath: "/tmp/c.md", FileFormat: "markdown", ContentHash: "h", RawContent: "x",
	}
	if err := db.InsertConversationLog(cl); err != nil {
		t.Fatal(err)
	}
	post := &database.BlogPost{
		ConversationLogID: cl.ID,
		Title:             "Understanding Goroutines",
		Summary:           "Scheduling explained.",
		Tags:              []string{"go", "concurrency"},
		Content:           "# Heading\n\nBody with **bold** text.",
	}
	if err := db.InsertBlogPost(post); err != nil {
		t.Fatal(err)
	}
	return post
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexListsPosts(t *testing.T) {
	srv, db := setupServer(t)
	seedPost(t, db)

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Understanding Goroutines") {
		t.Error("post title missing from index")
	}
	if !strings.Contains(body, "concurrency") {
		t.Error("tags missing from index")
	}
}

func TestPostRendersMarkdown(t *testing.T) {
	srv, db := setupServer(t)
	post := seedPost(t, db)

	rec := get(t, srv, "/post/"+post.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>bold</strong>") {
		t.Error("markdown not rendered to HTML")
	}
}

func TestPostNotFound(t *testing.T) {
	srv, _ := setupServer(t)
	rec := get(t, srv, "/post/nonexistent-id")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSuggestionsPage(t *testing.T) {
	srv, db := setupServer(t)
	post := seedPost(t, db)

	ps := &database.PromptSuggestion{
		ConversationLogID: post.ConversationLogID,
		OriginalPrompt:    "explain goroutines",
		Analysis:          "too vague",
		Candidates: []database.PromptCandidate{
			{Type: "structured", Prompt: "explain goroutines: scheduling and stacks", Reasoning: "scopes it"},
		},
		Reasoning: "scoping helps",
	}
	if err := db.InsertPromptSuggestion(ps); err != nil {
		t.Fatal(err)
	}

	rec := get(t, srv, "/suggestions/"+post.ConversationLogID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "explain goroutines: scheduling and stacks") {
		t.Error("candidate prompt missing from page")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	srv, _ := setupServer(t)
	rec := get(t, srv, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
