package database

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestLog(t *testing.T, db *DB) *ConversationLog {
	t.Helper()
	lang := "en"
	cl := &ConversationLog{
		FilePath:     "/tmp/conv.md",
		FileFormat:   "markdown",
		ContentHash:  "abc123",
		RawContent:   "## User\nhello",
		Language:     &lang,
		MessageCount: 2,
		Metadata:     map[string]any{"source": "test"},
	}
	if err := db.InsertConversationLog(cl); err != nil {
		t.Fatalf("InsertConversationLog: %v", err)
	}
	return cl
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)

	version, err := getSchemaVersion(db.conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("schema version = %d, want %d", version, latestVersion())
	}

	// Re-running against an up-to-date database must be a no-op.
	if err := migrate(db.conn); err != nil {
		t.Errorf("second migrate: %v", err)
	}
}

func TestConversationLogRoundTrip(t *testing.T) {
	db := openTestDB(t)
	cl := insertTestLog(t, db)

	if cl.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := db.GetConversationLogByHash("/tmp/conv.md", "abc123")
	if err != nil {
		t.Fatalf("GetConversationLogByHash: %v", err)
	}
	if got == nil {
		t.Fatal("expected log, got nil")
	}
	if got.ID != cl.ID {
		t.Errorf("ID = %q, want %q", got.ID, cl.ID)
	}
	if got.Language == nil || *got.Language != "en" {
		t.Errorf("Language = %v, want en", got.Language)
	}
	if got.Metadata["source"] != "test" {
		t.Errorf("Metadata = %v", got.Metadata)
	}

	missing, err := db.GetConversationLogByHash("/tmp/conv.md", "other")
	if err != nil {
		t.Fatalf("GetConversationLogByHash miss: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown hash, got %+v", missing)
	}
}

func TestDuplicateHashRejected(t *testing.T) {
	db := openTestDB(t)
	insertTestLog(t, db)

	dup := &ConversationLog{
		FilePath:    "/tmp/conv.md",
		FileFormat:  "markdown",
		ContentHash: "abc123",
		RawContent:  "## User\nhello",
	}
	if err := db.InsertConversationLog(dup); err == nil {
		t.Error("expected unique constraint violation for duplicate path+hash")
	}
}

func TestBlogPostRoundTrip(t *testing.T) {
	db := openTestDB(t)
	cl := insertTestLog(t, db)

	bp := &BlogPost{
		ConversationLogID: cl.ID,
		Title:             "Understanding Goroutines",
		Summary:           "A walkthrough of goroutine scheduling.",
		Tags:              []string{"go", "concurrency"},
		Content:           "# Understanding Goroutines\n\nBody.",
	}
	if err := db.InsertBlogPost(bp); err != nil {
		t.Fatalf("InsertBlogPost: %v", err)
	}
	if bp.Status != "draft" {
		t.Errorf("default status = %q, want draft", bp.Status)
	}

	got, err := db.GetBlogPost(bp.ID)
	if err != nil {
		t.Fatalf("GetBlogPost: %v", err)
	}
	if got == nil {
		t.Fatal("expected post, got nil")
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" {
		t.Errorf("Tags = %v", got.Tags)
	}

	if err := db.UpdateBlogPostStatus(bp.ID, "published"); err != nil {
		t.Fatalf("UpdateBlogPostStatus: %v", err)
	}
	got, _ = db.GetBlogPost(bp.ID)
	if got.Status != "published" {
		t.Errorf("Status = %q, want published", got.Status)
	}

	posts, err := db.ListBlogPosts(10)
	if err != nil {
		t.Fatalf("ListBlogPosts: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("len(posts) = %d, want 1", len(posts))
	}
}

func TestProcessingHistory(t *testing.T) {
	db := openTestDB(t)
	cl := insertTestLog(t, db)

	runID, err := db.StartProcessing(cl.ID)
	if err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}

	errMsg := "search service unavailable"
	if err := db.FinishProcessing(runID, "failed", nil, &errMsg); err != nil {
		t.Fatalf("FinishProcessing: %v", err)
	}

	records, err := db.GetProcessingHistory(cl.ID)
	if err != nil {
		t.Fatalf("GetProcessingHistory: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Status != "failed" {
		t.Errorf("Status = %q, want failed", records[0].Status)
	}
	if records[0].ErrorMessage == nil || *records[0].ErrorMessage != errMsg {
		t.Errorf("ErrorMessage = %v, want %q", records[0].ErrorMessage, errMsg)
	}
	if records[0].FinishedAt == nil {
		t.Error("expected FinishedAt to be set")
	}
}

func TestPromptSuggestionRoundTrip(t *testing.T) {
	db := openTestDB(t)
	cl := insertTestLog(t, db)

	ps := &PromptSuggestion{
		ConversationLogID: cl.ID,
		OriginalPrompt:    "explain goroutines to me please",
		Analysis:          "Vague scope, no desired depth specified.",
		Candidates: []PromptCandidate{
			{Type: "structured", Prompt: "Explain goroutines: scheduling, stacks, and common pitfalls.", Reasoning: "Names the dimensions to cover."},
			{Type: "step_decomposition", Prompt: "First explain what a goroutine is, then how the scheduler multiplexes them.", Reasoning: "Orders the explanation."},
			{Type: "expert_persona", Prompt: "As a Go runtime engineer, explain goroutine scheduling.", Reasoning: "Raises the technical register."},
		},
		Reasoning:      "The prompt would benefit from explicit structure.",
		ExpectedEffect: "More focused answer with fewer follow-ups.",
	}
	if err := db.InsertPromptSuggestion(ps); err != nil {
		t.Fatalf("InsertPromptSuggestion: %v", err)
	}

	got, err := db.GetPromptSuggestions(cl.ID)
	if err != nil {
		t.Fatalf("GetPromptSuggestions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(suggestions) = %d, want 1", len(got))
	}
	if len(got[0].Candidates) != 3 {
		t.Errorf("len(candidates) = %d, want 3", len(got[0].Candidates))
	}
	if got[0].Candidates[0].Type != "structured" {
		t.Errorf("candidate type = %q", got[0].Candidates[0].Type)
	}
}

func TestKBDocuments(t *testing.T) {
	db := openTestDB(t)

	doc := &KBDocument{
		Source:    "https://example.com/post",
		Title:     "Channels in depth",
		Content:   "Channels are typed conduits.",
		Embedding: []float64{0.1, 0.2, 0.3},
	}
	if err := db.InsertKBDocument(doc); err != nil {
		t.Fatalf("InsertKBDocument: %v", err)
	}
	if doc.ID == 0 {
		t.Error("expected assigned ID")
	}

	docs, err := db.ListKBDocuments()
	if err != nil {
		t.Fatalf("ListKBDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("len(docs) = %d, want 1", len(docs))
	}
	if len(docs[0].Embedding) != 3 || docs[0].Embedding[1] != 0.2 {
		t.Errorf("Embedding = %v", docs[0].Embedding)
	}

	has, err := db.HasKBSource("https://example.com/post")
	if err != nil {
		t.Fatalf("HasKBSource: %v", err)
	}
	if !has {
		t.Error("expected HasKBSource true")
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	cl := insertTestLog(t, db)

	bp := &BlogPost{ConversationLogID: cl.ID, Title: "t", Summary: "s", Content: "c"}
	if err := db.InsertBlogPost(bp); err != nil {
		t.Fatalf("InsertBlogPost: %v", err)
	}
	runID, _ := db.StartProcessing(cl.ID)
	db.FinishProcessing(runID, "completed", &bp.ID, nil)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.ConversationLogs != 1 || stats.BlogPosts != 1 || stats.DraftPosts != 1 || stats.CompletedRuns != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
