package database

// ConversationLog represents a parsed input conversation file.
type ConversationLog struct {
	ID           string
	FilePath     string
	FileFormat   string // "markdown", "json", "csv" or "text"
	ContentHash  string
	RawContent   string
	Language     *string
	MessageCount int
	Metadata     map[string]any
	CreatedAt    *string
}

// BlogPost represents a generated blog post.
type BlogPost struct {
	ID                string
	ConversationLogID string
	Title             string
	Summary           string
	Tags              []string
	Content           string // markdown
	Metadata          map[string]any
	Status            string // "draft", "published" or "archived"
	CreatedAt         *string
	UpdatedAt         *string
}

// ProcessingRecord tracks one pipeline run for a conversation log.
type ProcessingRecord struct {
	ID                string
	ConversationLogID string
	BlogPostID        *string
	Status            string // "processing", "completed", "failed" or "skipped"
	ErrorMessage      *string
	StartedAt         *string
	FinishedAt        *string
}

// PromptCandidate is one alternative phrasing for a user prompt.
type PromptCandidate struct {
	Type      string `json:"type"`
	Prompt    string `json:"prompt"`
	Reasoning string `json:"reasoning"`
}

// PromptSuggestion holds the stored analysis for one user prompt.
type PromptSuggestion struct {
	ID                string
	ConversationLogID string
	OriginalPrompt    string
	Analysis          string
	Candidates        []PromptCandidate
	Reasoning         string
	ExpectedEffect    string
	CreatedAt         *string
}

// KBDocument is one entry in the vector knowledge base.
type KBDocument struct {
	ID        int64
	Source    string
	Title     string
	Content   string
	Embedding []float64
	CreatedAt *string
}
