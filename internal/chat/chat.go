// Package chat holds the conversation types shared by parsers and pipeline stages.
package chat

import (
	"strings"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn in a conversation. Immutable once parsed.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Transcript renders messages as "role: content" lines separated by blank lines.
func Transcript(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Role+": "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// UserPrompts returns the content of every user message longer than minLen runes.
func UserPrompts(messages []Message, minLen int) []string {
	var prompts []string
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if m.Role == RoleUser && len([]rune(content)) > minLen {
			prompts = append(prompts, content)
		}
	}
	return prompts
}

// Participants returns the unique roles present, in first-seen order.
func Participants(messages []Message) []string {
	seen := make(map[string]bool)
	var roles []string
	for _, m := range messages {
		if m.Role != "" && !seen[m.Role] {
			seen[m.Role] = true
			roles = append(roles, m.Role)
		}
	}
	return roles
}

// TimeBounds returns the earliest and latest message timestamps, or nil if none are set.
func TimeBounds(messages []Message) (first, last *time.Time) {
	for _, m := range messages {
		if m.Timestamp == nil {
			continue
		}
		if first == nil || m.Timestamp.Before(*first) {
			t := *m.Timestamp
			first = &t
		}
		if last == nil || m.Timestamp.After(*last) {
			t := *m.Timestamp
			last = &t
		}
	}
	return first, last
}
