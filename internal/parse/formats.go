package parse

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kchou-lab/chatpress/internal/chat"
)

// parseMarkdown reads "## Role" sections, with optional YAML frontmatter
// between leading "---" lines.
func parseMarkdown(content string) ([]chat.Message, map[string]any, error) {
	content, metadata := splitFrontmatter(content)

	var messages []chat.Message
	var role string
	var body []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if role != "" && text != "" {
			messages = append(messages, chat.Message{Role: role, Content: text})
		}
		body = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			if r := normalizeRole(strings.TrimPrefix(trimmed, "## ")); r != "" {
				flush()
				role = r
				continue
			}
		}
		body = append(body, line)
	}
	flush()

	return messages, metadata, nil
}

// splitFrontmatter strips and parses a leading YAML frontmatter block.
// Malformed frontmatter is ignored rather than failing the parse.
func splitFrontmatter(content string) (string, map[string]any) {
	if !strings.HasPrefix(content, "---\n") {
		return content, nil
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return content, nil
	}

	var metadata map[string]any
	if err := yaml.Unmarshal([]byte(rest[:end]), &metadata); err != nil {
		return content, nil
	}

	body := rest[end+4:]
	body = strings.TrimPrefix(body, "\n")
	return body, metadata
}

type jsonMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// parseJSON accepts either {"messages": [...]} or a bare message array.
func parseJSON(content string) ([]chat.Message, error) {
	var wrapper struct {
		Messages []jsonMessage `json:"messages"`
	}
	if err := json.Unmarshal([]byte(content), &wrapper); err != nil || len(wrapper.Messages) == 0 {
		var arr []jsonMessage
		if err2 := json.Unmarshal([]byte(content), &arr); err2 != nil {
			return nil, fmt.Errorf("parsing JSON conversation: %w", err2)
		}
		wrapper.Messages = arr
	}

	var messages []chat.Message
	for _, jm := range wrapper.Messages {
		role := normalizeRole(jm.Role)
		if role == "" || strings.TrimSpace(jm.Content) == "" {
			continue
		}
		m := chat.Message{Role: role, Content: strings.TrimSpace(jm.Content)}
		if jm.Timestamp != "" {
			if ts, err := time.Parse(time.RFC3339, jm.Timestamp); err == nil {
				m.Timestamp = &ts
			}
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// parseCSV expects a header row naming at least "role" and "content"
// columns, in any order.
func parseCSV(content string) ([]chat.Message, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV conversation: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV conversation needs a header and at least one row")
	}

	roleCol, contentCol, tsCol := -1, -1, -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "role":
			roleCol = i
		case "content", "message", "text":
			contentCol = i
		case "timestamp", "time":
			tsCol = i
		}
	}
	if roleCol < 0 || contentCol < 0 {
		return nil, fmt.Errorf("CSV conversation needs role and content columns")
	}

	var messages []chat.Message
	for _, rec := range records[1:] {
		if roleCol >= len(rec) || contentCol >= len(rec) {
			continue
		}
		role := normalizeRole(rec[roleCol])
		content := strings.TrimSpace(rec[contentCol])
		if role == "" || content == "" {
			continue
		}
		m := chat.Message{Role: role, Content: content}
		if tsCol >= 0 && tsCol < len(rec) {
			if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[tsCol])); err == nil {
				m.Timestamp = &ts
			}
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// parseText handles unstructured logs: "Role:" line prefixes when present,
// otherwise paragraphs alternating user/assistant starting with the user.
func parseText(content string) []chat.Message {
	var messages []chat.Message

	// Prefixed form first.
	var role string
	var body []string
	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if role != "" && text != "" {
			messages = append(messages, chat.Message{Role: role, Content: text})
		}
		body = nil
	}
	for _, line := range strings.Split(content, "\n") {
		if prefix, rest, ok := strings.Cut(line, ":"); ok {
			if r := normalizeRole(prefix); r != "" {
				flush()
				role = r
				body = append(body, rest)
				continue
			}
		}
		body = append(body, line)
	}
	flush()
	if len(messages) > 0 {
		return messages
	}

	// No prefixes anywhere; alternate by paragraph.
	next := chat.RoleUser
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		messages = append(messages, chat.Message{Role: next, Content: para})
		if next == chat.RoleUser {
			next = chat.RoleAssistant
		} else {
			next = chat.RoleUser
		}
	}
	return messages
}
