// Package parse converts conversation log files into role-tagged message
// lists. Markdown, JSON, CSV and plain text are supported.
package parse

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/kchou-lab/chatpress/internal/chat"
)

// Supported file formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatText     = "text"
)

// Parsed is the result of parsing one conversation file.
type Parsed struct {
	Messages []chat.Message
	Format   string
	Language string
	Metadata map[string]any
}

// File reads and parses a conversation log, detecting the format from the
// file extension.
func File(path string) (*Parsed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Content(string(data), DetectFormat(path))
}

// Content parses raw conversation content in the given format.
func Content(content, format string) (*Parsed, error) {
	var messages []chat.Message
	var metadata map[string]any
	var err error

	switch format {
	case FormatMarkdown:
		messages, metadata, err = parseMarkdown(content)
	case FormatJSON:
		messages, err = parseJSON(content)
	case FormatCSV:
		messages, err = parseCSV(content)
	default:
		format = FormatText
		messages = parseText(content)
	}
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages found in %s content", format)
	}

	return &Parsed{
		Messages: messages,
		Format:   format,
		Language: DetectLanguage(content),
		Metadata: metadata,
	}, nil
}

// DetectFormat maps a file extension to a format name.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	default:
		return FormatText
	}
}

// ContentHash returns the hex SHA-256 of the raw content, used upstream to
// skip reprocessing unchanged files.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// DetectLanguage is a coarse heuristic: content with a meaningful share of
// CJK runes is tagged "zh", everything else "en".
func DetectLanguage(content string) string {
	var cjk, letters int
	for _, r := range content {
		if unicode.Is(unicode.Han, r) {
			cjk++
			letters++
		} else if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters > 0 && float64(cjk)/float64(letters) > 0.15 {
		return "zh"
	}
	return "en"
}

// normalizeRole maps header and column values onto the canonical roles.
func normalizeRole(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user", "human", "me", "question", "q":
		return chat.RoleUser
	case "assistant", "ai", "bot", "model", "answer", "a", "claude", "gpt", "chatgpt":
		return chat.RoleAssistant
	case "system":
		return chat.RoleSystem
	default:
		return ""
	}
}
