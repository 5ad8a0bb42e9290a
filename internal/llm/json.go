package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// ParseJSONResponse parses a JSON response from an LLM, handling markdown code blocks.
func ParseJSONResponse(text string) map[string]any {
	text = StripCodeFences(text)
	if text == "" {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		// Models sometimes wrap the object in prose; try the first brace block.
		if obj := ExtractJSONObject(text); obj != "" {
			if err2 := json.Unmarshal([]byte(obj), &result); err2 == nil {
				return result
			}
		}
		log.Printf("Failed to parse LLM response as JSON: %v", err)
		return nil
	}

	return result
}

// GenerateJSON prompts the provider and unmarshals the JSON response into out.
// It tolerates markdown code fences and surrounding prose around the object.
func GenerateJSON(ctx context.Context, p Provider, prompt string, maxTokens int, out any) error {
	text, err := p.Generate(ctx, prompt, maxTokens)
	if err != nil {
		return err
	}

	cleaned := StripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		if obj := ExtractJSONObject(cleaned); obj != "" {
			if err2 := json.Unmarshal([]byte(obj), out); err2 == nil {
				return nil
			}
		}
		return fmt.Errorf("parsing structured response: %w", err)
	}
	return nil
}

// StripCodeFences removes a surrounding markdown code fence if present.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}

// ExtractJSONObject returns the first balanced top-level JSON object in text,
// or "" if none is found. String literals are skipped so braces inside them
// don't break the balance count.
func ExtractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// GetString returns m[key] as a string, or fallback if missing or the wrong type.
func GetString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// GetInt returns m[key] as an int, or fallback if missing or the wrong type.
func GetInt(m map[string]any, key string, fallback int) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return fallback
}

// GetStringSlice returns m[key] as a []string, skipping non-string elements.
func GetStringSlice(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
