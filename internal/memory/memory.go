// Package memory keeps a token-bounded view of a conversation: a buffer of
// recent messages plus a capped list of extracted facts standing in for the
// turns that no longer fit.
package memory

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kchou-lab/chatpress/internal/chat"
	"github.com/kchou-lab/chatpress/internal/llm"
)

// Manager maintains conversation context within a token budget. It is not
// safe for concurrent use; each pipeline branch owns its own Manager.
//
// Extraction and condensation are best-effort: when the model fails, the
// manager logs and degrades (messages are still evicted, facts truncated)
// rather than surfacing an error.
type Manager struct {
	provider   llm.Provider
	tokenLimit int
	maxFacts   int

	buffer  []chat.Message
	facts   []string
	factSet map[string]struct{}
}

// EstimateTokens approximates the token count of a string as len/4.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return len(s)/4 + 1
}

// New creates an empty Manager.
func New(provider llm.Provider, tokenLimit, maxFacts int) *Manager {
	if tokenLimit <= 0 {
		tokenLimit = 4096
	}
	if maxFacts <= 0 {
		maxFacts = 50
	}
	return &Manager{
		provider:   provider,
		tokenLimit: tokenLimit,
		maxFacts:   maxFacts,
		factSet:    make(map[string]struct{}),
	}
}

// NewFromMessages creates a Manager pre-loaded with a transcript, flushing
// older turns into facts as the budget requires.
func NewFromMessages(ctx context.Context, provider llm.Provider, tokenLimit, maxFacts int, messages []chat.Message) *Manager {
	m := New(provider, tokenLimit, maxFacts)
	for _, msg := range messages {
		m.Put(ctx, msg)
	}
	return m
}

// Put appends a message to the buffer, evicting older turns into facts when
// the token budget is exceeded.
func (m *Manager) Put(ctx context.Context, msg chat.Message) {
	m.buffer = append(m.buffer, msg)
	for m.bufferTokens() > m.tokenLimit && len(m.buffer) > 1 {
		m.flushOldest(ctx)
	}
}

// Facts returns the extracted facts in insertion order.
func (m *Manager) Facts() []string {
	out := make([]string, len(m.facts))
	copy(out, m.facts)
	return out
}

// FactsText renders the facts as a bullet list for grounding prompts.
// Returns "" when no facts have been extracted.
func (m *Manager) FactsText() string {
	if len(m.facts) == 0 {
		return ""
	}
	return "- " + strings.Join(m.facts, "\n- ")
}

// Buffer returns the messages currently held verbatim.
func (m *Manager) Buffer() []chat.Message {
	out := make([]chat.Message, len(m.buffer))
	copy(out, m.buffer)
	return out
}

// ContextText renders facts plus recent turns as prompt context.
func (m *Manager) ContextText() string {
	var b strings.Builder
	if len(m.facts) > 0 {
		b.WriteString("Key facts from earlier in the conversation:\n")
		for _, f := range m.facts {
			b.WriteString("- ")
			b.WriteString(f)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(m.buffer) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, msg := range m.buffer {
			b.WriteString(msg.Role)
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Manager) bufferTokens() int {
	total := 0
	for _, msg := range m.buffer {
		total += EstimateTokens(msg.Content)
	}
	for _, f := range m.facts {
		total += EstimateTokens(f)
	}
	return total
}

// flushOldest evicts the older half of the buffer, extracting facts from it
// first. The eviction happens even when extraction fails so the budget holds.
func (m *Manager) flushOldest(ctx context.Context) {
	n := len(m.buffer) / 2
	if n == 0 {
		n = 1
	}
	evicted := m.buffer[:n]
	m.buffer = append([]chat.Message(nil), m.buffer[n:]...)

	facts, err := m.extractFacts(ctx, evicted, m.facts)
	if err != nil {
		log.Printf("memory: fact extraction failed, dropping %d messages: %v", n, err)
		return
	}
	for _, f := range facts {
		m.addFact(ctx, f)
	}
}

// extractFacts asks the model for FACT: lines summarizing the messages.
// Existing facts are included so the model does not restate them.
func (m *Manager) extractFacts(ctx context.Context, messages []chat.Message, existing []string) ([]string, error) {
	var convo strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&convo, "%s: %s\n", msg.Role, msg.Content)
	}

	known := "(none)"
	if len(existing) > 0 {
		known = "- " + strings.Join(existing, "\n- ")
	}

	prompt := fmt.Sprintf(extractFactsPrompt, known, convo.String())
	response, err := m.provider.Generate(ctx, prompt, 512)
	if err != nil {
		return nil, err
	}

	var facts []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if fact, ok := strings.CutPrefix(line, "FACT:"); ok {
			fact = strings.TrimSpace(fact)
			if fact != "" {
				facts = append(facts, fact)
			}
		}
	}
	return facts, nil
}

// addFact stores a fact, skipping duplicates and condensing at the cap.
func (m *Manager) addFact(ctx context.Context, fact string) {
	key := strings.ToLower(strings.TrimSpace(fact))
	if key == "" {
		return
	}
	if _, seen := m.factSet[key]; seen {
		return
	}
	m.factSet[key] = struct{}{}
	m.facts = append(m.facts, fact)

	if len(m.facts) > m.maxFacts {
		m.condense(ctx)
	}
}

// condense merges the fact list down via the model. On failure it keeps the
// most recent maxFacts entries so the cap still holds.
func (m *Manager) condense(ctx context.Context) {
	target := m.maxFacts / 2
	if target < 1 {
		target = 1
	}

	prompt := fmt.Sprintf(condenseFactsPrompt, target, "- "+strings.Join(m.facts, "\n- "))
	response, err := m.provider.Generate(ctx, prompt, 1024)
	if err != nil {
		log.Printf("memory: condensation failed, truncating to %d facts: %v", m.maxFacts, err)
		m.setFacts(m.facts[len(m.facts)-m.maxFacts:])
		return
	}

	var condensed []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if fact, ok := strings.CutPrefix(line, "FACT:"); ok {
			fact = strings.TrimSpace(fact)
			if fact != "" {
				condensed = append(condensed, fact)
			}
		}
	}
	if len(condensed) == 0 || len(condensed) > m.maxFacts {
		log.Printf("memory: condensation returned %d facts, truncating instead", len(condensed))
		m.setFacts(m.facts[len(m.facts)-m.maxFacts:])
		return
	}
	m.setFacts(condensed)
}

func (m *Manager) setFacts(facts []string) {
	m.facts = append([]string(nil), facts...)
	m.factSet = make(map[string]struct{}, len(facts))
	for _, f := range facts {
		m.factSet[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
	}
}
