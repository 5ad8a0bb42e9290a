// Package extract turns a noisy conversation into a structured content
// analysis: key insights, core concepts, intent and a substance score.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kchou-lab/chatpress/internal/chat"
	"github.com/kchou-lab/chatpress/internal/llm"
	"github.com/kchou-lab/chatpress/internal/memory"
)

// Analysis is the extractor's output, consumed by every downstream stage.
// FilteredContent is later replaced by the knowledge extender.
type Analysis struct {
	KeyInsights      []string
	CoreConcepts     []string
	UserIntent       string
	SubstantiveScore int
	FilteredContent  string

	// QualityWarning is set when the conversation scores low on substance.
	// It is a signal for the caller, not a failure.
	QualityWarning string
}

const (
	// Messages shorter than this are treated as noise.
	minMessageLen = 10
	// Short messages matching a noise pattern are dropped up to this length.
	shortNoiseLen = 30
	// Filtering never reduces the conversation below this many messages.
	minSubstantive = 2

	lowScoreThreshold = 3
)

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "thanks": {}, "thank you": {},
	"ok": {}, "okay": {}, "yes": {}, "no": {}, "bye": {}, "goodbye": {},
	"sure": {}, "got it": {}, "great": {}, "cool": {}, "nice": {},
}

var noisePattern = regexp.MustCompile(`(?i)^(thanks|thank you|ok(ay)?|got it|sounds good|perfect|great|awesome)\b`)

// Extractor runs content extraction against an LLM provider.
type Extractor struct {
	provider llm.Provider
}

// New creates an Extractor.
func New(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract filters noise from the conversation and runs one structured
// analysis call. An LLM failure here is fatal for the run: there is no
// fallback that preserves the conversation's meaning.
func (e *Extractor) Extract(ctx context.Context, messages []chat.Message, mem *memory.Manager) (*Analysis, error) {
	filtered := filterNoise(messages)

	var resp struct {
		KeyInsights      []string `json:"key_insights"`
		CoreConcepts     []string `json:"core_concepts"`
		UserIntent       string   `json:"user_intent"`
		SubstantiveScore int      `json:"substantive_score"`
	}

	prompt := fmt.Sprintf(analyzePrompt, mem.ContextText())
	if err := llm.GenerateJSON(ctx, e.provider, prompt, 1024, &resp); err != nil {
		return nil, fmt.Errorf("content analysis: %w", err)
	}

	a := &Analysis{
		KeyInsights:      capSlice(resp.KeyInsights, 5),
		CoreConcepts:     capSlice(resp.CoreConcepts, 10),
		UserIntent:       strings.TrimSpace(resp.UserIntent),
		SubstantiveScore: resp.SubstantiveScore,
		FilteredContent:  chat.Transcript(filtered),
	}
	if a.SubstantiveScore < lowScoreThreshold {
		a.QualityWarning = fmt.Sprintf("conversation scored %d/10 on substance; the resulting post may be thin", a.SubstantiveScore)
	}
	return a, nil
}

// filterNoise drops greetings and very short messages, unless filtering
// would leave too little conversation to work with.
func filterNoise(messages []chat.Message) []chat.Message {
	var kept []chat.Message
	for _, m := range messages {
		if isNoise(m) {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) < minSubstantive {
		return messages
	}
	return kept
}

func isNoise(m chat.Message) bool {
	content := strings.TrimSpace(m.Content)
	if len([]rune(content)) < minMessageLen {
		return true
	}
	if _, ok := greetings[strings.ToLower(content)]; ok {
		return true
	}
	if len([]rune(content)) < shortNoiseLen && noisePattern.MatchString(content) {
		return true
	}
	return false
}

func capSlice(s []string, max int) []string {
	var out []string
	for _, v := range s {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
		if len(out) == max {
			break
		}
	}
	return out
}
