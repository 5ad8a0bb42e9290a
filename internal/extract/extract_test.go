package extract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kchou-lab/chatpress/internal/chat"
	"github.com/kchou-lab/chatpress/internal/memory"
)

type mockProvider struct {
	response string
	err      error
	prompts  []string
}

func (m *mockProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockProvider) IsConfigured() bool { return true }

const goodAnalysis = `{
  "key_insights": ["goroutines are cheap", "channels synchronize", "select multiplexes"],
  "core_concepts": ["goroutines", "channels", "select", "scheduler"],
  "user_intent": "understand Go concurrency",
  "substantive_score": 8
}`

func testMessages() []chat.Message {
	return []chat.Message{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleUser, Content: "how do goroutines differ from OS threads in practice?"},
		{Role: chat.RoleAssistant, Content: "goroutines are multiplexed onto a small pool of OS threads by the runtime scheduler, with growable stacks starting at a few kilobytes"},
		{Role: chat.RoleUser, Content: "thanks, got it"},
	}
}

func TestExtract(t *testing.T) {
	p := &mockProvider{response: goodAnalysis}
	mem := memory.NewFromMessages(context.Background(), p, 4096, 50, testMessages())

	a, err := New(p).Extract(context.Background(), testMessages(), mem)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if n := len(a.KeyInsights); n < 3 || n > 5 {
		t.Errorf("len(KeyInsights) = %d, want [3,5]", n)
	}
	if n := len(a.CoreConcepts); n < 3 || n > 10 {
		t.Errorf("len(CoreConcepts) = %d, want [3,10]", n)
	}
	if a.SubstantiveScore != 8 {
		t.Errorf("SubstantiveScore = %d", a.SubstantiveScore)
	}
	if a.QualityWarning != "" {
		t.Errorf("unexpected QualityWarning %q", a.QualityWarning)
	}
	// Noise is gone, substance stays.
	if strings.Contains(a.FilteredContent, "thanks, got it") {
		t.Error("noise message survived filtering")
	}
	if !strings.Contains(a.FilteredContent, "goroutines differ") {
		t.Error("substantive message was filtered out")
	}
}

func TestExtractLowScoreWarns(t *testing.T) {
	p := &mockProvider{response: `{"key_insights":["a","b","c"],"core_concepts":["x","y","z"],"user_intent":"chat","substantive_score":2}`}
	mem := memory.NewFromMessages(context.Background(), p, 4096, 50, testMessages())

	a, err := New(p).Extract(context.Background(), testMessages(), mem)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if a.QualityWarning == "" {
		t.Error("expected QualityWarning for score below threshold")
	}
}

func TestExtractLLMFailureIsFatal(t *testing.T) {
	p := &mockProvider{err: fmt.Errorf("model unavailable")}
	mem := memory.New(p, 4096, 50)

	if _, err := New(p).Extract(context.Background(), testMessages(), mem); err == nil {
		t.Error("expected error from failed analysis call")
	}
}

func TestExtractCapsOversizedLists(t *testing.T) {
	var insights, concepts []string
	for i := 0; i < 12; i++ {
		insights = append(insights, fmt.Sprintf(`"insight %d"`, i))
		concepts = append(concepts, fmt.Sprintf(`"concept %d"`, i))
	}
	resp := fmt.Sprintf(`{"key_insights":[%s],"core_concepts":[%s],"user_intent":"x","substantive_score":5}`,
		strings.Join(insights, ","), strings.Join(concepts, ","))

	p := &mockProvider{response: resp}
	mem := memory.New(p, 4096, 50)
	a, err := New(p).Extract(context.Background(), testMessages(), mem)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(a.KeyInsights) != 5 {
		t.Errorf("len(KeyInsights) = %d, want cap of 5", len(a.KeyInsights))
	}
	if len(a.CoreConcepts) != 10 {
		t.Errorf("len(CoreConcepts) = %d, want cap of 10", len(a.CoreConcepts))
	}
}

func TestFilterNoiseKeepsMinimum(t *testing.T) {
	messages := []chat.Message{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello"},
	}
	kept := filterNoise(messages)
	if len(kept) != 2 {
		t.Errorf("len(kept) = %d; filtering below the minimum should fall back to the original list", len(kept))
	}
}
