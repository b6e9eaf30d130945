package discussion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bookglebookgle/ai-core/internal/model"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if f.err != nil {
		return CompletionResponse{}, f.err
	}
	return CompletionResponse{Text: f.response}, nil
}

func sampleMessages() []model.ChatMessage {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.ChatMessage{
		{MessageID: "m1", UserID: "u1", Nickname: "alice", Content: "I think the ending was rushed", Timestamp: base, Type: model.MessageUser},
		{MessageID: "m2", UserID: "u2", Nickname: "bob", Content: "Did you notice the foreshadowing in chapter 3?", Timestamp: base.Add(time.Minute), Type: model.MessageUser},
		{MessageID: "m3", UserID: "u1", Nickname: "alice", Content: "Yes, it connects to the finale perfectly", Timestamp: base.Add(2 * time.Minute), Type: model.MessageUser},
	}
}

func TestSummarize_EmptyMessages(t *testing.T) {
	s := NewSummarizer(nil)
	got := s.Summarize(context.Background(), nil, SummaryBrief, StrategyHybrid, 100)
	if got == "" {
		t.Error("expected a non-empty placeholder summary for no messages")
	}
}

func TestSummarize_TemplateStrategyNeverFails(t *testing.T) {
	s := NewSummarizer(nil)
	for _, st := range []SummaryType{SummaryBrief, SummaryDetailed, SummaryTopical, SummaryParticipant, SummaryTimeline} {
		got := s.Summarize(context.Background(), sampleMessages(), st, StrategyTemplate, 100)
		if got == "" {
			t.Errorf("template summary for %q returned empty string", st)
		}
	}
}

func TestSummarize_HybridFallsBackWithoutLLM(t *testing.T) {
	s := NewSummarizer(nil)
	got := s.Summarize(context.Background(), sampleMessages(), SummaryBrief, StrategyHybrid, 100)
	if got == "" {
		t.Error("expected fallback template summary when no LLM is configured")
	}
}

func TestSummarize_AbstractiveUsesLLMWhenAvailable(t *testing.T) {
	s := NewSummarizer(&fakeLLM{response: "Alice and Bob discussed the ending and foreshadowing."})
	got := s.Summarize(context.Background(), sampleMessages(), SummaryBrief, StrategyAbstractive, 100)
	if got != "Alice and Bob discussed the ending and foreshadowing." {
		t.Errorf("Summarize() = %q, want the LLM's response", got)
	}
}

func TestSummarize_AbstractiveFallsBackOnLLMError(t *testing.T) {
	s := NewSummarizer(&fakeLLM{err: errors.New("provider unavailable")})
	got := s.Summarize(context.Background(), sampleMessages(), SummaryBrief, StrategyAbstractive, 100)
	if got == "" {
		t.Error("expected extractive fallback text when the LLM call fails")
	}
}

func TestSummarize_ExtractivePicksLongestMessages(t *testing.T) {
	s := NewSummarizer(nil)
	got := s.Summarize(context.Background(), sampleMessages(), SummaryBrief, StrategyExtractive, 100)
	if got == "" {
		t.Error("expected non-empty extractive summary")
	}
}

func TestSummarizeForBudget_ReturnsUsableClosure(t *testing.T) {
	s := NewSummarizer(nil)
	fn := s.SummarizeForBudget(context.Background())
	got := fn(sampleMessages())
	if got == "" {
		t.Error("expected the budget-summary closure to produce non-empty text")
	}
}
