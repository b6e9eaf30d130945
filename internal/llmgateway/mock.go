package llmgateway

import (
	"context"
	"strings"
)

// MockProvider returns deterministic canned responses keyed by a substring
// match against the prompt, for test/offline wiring (spec §4.6: "at least
// one must be configured or the gateway returns deterministic mock
// responses... for test mode").
type MockProvider struct{}

// NewMockProvider builds a MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) GenerateContent(ctx context.Context, req CompletionRequest) (string, error) {
	haystack := strings.ToLower(req.System + " " + req.Prompt)
	switch {
	case strings.Contains(haystack, "quiz"):
		return mockQuizResponse, nil
	case strings.Contains(haystack, "proofread") || strings.Contains(haystack, "correct"):
		return mockProofreadResponse, nil
	case strings.Contains(haystack, "summar"):
		return "This is a brief mock summary of the discussion so far.", nil
	default:
		return "That's an interesting point — can you say more about what stood out to you in that passage?", nil
	}
}

const mockQuizResponse = `{
  "questions": [
    {
      "question": "What motivates the protagonist's decision in this chapter?",
      "options": ["Fear", "Loyalty", "Curiosity", "Greed"],
      "correct_answer": 1,
      "explanation": "The protagonist acts out of loyalty to a childhood friend."
    }
  ]
}`

const mockProofreadResponse = `{
  "corrected_text": "This is the corrected version of the submitted text.",
  "corrections": [
    {"original": "recieve", "corrected": "receive", "reason": "spelling"}
  ],
  "confidence": 0.92
}`
