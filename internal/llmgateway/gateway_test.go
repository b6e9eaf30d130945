package llmgateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeProvider struct {
	name     string
	response string
	err      error
	lastReq  CompletionRequest
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) GenerateContent(ctx context.Context, req CompletionRequest) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestGateway_NoProvidersFallsBackToMock(t *testing.T) {
	g := New(nil, nil, testLog())
	resp, err := g.Complete(context.Background(), CompletionRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Provider != "mock" {
		t.Errorf("Provider = %q, want mock", resp.Provider)
	}
	if resp.Text == "" {
		t.Error("expected a non-empty mock response")
	}
}

func TestGateway_UsesPrecedenceOrder(t *testing.T) {
	primary := &fakeProvider{name: "primary", response: "from primary"}
	secondary := &fakeProvider{name: "secondary", response: "from secondary"}
	g := New(map[string]Provider{"primary": primary, "secondary": secondary}, []string{"primary", "secondary"}, testLog())

	resp, err := g.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Provider != "primary" {
		t.Errorf("Provider = %q, want primary", resp.Provider)
	}
}

func TestGateway_ExplicitProviderOverridesPrecedence(t *testing.T) {
	primary := &fakeProvider{name: "primary", response: "from primary"}
	secondary := &fakeProvider{name: "secondary", response: "from secondary"}
	g := New(map[string]Provider{"primary": primary, "secondary": secondary}, []string{"primary", "secondary"}, testLog())

	resp, err := g.Complete(context.Background(), CompletionRequest{Prompt: "hi", Provider: "secondary"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Provider != "secondary" {
		t.Errorf("Provider = %q, want secondary", resp.Provider)
	}
}

func TestGateway_UnknownExplicitProviderErrors(t *testing.T) {
	g := New(map[string]Provider{"primary": &fakeProvider{name: "primary"}}, []string{"primary"}, testLog())
	_, err := g.Complete(context.Background(), CompletionRequest{Prompt: "hi", Provider: "nonexistent"})
	if err == nil {
		t.Fatal("expected an error for an unknown provider name")
	}
}

func TestGateway_DoesNotAutoFallbackToMockOnProviderError(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("rate limited")}
	g := New(map[string]Provider{"primary": primary}, []string{"primary"}, testLog())

	_, err := g.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected the provider's error to surface, not a silent mock fallback")
	}
}

func TestMockProvider_RoutesByPromptSubstring(t *testing.T) {
	m := NewMockProvider()

	quiz, _ := m.GenerateContent(context.Background(), CompletionRequest{Prompt: "Generate a quiz about chapter 3"})
	if !strings.Contains(quiz, "questions") {
		t.Errorf("expected a quiz-shaped mock response, got %q", quiz)
	}

	proof, _ := m.GenerateContent(context.Background(), CompletionRequest{Prompt: "Please proofread this paragraph"})
	if !strings.Contains(proof, "corrected_text") {
		t.Errorf("expected a proofreading-shaped mock response, got %q", proof)
	}

	generic, _ := m.GenerateContent(context.Background(), CompletionRequest{Prompt: "What did you think of chapter 1?"})
	if strings.Contains(generic, "questions") || strings.Contains(generic, "corrected_text") {
		t.Errorf("expected a generic mock reply, got %q", generic)
	}
}

func TestParseQuizResponse_ValidJSON(t *testing.T) {
	raw := `Sure, here you go:` + "\n" + mockQuizResponse + "\nHope that helps!"
	result := ParseQuizResponse(raw)
	if !result.Success {
		t.Fatalf("expected success, raw=%q", result.RawReply)
	}
	if len(result.Questions) != 1 {
		t.Fatalf("len(Questions) = %d, want 1", len(result.Questions))
	}
	if len(result.Questions[0].Options) != 4 {
		t.Errorf("len(Options) = %d, want 4", len(result.Questions[0].Options))
	}
}

func TestParseQuizResponse_MalformedJSONNeverErrors(t *testing.T) {
	result := ParseQuizResponse("this is not json at all")
	if result.Success {
		t.Error("expected Success = false for unparseable input")
	}
	if result.RawReply == "" {
		t.Error("expected the raw reply to be preserved as a diagnostic")
	}
}

func TestParseQuizResponse_DropsQuestionsWithBadShape(t *testing.T) {
	raw := `{"questions": [
		{"question": "ok?", "options": ["a","b","c","d"], "correct_answer": 1, "explanation": "x"},
		{"question": "bad options", "options": ["a","b"], "correct_answer": 0, "explanation": "x"},
		{"question": "bad answer index", "options": ["a","b","c","d"], "correct_answer": 9, "explanation": "x"}
	]}`
	result := ParseQuizResponse(raw)
	if !result.Success {
		t.Fatal("expected success since one question is valid")
	}
	if len(result.Questions) != 1 {
		t.Errorf("len(Questions) = %d, want 1 (two malformed questions should be dropped)", len(result.Questions))
	}
}

func TestParseProofreadResponse_ValidJSON(t *testing.T) {
	result := ParseProofreadResponse(mockProofreadResponse)
	if !result.Success {
		t.Fatal("expected success")
	}
	if result.CorrectedText == "" {
		t.Error("expected a non-empty corrected text")
	}
	if len(result.Corrections) != 1 {
		t.Errorf("len(Corrections) = %d, want 1", len(result.Corrections))
	}
}

func TestParseProofreadResponse_MalformedJSONNeverErrors(t *testing.T) {
	result := ParseProofreadResponse("no json here")
	if result.Success {
		t.Error("expected Success = false")
	}
	if result.RawReply != "no json here" {
		t.Errorf("RawReply = %q, want original input preserved", result.RawReply)
	}
}
