package llmgateway

import (
	"context"
	"testing"

	"github.com/bookglebookgle/ai-core/internal/discussion"
)

func TestDiscussionAdapter_DelegatesToGateway(t *testing.T) {
	primary := &fakeProvider{name: "primary", response: "moderator reply"}
	gateway := New(map[string]Provider{"primary": primary}, []string{"primary"}, testLog())
	adapter := NewDiscussionAdapter(gateway)

	resp, err := adapter.Complete(context.Background(), discussion.CompletionRequest{
		Prompt:    "what should we discuss next",
		MaxTokens: 200,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "moderator reply" {
		t.Errorf("Text = %q, want %q", resp.Text, "moderator reply")
	}
	if primary.lastReq.Prompt != "what should we discuss next" {
		t.Errorf("prompt not forwarded: %q", primary.lastReq.Prompt)
	}
}

var _ discussion.LLMProvider = (*DiscussionAdapter)(nil)
