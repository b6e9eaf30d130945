package llmgateway

import (
	"context"

	"github.com/bookglebookgle/ai-core/internal/discussion"
)

// DiscussionAdapter satisfies discussion.LLMProvider by delegating to a
// Gateway. Kept as a distinct, tiny type rather than having Gateway import
// the discussion package directly, so llmgateway has no dependency on any
// one caller's request/response shape.
type DiscussionAdapter struct {
	gateway *Gateway
}

// NewDiscussionAdapter wraps gateway for use as a discussion.LLMProvider.
func NewDiscussionAdapter(gateway *Gateway) *DiscussionAdapter {
	return &DiscussionAdapter{gateway: gateway}
}

func (a *DiscussionAdapter) Complete(ctx context.Context, req discussion.CompletionRequest) (discussion.CompletionResponse, error) {
	resp, err := a.gateway.Complete(ctx, CompletionRequest{
		Prompt:      req.Prompt,
		System:      req.System,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return discussion.CompletionResponse{}, err
	}
	return discussion.CompletionResponse{Text: resp.Text}, nil
}
