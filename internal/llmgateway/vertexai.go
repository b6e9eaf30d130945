package llmgateway

import (
	"context"

	"github.com/bookglebookgle/ai-core/internal/gcpclient"
)

// vertexGenAI is the subset of gcpclient.GenAIAdapter this package depends
// on, narrowed so tests can substitute a fake without dialing Vertex AI.
type vertexGenAI interface {
	GenerateContent(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// VertexAIProvider adapts gcpclient's Vertex AI Gemini client to Provider.
// GenAIAdapter's GenerateContent takes only the system and user prompts, so
// the request's MaxTokens and Temperature are not forwarded; GenAIAdapter
// sets no generation settings on either of its paths, and Vertex's model
// defaults apply.
type VertexAIProvider struct {
	name   string
	client vertexGenAI
}

// NewVertexAIProvider wraps an already-dialed GenAI adapter as a Provider.
func NewVertexAIProvider(client *gcpclient.GenAIAdapter) *VertexAIProvider {
	return &VertexAIProvider{name: "vertexai", client: client}
}

func (p *VertexAIProvider) Name() string { return p.name }

func (p *VertexAIProvider) GenerateContent(ctx context.Context, req CompletionRequest) (string, error) {
	return p.client.GenerateContent(ctx, req.System, req.Prompt)
}
