package llmgateway

import (
	"context"
	"errors"
	"testing"
)

type fakeVertexClient struct {
	gotSystem, gotPrompt string
	response             string
	err                  error
}

func (f *fakeVertexClient) GenerateContent(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.gotSystem, f.gotPrompt = systemPrompt, userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestVertexAIProvider_ForwardsPromptAndSystem(t *testing.T) {
	fake := &fakeVertexClient{response: "vertex says hi"}
	p := &VertexAIProvider{name: "vertexai", client: fake}

	text, err := p.GenerateContent(context.Background(), CompletionRequest{
		System: "be terse",
		Prompt: "what happens in chapter 2",
	})
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	if text != "vertex says hi" {
		t.Errorf("text = %q", text)
	}
	if fake.gotSystem != "be terse" || fake.gotPrompt != "what happens in chapter 2" {
		t.Errorf("unexpected forwarded args: system=%q prompt=%q", fake.gotSystem, fake.gotPrompt)
	}
	if p.Name() != "vertexai" {
		t.Errorf("Name() = %q, want vertexai", p.Name())
	}
}

func TestVertexAIProvider_SurfacesError(t *testing.T) {
	fake := &fakeVertexClient{err: errors.New("quota exceeded")}
	p := &VertexAIProvider{name: "vertexai", client: fake}

	_, err := p.GenerateContent(context.Background(), CompletionRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected the underlying error to surface")
	}
}
