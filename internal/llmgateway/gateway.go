// Package llmgateway is the single seam every LLM-calling component in this
// repo talks through: a pluggable Provider abstraction, a deterministic mock
// mode for test/offline wiring, and tolerant structured-output parsing for
// the quiz and proofreading call sites.
package llmgateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bookglebookgle/ai-core/internal/apperr"
	"github.com/bookglebookgle/ai-core/internal/config"
)

// CompletionRequest is one call through the gateway. Provider, if set,
// overrides the gateway's configured precedence for this call only.
type CompletionRequest struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
	Provider    string
}

// CompletionResponse is a gateway call's result.
type CompletionResponse struct {
	Text     string
	Provider string
}

// Provider abstracts one concrete LLM backend. internal/gcpclient-style
// adapters (Vertex AI, an OpenAI-compatible BYOLLM endpoint) and the mock
// provider all implement this.
type Provider interface {
	Name() string
	GenerateContent(ctx context.Context, req CompletionRequest) (string, error)
}

// Gateway dispatches completion requests to a named, precedence-ordered set
// of providers. Resolution order: explicit req.Provider, then the
// configured precedence list, in order.
type Gateway struct {
	providers  map[string]Provider
	precedence []string
	log        *slog.Logger
}

// New builds a Gateway. providers maps a provider name to its
// implementation; precedence is the default resolution order when a request
// doesn't name one. If providers is empty, every call resolves to the mock
// provider (spec's "at least one must be configured or the gateway returns
// deterministic mock responses").
func New(providers map[string]Provider, precedence []string, log *slog.Logger) *Gateway {
	if len(providers) == 0 {
		providers = map[string]Provider{string(config.ProviderMock): NewMockProvider()}
		precedence = []string{string(config.ProviderMock)}
	}
	return &Gateway{providers: providers, precedence: precedence, log: log}
}

// Complete resolves a provider and runs the request. Fallback to mock on a
// real provider's failure is deliberately NOT automatic: per spec §4.6 the
// default is to surface the error so callers can retry.
func (g *Gateway) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	provider, err := g.resolve(req.Provider)
	if err != nil {
		return CompletionResponse{}, err
	}

	text, err := provider.GenerateContent(ctx, req)
	if err != nil {
		return CompletionResponse{}, apperr.Wrap(apperr.Unavailable, fmt.Errorf("llmgateway: %s: %w", provider.Name(), err))
	}
	return CompletionResponse{Text: text, Provider: provider.Name()}, nil
}

func (g *Gateway) resolve(requested string) (Provider, error) {
	if requested != "" {
		p, ok := g.providers[requested]
		if !ok {
			return nil, apperr.New(apperr.InvalidArgument, fmt.Sprintf("llmgateway: unknown provider %q", requested))
		}
		return p, nil
	}
	for _, name := range g.precedence {
		if p, ok := g.providers[name]; ok {
			return p, nil
		}
	}
	return nil, apperr.New(apperr.Unavailable, "llmgateway: no provider configured")
}
