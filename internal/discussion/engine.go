package discussion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookglebookgle/ai-core/internal/apperr"
	"github.com/bookglebookgle/ai-core/internal/config"
	"github.com/bookglebookgle/ai-core/internal/model"
)

// CompletionRequest is one call to an LLMProvider.
type CompletionRequest struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is an LLMProvider's reply.
type CompletionResponse struct {
	Text string
}

// LLMProvider is the seam the discussion engine calls through to generate
// moderator replies and abstractive summaries. internal/llmgateway supplies
// the concrete implementation; tests supply a fake.
type LLMProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// VectorRetriever is the seam into the per-meeting vector index, satisfied
// by internal/vectorindex.Manager.Query.
type VectorRetriever interface {
	Query(ctx context.Context, meetingID, queryText string, k int, filter model.SearchFilter) ([]model.SearchResult, error)
}

const (
	defaultWindowSize     = 20
	defaultPreserveRecent = 2
	defaultBookContextK   = 3
)

// Engine runs the moderator-turn algorithm: assemble context, fit it to
// budget, call the LLM, persist the updated session.
type Engine struct {
	store      SessionStore
	retriever  VectorRetriever
	llm        LLMProvider
	summarizer *Summarizer
	counter    *TokenCounter
	maxTokens  int
	log        *slog.Logger
}

// New builds an Engine. maxContextTokens is the hard ceiling a single
// moderator turn's assembled context must fit within.
func New(store SessionStore, retriever VectorRetriever, llm LLMProvider, tokenizer config.TokenizerKind, maxContextTokens int, log *slog.Logger) *Engine {
	return &Engine{
		store:      store,
		retriever:  retriever,
		llm:        llm,
		summarizer: NewSummarizer(llm),
		counter:    NewTokenCounter(tokenizer),
		maxTokens:  maxContextTokens,
		log:        log,
	}
}

// StartDiscussion creates a new session for a meeting/document pair.
func (e *Engine) StartDiscussion(ctx context.Context, meetingID, documentID string, participants []model.Participant) (*model.DiscussionSession, error) {
	session := &model.DiscussionSession{
		SessionID:      uuid.NewString(),
		MeetingID:      meetingID,
		DocumentID:     documentID,
		StartedAt:      now(),
		LastActivityAt: now(),
		ChatbotActive:  true,
		Participants:   participants,
	}
	if err := e.store.Start(ctx, session); err != nil {
		return nil, fmt.Errorf("start discussion: %w", err)
	}
	e.log.Info("[discussion-engine] session started", "sessionId", session.SessionID, "meetingId", meetingID)
	return session, nil
}

// PostMessage runs one moderator turn for an incoming chat message: fetch
// the session, decide whether the moderator should respond, assemble and
// budget context, optionally call the LLM, then persist. A session that
// doesn't exist or isn't active yields an empty turn, not an error — posting
// to a session the caller merely lost the race to end is not exceptional.
func (e *Engine) PostMessage(ctx context.Context, sessionID string, msg model.ChatMessage) (*model.ModeratorTurn, error) {
	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return &model.ModeratorTurn{}, nil
		}
		return nil, fmt.Errorf("post message: %w", err)
	}
	if !session.Active() {
		return &model.ModeratorTurn{}, nil
	}

	convCtx := &model.ConversationContext{
		SessionID:  sessionID,
		WindowSize: defaultWindowSize,
	}

	history, err := e.store.RecentMessages(ctx, sessionID)
	if err != nil {
		e.log.Warn("[discussion-engine] failed to load message history", "sessionId", sessionID, "err", err)
	}
	for _, m := range history {
		convCtx.AddMessage(m)
	}
	convCtx.AddMessage(msg)
	convCtx.ActiveTopics = ExtractTopics(convCtx.RecentMessages, 10)

	change := DetectTopicChange(convCtx.RecentMessages, defaultComparisonWindow)
	requiresModeration := msg.Type == model.MessageUser && change.TopicChanged

	bookContext, err := e.retrieveBookContext(ctx, session, msg.Content)
	if err != nil {
		e.log.Warn("[discussion-engine] book context retrieval failed", "sessionId", sessionID, "err", err)
	}
	convCtx.BookContext = bookContext

	info := e.counter.OptimizeForBudget(convCtx, e.maxTokens, defaultPreserveRecent, e.summarizer.SummarizeForBudget(ctx))
	if len(info.Strategies) > 0 {
		e.log.Info("[discussion-engine] context optimized", "sessionId", sessionID, "strategies", info.Strategies,
			"originalTokens", info.OriginalTokens, "finalTokens", info.FinalTokens)
	}

	turn := &model.ModeratorTurn{
		SuggestedTopics:    convCtx.ActiveTopics,
		RequiresModeration: requiresModeration,
	}

	if e.shouldRespond(msg, requiresModeration) {
		reply, err := e.generateReply(ctx, convCtx)
		if err != nil {
			e.log.Error("[discussion-engine] reply generation failed", "sessionId", sessionID, "err", err)
		} else {
			turn.AIResponse = &reply
		}
	}

	if err := e.store.AppendMessage(ctx, sessionID, msg, defaultWindowSize); err != nil {
		e.log.Warn("[discussion-engine] failed to persist message to rolling window", "sessionId", sessionID, "err", err)
	}

	session.MessageCount++
	session.LastActivityAt = now()
	if err := e.store.Save(ctx, session); err != nil {
		e.log.Warn("[discussion-engine] failed to persist session", "sessionId", sessionID, "err", err)
	}

	return turn, nil
}

// shouldRespond decides whether the moderator speaks this turn: always on
// a direct question, otherwise only when a topic shift needs acknowledging.
func (e *Engine) shouldRespond(msg model.ChatMessage, requiresModeration bool) bool {
	if msg.Type != model.MessageUser {
		return false
	}
	return requiresModeration || containsQuestion(msg.Content)
}

func containsQuestion(s string) bool {
	for _, r := range s {
		if r == '?' || r == '？' {
			return true
		}
	}
	return false
}

func (e *Engine) retrieveBookContext(ctx context.Context, session *model.DiscussionSession, queryText string) ([]model.SearchResult, error) {
	if e.retriever == nil {
		return nil, nil
	}
	filter := model.SearchFilter{DocumentID: session.DocumentID}
	return e.retriever.Query(ctx, session.MeetingID, queryText, defaultBookContextK, filter)
}

func (e *Engine) generateReply(ctx context.Context, convCtx *model.ConversationContext) (string, error) {
	if e.llm == nil {
		return "", apperr.New(apperr.Unavailable, "no LLM provider configured")
	}
	resp, err := e.llm.Complete(ctx, CompletionRequest{
		Prompt:      buildModeratorPrompt(convCtx),
		System:      "You are a friendly, concise book-club discussion facilitator. Steer the conversation toward the book, invite quiet participants to speak, cite the provided passages, and keep replies under 100 characters.",
		MaxTokens:   200,
		Temperature: 0.6,
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return resp.Text, nil
}

func buildModeratorPrompt(convCtx *model.ConversationContext) string {
	prompt := ""
	if convCtx.Summary != nil {
		prompt += "Earlier discussion summary: " + *convCtx.Summary + "\n\n"
	}
	if len(convCtx.BookContext) > 0 {
		prompt += "Relevant book passages:\n"
		for _, r := range convCtx.BookContext {
			prompt += "- " + r.Content + "\n"
		}
		prompt += "\n"
	}
	prompt += "Recent messages:\n"
	for _, m := range convCtx.RecentMessages {
		prompt += m.Nickname + ": " + m.Content + "\n"
	}
	return prompt
}

// EndDiscussion deactivates and removes a session. Idempotent: ending a
// session that doesn't exist (or was already ended) succeeds.
func (e *Engine) EndDiscussion(ctx context.Context, sessionID string) error {
	if err := e.store.End(ctx, sessionID); err != nil {
		return fmt.Errorf("end discussion: %w", err)
	}
	e.log.Info("[discussion-engine] session ended", "sessionId", sessionID)
	return nil
}

// ActiveSessionsFor lists sessions registered against a meeting.
func (e *Engine) ActiveSessionsFor(ctx context.Context, meetingID string) ([]string, error) {
	return e.store.ActiveSessionsFor(ctx, meetingID)
}
