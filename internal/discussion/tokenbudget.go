package discussion

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bookglebookgle/ai-core/internal/config"
	"github.com/bookglebookgle/ai-core/internal/model"
)

// charsPerToken holds korean/latin/mixed ratios for one tokenizer family.
type charsPerToken struct {
	korean float64
	latin  float64
	mixed  float64
}

// tokenRatios mirrors the teacher domain's per-provider estimation ratios;
// an exact tokenizer is preferred when the caller supplies one via
// TokenCounter.Exact.
var tokenRatios = map[config.TokenizerKind]charsPerToken{
	config.TokenizerOpenAI:    {korean: 2.5, latin: 4.0, mixed: 3.0},
	config.TokenizerAnthropic: {korean: 2.8, latin: 4.2, mixed: 3.2},
	config.TokenizerGemini:    {korean: 2.2, latin: 3.8, mixed: 2.8},
	config.TokenizerGeneric:   {korean: 2.5, latin: 4.0, mixed: 3.0},
}

// TokenCounter estimates token counts from character counts, using
// per-script ratios plus a 10% overhead. Exact, when set, is consulted
// first (e.g. a real tiktoken-equivalent) and the estimator is the fallback.
type TokenCounter struct {
	Kind  config.TokenizerKind
	Exact func(text string) (int, bool)
}

// NewTokenCounter builds a TokenCounter for the given tokenizer kind.
func NewTokenCounter(kind config.TokenizerKind) *TokenCounter {
	if _, ok := tokenRatios[kind]; !ok {
		kind = config.TokenizerGeneric
	}
	return &TokenCounter{Kind: kind}
}

// Count estimates the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.Exact != nil {
		if n, ok := c.Exact(text); ok {
			return n
		}
	}

	var korean, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hangul, r):
			korean++
		case unicode.IsLetter(r) && r <= unicode.MaxASCII:
			latin++
		}
	}

	ratios := tokenRatios[c.Kind]
	var ratio float64
	switch {
	case korean > latin:
		ratio = ratios.korean
	case latin > korean:
		ratio = ratios.latin
	default:
		ratio = ratios.mixed
	}

	base := float64(len([]rune(text))) / ratio
	overhead := base * 0.1
	if overhead < 1 {
		overhead = 1
	}
	return int(base + overhead)
}

// CountMessage counts a ChatMessage's content plus its "nickname: " prefix
// and a small fixed structural overhead.
func (c *TokenCounter) CountMessage(msg model.ChatMessage) int {
	const structureOverhead = 3
	return c.Count(msg.Content) + c.Count(msg.Nickname+": ") + structureOverhead
}

// ContextTokenBreakdown is the per-component token count of a
// ConversationContext.
type ContextTokenBreakdown struct {
	Messages     int
	BookContext  int
	Summary      int
	Participants int
	Metadata     int
}

// Total sums every component.
func (b ContextTokenBreakdown) Total() int {
	return b.Messages + b.BookContext + b.Summary + b.Participants + b.Metadata
}

// CountContext breaks down a ConversationContext's token usage by component.
func (c *TokenCounter) CountContext(ctx *model.ConversationContext) ContextTokenBreakdown {
	var b ContextTokenBreakdown
	for _, m := range ctx.RecentMessages {
		b.Messages += c.CountMessage(m)
	}
	for _, chunk := range ctx.BookContext {
		b.BookContext += c.Count(chunk.Content)
	}
	if ctx.Summary != nil {
		b.Summary = c.Count(*ctx.Summary)
	}
	b.Participants = c.Count(participantSummary(ctx.ParticipantStates))
	b.Metadata = c.Count(strings.Join(ctx.ActiveTopics, " "))
	return b
}

func participantSummary(states map[string]*model.ParticipantState) string {
	parts := make([]string, 0, len(states))
	for userID, st := range states {
		parts = append(parts, fmt.Sprintf("%s:%d msgs, %d questions", userID, st.MessageCount, st.QuestionsAsked))
	}
	return strings.Join(parts, "; ")
}

// ContextKind selects a budget allocation table.
type ContextKind string

const (
	ContextDiscussion ContextKind = "discussion"
	ContextQuiz       ContextKind = "quiz"
)

// BudgetAllocation is the recommended per-component token split for a
// total budget.
type BudgetAllocation struct {
	Messages     int
	BookContext  int
	Summary      int
	Participants int
	Metadata     int
}

// AllocateBudget splits totalBudget per the kind's fixed percentages:
// discussion is messages 40/book 35/summary 15/participants 5/metadata 5;
// quiz flips the weight toward book context: book 70/messages 20/summary 5/
// participants/metadata splitting the remainder.
func AllocateBudget(totalBudget int, kind ContextKind) BudgetAllocation {
	switch kind {
	case ContextQuiz:
		return BudgetAllocation{
			BookContext:  int(float64(totalBudget) * 0.70),
			Messages:     int(float64(totalBudget) * 0.20),
			Summary:      int(float64(totalBudget) * 0.05),
			Participants: int(float64(totalBudget) * 0.03),
			Metadata:     int(float64(totalBudget) * 0.02),
		}
	default:
		return BudgetAllocation{
			Messages:     int(float64(totalBudget) * 0.40),
			BookContext:  int(float64(totalBudget) * 0.35),
			Summary:      int(float64(totalBudget) * 0.15),
			Participants: int(float64(totalBudget) * 0.05),
			Metadata:     int(float64(totalBudget) * 0.05),
		}
	}
}

// OptimizationInfo records which strategies were applied while fitting a
// context into budget, for observability/debugging.
type OptimizationInfo struct {
	OriginalTokens  int
	FinalTokens     int
	Strategies      []string
	RemovedMessages int
	RemovedChunks   int
	SummaryCreated  bool
}

// OptimizeForBudget applies the optimization cascade in order until ctx
// fits within maxTokens, or the last-resort reduction has been applied:
//  1. drop lowest-ranked book chunks, keeping at least 1
//  2. drop oldest messages, always preserving the last preserveRecent
//  3. synthesize a summary for the dropped prefix (via summarize, which
//     itself falls back to a template when the LLM is unavailable)
//  4. last-resort: 1 book chunk + 1 message only
func (c *TokenCounter) OptimizeForBudget(ctx *model.ConversationContext, maxTokens, preserveRecent int, summarize func([]model.ChatMessage) string) OptimizationInfo {
	info := OptimizationInfo{}
	info.OriginalTokens = c.CountContext(ctx).Total()

	if info.OriginalTokens <= maxTokens {
		info.FinalTokens = info.OriginalTokens
		return info
	}

	total := info.OriginalTokens

	// Strategy 1: drop lowest-ranked (tail) book chunks, keep >=1.
	for total > maxTokens && len(ctx.BookContext) > 1 {
		last := ctx.BookContext[len(ctx.BookContext)-1]
		ctx.BookContext = ctx.BookContext[:len(ctx.BookContext)-1]
		total -= c.Count(last.Content)
		info.RemovedChunks++
		info.Strategies = appendOnce(info.Strategies, "reduce_book_context")
	}

	// Strategy 2: drop oldest messages, preserving the most recent preserveRecent.
	if preserveRecent < 0 {
		preserveRecent = 0
	}
	var dropped []model.ChatMessage
	for total > maxTokens && len(ctx.RecentMessages) > preserveRecent {
		oldest := ctx.RecentMessages[0]
		dropped = append(dropped, oldest)
		ctx.RecentMessages = ctx.RecentMessages[1:]
		total -= c.CountMessage(oldest)
		if st, ok := ctx.ParticipantStates[oldest.UserID]; ok && st.MessageCount > 0 {
			st.MessageCount--
		}
		info.RemovedMessages++
		info.Strategies = appendOnce(info.Strategies, "remove_old_messages")
	}

	// Strategy 3: summarize the dropped prefix, if strategy 2 dropped anything
	// and no summary has been attached yet.
	if total > maxTokens && ctx.Summary == nil && summarize != nil && len(dropped) > 0 {
		summary := summarize(dropped)
		ctx.Summary = &summary
		info.SummaryCreated = true
		info.Strategies = appendOnce(info.Strategies, "create_summary")
		total = c.CountContext(ctx).Total()
	}

	// Strategy 4: aggressive last-resort reduction.
	if total > maxTokens {
		if len(ctx.BookContext) > 1 {
			ctx.BookContext = ctx.BookContext[:1]
			info.Strategies = appendOnce(info.Strategies, "aggressive_book_reduction")
		}
		if len(ctx.RecentMessages) > 1 {
			ctx.RecentMessages = ctx.RecentMessages[len(ctx.RecentMessages)-1:]
			info.Strategies = appendOnce(info.Strategies, "aggressive_message_reduction")
		}
		total = c.CountContext(ctx).Total()
	}

	info.FinalTokens = total
	return info
}

func appendOnce(list []string, item string) []string {
	for _, s := range list {
		if s == item {
			return list
		}
	}
	return append(list, item)
}
