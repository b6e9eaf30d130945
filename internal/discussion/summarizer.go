package discussion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bookglebookgle/ai-core/internal/model"
)

// SummaryType selects what a summary emphasizes.
type SummaryType string

const (
	SummaryBrief       SummaryType = "brief"
	SummaryDetailed    SummaryType = "detailed"
	SummaryTopical     SummaryType = "topical"
	SummaryParticipant SummaryType = "participant"
	SummaryTimeline    SummaryType = "timeline"
)

// SummaryStrategy selects how a summary is produced.
type SummaryStrategy string

const (
	StrategyExtractive  SummaryStrategy = "extractive"
	StrategyAbstractive SummaryStrategy = "abstractive"
	StrategyHybrid      SummaryStrategy = "hybrid"
	StrategyTemplate    SummaryStrategy = "template"
)

// conversationAnalysis is the shared statistics every summary strategy
// builds from before rendering its own text.
type conversationAnalysis struct {
	participantCount int
	dominant         []string // userIDs ranked by message count desc
	topics           []string
	timeSpan         time.Duration
	questionCount    int
}

func analyzeConversation(messages []model.ChatMessage) conversationAnalysis {
	if len(messages) == 0 {
		return conversationAnalysis{}
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	questions := 0
	for _, m := range messages {
		if counts[m.UserID] == 0 {
			order = append(order, m.UserID)
		}
		counts[m.UserID]++
		if strings.ContainsAny(m.Content, "?？") {
			questions++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	return conversationAnalysis{
		participantCount: len(order),
		dominant:         order,
		topics:           ExtractTopics(messages, 5),
		timeSpan:         messages[len(messages)-1].Timestamp.Sub(messages[0].Timestamp),
		questionCount:    questions,
	}
}

// Summarizer produces a ConversationContext.Summary for the prefix of
// messages being dropped by budget optimization, or on demand for a
// standalone summary request.
type Summarizer struct {
	llm LLMProvider // optional; nil forces extractive/template strategies
}

// NewSummarizer builds a Summarizer. llm may be nil, in which case
// abstractive/hybrid requests fall back to extractive or template summaries.
func NewSummarizer(llm LLMProvider) *Summarizer {
	return &Summarizer{llm: llm}
}

// Summarize renders a summary of messages per summaryType/strategy. It
// never returns an error: when the LLM is absent or fails, abstractive
// falls back to an extractive summary and hybrid to a template summary,
// so a dropped-message summary never blocks a moderator turn.
func (s *Summarizer) Summarize(ctx context.Context, messages []model.ChatMessage, summaryType SummaryType, strategy SummaryStrategy, maxTokens int) string {
	if len(messages) == 0 {
		return "No prior conversation."
	}

	analysis := analyzeConversation(messages)

	switch strategy {
	case StrategyAbstractive:
		if s.llm != nil {
			if text, err := s.abstractive(ctx, messages, summaryType, maxTokens, analysis); err == nil {
				return text
			}
		}
		return s.extractive(messages, summaryType, analysis)
	case StrategyExtractive:
		return s.extractive(messages, summaryType, analysis)
	case StrategyTemplate:
		return s.template(messages, summaryType, analysis)
	default: // hybrid: template followed by the abstractive summary
		templ := s.template(messages, summaryType, analysis)
		if s.llm != nil {
			if text, err := s.abstractive(ctx, messages, summaryType, maxTokens, analysis); err == nil {
				return templ + " " + text
			}
		}
		return templ
	}
}

// SummarizeForBudget is the adapter OptimizeForBudget calls: always uses the
// hybrid strategy at a fixed modest token budget, since a dropped-prefix
// summary only needs to preserve gist, not detail.
func (s *Summarizer) SummarizeForBudget(ctx context.Context) func([]model.ChatMessage) string {
	return func(messages []model.ChatMessage) string {
		return s.Summarize(ctx, messages, SummaryBrief, StrategyHybrid, 150)
	}
}

func (s *Summarizer) abstractive(ctx context.Context, messages []model.ChatMessage, summaryType SummaryType, maxTokens int, analysis conversationAnalysis) (string, error) {
	prompt := buildSummaryPrompt(messages, summaryType, analysis)
	resp, err := s.llm.Complete(ctx, CompletionRequest{
		Prompt:      prompt,
		System:      "You summarize book-club discussions concisely and factually.",
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("abstractive summary: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func buildSummaryPrompt(messages []model.ChatMessage, summaryType SummaryType, analysis conversationAnalysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize the following %d-message discussion", len(messages))
	if len(analysis.topics) > 0 {
		fmt.Fprintf(&sb, " about %s", strings.Join(analysis.topics, ", "))
	}
	switch summaryType {
	case SummaryParticipant:
		sb.WriteString(", focusing on who contributed what")
	case SummaryTimeline:
		sb.WriteString(", in chronological order")
	case SummaryDetailed:
		sb.WriteString(", covering every distinct point raised")
	}
	sb.WriteString(":\n\n")
	for _, m := range messages {
		fmt.Fprintf(&sb, "%s: %s\n", m.Nickname, m.Content)
	}
	return sb.String()
}

// extractive picks the longest (heuristically most informative) messages up
// to a small cap and joins them, cheap and deterministic.
func (s *Summarizer) extractive(messages []model.ChatMessage, summaryType SummaryType, analysis conversationAnalysis) string {
	const maxSentences = 3

	ranked := make([]model.ChatMessage, len(messages))
	copy(ranked, messages)
	sort.SliceStable(ranked, func(i, j int) bool { return len(ranked[i].Content) > len(ranked[j].Content) })
	if len(ranked) > maxSentences {
		ranked = ranked[:maxSentences]
	}
	// restore chronological order among the picked messages
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Timestamp.Before(ranked[j].Timestamp) })

	var parts []string
	for _, m := range ranked {
		parts = append(parts, fmt.Sprintf("%s said: %s", m.Nickname, m.Content))
	}
	return strings.Join(parts, " ")
}

// template renders a deterministic, LLM-free summary from the analysis —
// the emergency fallback that always succeeds.
func (s *Summarizer) template(messages []model.ChatMessage, summaryType SummaryType, analysis conversationAnalysis) string {
	switch summaryType {
	case SummaryParticipant:
		return fmt.Sprintf("%d participants exchanged %d messages; most active: %s.",
			analysis.participantCount, len(messages), strings.Join(firstN(analysis.dominant, 2), ", "))
	case SummaryTimeline:
		return fmt.Sprintf("Discussion spanned %s across %d messages, starting with %q.",
			analysis.timeSpan.Round(time.Minute), len(messages), truncate(messages[0].Content, 60))
	case SummaryTopical:
		if len(analysis.topics) == 0 {
			return fmt.Sprintf("%d messages exchanged with no clear dominant topic.", len(messages))
		}
		return fmt.Sprintf("Discussion centered on: %s.", strings.Join(analysis.topics, ", "))
	case SummaryDetailed:
		return fmt.Sprintf("%d messages from %d participants over %s, %d of them questions, touching on: %s.",
			len(messages), analysis.participantCount, analysis.timeSpan.Round(time.Minute), analysis.questionCount, strings.Join(analysis.topics, ", "))
	default: // brief
		return fmt.Sprintf("%d messages exchanged among %d participants about %s.",
			len(messages), analysis.participantCount, strings.Join(firstN(analysis.topics, 3), ", "))
	}
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
