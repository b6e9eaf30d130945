package discussion

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bookglebookgle/ai-core/internal/model"
)

// stopWords excludes common function words from topic extraction. Not
// exhaustive, just enough to keep single-word "topics" meaningful.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "this": true, "that": true, "it": true, "i": true, "you": true,
	"we": true, "they": true, "what": true, "how": true, "do": true, "does": true,
	"did": true, "can": true, "could": true, "would": true, "should": true,
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

const minTopicWordLen = 2

const defaultComparisonWindow = 3

// ExtractTopics returns the top-n most frequent non-stopword tokens across
// messages, lowercased. Ties break by first appearance.
func ExtractTopics(messages []model.ChatMessage, n int) []string {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, msg := range messages {
		for _, w := range wordPattern.FindAllString(strings.ToLower(msg.Content), -1) {
			if len([]rune(w)) < minTopicWordLen || stopWords[w] {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if n > 0 && len(order) > n {
		order = order[:n]
	}
	return order
}

// DetectTopicChange compares the token-set of the latest comparisonWindow
// messages against the preceding same-sized window using Jaccard
// similarity. A change is signalled when similarity < 0.3; confidence is
// 1 - similarity. Returns no change when there isn't a full pair of
// windows to compare yet.
func DetectTopicChange(messages []model.ChatMessage, comparisonWindow int) model.TopicChangeResult {
	if comparisonWindow <= 0 {
		comparisonWindow = defaultComparisonWindow
	}
	if len(messages) < comparisonWindow*2 {
		return model.TopicChangeResult{TopicChanged: false, Confidence: 0}
	}

	latest := messages[len(messages)-comparisonWindow:]
	preceding := messages[len(messages)-comparisonWindow*2 : len(messages)-comparisonWindow]

	latestTopics := ExtractTopics(latest, 0)
	precedingTopics := ExtractTopics(preceding, 0)
	if len(latestTopics) == 0 || len(precedingTopics) == 0 {
		return model.TopicChangeResult{TopicChanged: false, Confidence: 0}
	}

	similarity := jaccard(precedingTopics, latestTopics)
	return model.TopicChangeResult{
		TopicChanged: similarity < 0.3,
		Confidence:   1 - similarity,
	}
}

func jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}
