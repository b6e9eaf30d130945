package llmgateway

import (
	"encoding/json"
	"strings"
)

// Correction is one flagged change in a ProofreadResult.
type Correction struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Reason    string `json:"reason"`
}

// ProofreadResult is the parsed shape of a proofreading completion.
type ProofreadResult struct {
	Success       bool         `json:"success"`
	CorrectedText string       `json:"corrected_text"`
	Corrections   []Correction `json:"corrections"`
	Confidence    float64      `json:"confidence"`
	RawReply      string       `json:"rawReply,omitempty"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// QuizResult is the parsed shape of a quiz-generation completion.
type QuizResult struct {
	Success   bool           `json:"success"`
	Questions []QuizQuestion `json:"questions"`
	RawReply  string         `json:"rawReply,omitempty"`
}

// extractJSONObject finds the first top-level {...} block in s by brace
// counting (tolerant of prose before/after it, which LLMs routinely emit
// despite being asked for JSON only).
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseProofreadResponse tolerantly parses a proofreading completion. Parse
// failure never errors: it returns {success:false} carrying the raw reply
// as a diagnostic field, per spec §4.6.
func ParseProofreadResponse(raw string) ProofreadResult {
	block, ok := extractJSONObject(raw)
	if !ok {
		return ProofreadResult{Success: false, RawReply: raw}
	}
	var parsed struct {
		CorrectedText string       `json:"corrected_text"`
		Corrections   []Correction `json:"corrections"`
		Confidence    float64      `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return ProofreadResult{Success: false, RawReply: raw}
	}
	return ProofreadResult{
		Success:       true,
		CorrectedText: parsed.CorrectedText,
		Corrections:   parsed.Corrections,
		Confidence:    parsed.Confidence,
	}
}

// ParseQuizResponse tolerantly parses a quiz-generation completion, dropping
// any question whose correct_answer or options[] shape is invalid rather
// than failing the whole batch.
func ParseQuizResponse(raw string) QuizResult {
	block, ok := extractJSONObject(raw)
	if !ok {
		return QuizResult{Success: false, RawReply: raw}
	}
	var parsed struct {
		Questions []QuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return QuizResult{Success: false, RawReply: raw}
	}

	valid := make([]QuizQuestion, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		if len(q.Options) != 4 {
			continue
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer > 3 {
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return QuizResult{Success: false, RawReply: raw}
	}
	return QuizResult{Success: true, Questions: valid}
}
