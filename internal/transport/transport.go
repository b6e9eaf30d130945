// Package transport is the REST test facade: thin JSON handlers over the
// core operations (vector retrieval, the LLM gateway's structured-output
// call sites), for manual poking and smoke-testing without a full gRPC
// client. None of this package is on the path of the real streaming RPCs.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bookglebookgle/ai-core/internal/config"
	"github.com/bookglebookgle/ai-core/internal/llmgateway"
	"github.com/bookglebookgle/ai-core/internal/model"
)

// DBPinger is the interface for checking database connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// VectorRetriever is the seam into the vector index for /test/rag.
type VectorRetriever interface {
	Query(ctx context.Context, meetingID, queryText string, k int, filter model.SearchFilter) ([]model.SearchResult, error)
}

// Completer is the seam into the LLM gateway for /test/quiz and /test/proofread.
type Completer interface {
	Complete(ctx context.Context, req llmgateway.CompletionRequest) (llmgateway.CompletionResponse, error)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// Health reports server liveness and database reachability.
// GET /health.
func Health(db DBPinger, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		dbStatus := "connected"
		httpStatus := http.StatusOK

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				status = "degraded"
				dbStatus = "disconnected"
				httpStatus = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, httpStatus, map[string]string{
			"status":   status,
			"version":  version,
			"database": dbStatus,
		})
	}
}

// StatusResponse is the payload returned by /status.
type StatusResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	LLMProvider string `json:"llmProvider"`
}

// Status reports the process's current runtime posture.
// GET /status.
func Status(cfg *config.Config, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{
			Status:      "running",
			Version:     version,
			Environment: cfg.Environment,
			LLMProvider: string(cfg.LLMProvider),
		})
	}
}

// ConfigResponse is the non-secret subset of Config exposed by /config.
type ConfigResponse struct {
	Environment       string `json:"environment"`
	LLMProvider       string `json:"llmProvider"`
	LLMModel          string `json:"llmModel"`
	TokenizerKind     string `json:"tokenizerKind"`
	TokenBudget       int    `json:"tokenBudget"`
	ContextWindowSize int    `json:"contextWindowSize"`
	MaxBookChunks     int    `json:"maxBookChunks"`
	SessionTTLHours   int    `json:"sessionTtlHours"`
	CleanupEnabled    bool   `json:"cleanupEnabled"`
}

// Config exposes the non-secret configuration the frontend/test tooling
// needs to reason about current server behavior. Credentials (DatabaseURL,
// RedisPassword, API keys) are never included.
func Config(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ConfigResponse{
			Environment:       cfg.Environment,
			LLMProvider:       string(cfg.LLMProvider),
			LLMModel:          cfg.LLMModel,
			TokenizerKind:     string(cfg.TokenizerKind),
			TokenBudget:       cfg.TokenBudget,
			ContextWindowSize: cfg.ContextWindowSize,
			MaxBookChunks:     cfg.MaxBookChunks,
			SessionTTLHours:   cfg.SessionTTLHours,
			CleanupEnabled:    cfg.CleanupEnabled,
		})
	}
}

// RAGTestRequest is the body for POST /test/rag.
type RAGTestRequest struct {
	MeetingID  string `json:"meetingId"`
	Query      string `json:"query"`
	DocumentID string `json:"documentId,omitempty"`
	K          int    `json:"k,omitempty"`
}

// RAGTest runs a raw vector-index query, bypassing the discussion engine,
// for smoke-testing retrieval quality against a seeded collection.
// POST /test/rag.
func RAGTest(retriever VectorRetriever) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RAGTestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.MeetingID == "" || req.Query == "" {
			writeError(w, http.StatusBadRequest, "meetingId and query are required")
			return
		}
		k := req.K
		if k <= 0 {
			k = 5
		}

		results, err := retriever.Query(r.Context(), req.MeetingID, req.Query, k, model.SearchFilter{DocumentID: req.DocumentID})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
	}
}

// QuizTestRequest is the body for POST /test/quiz.
type QuizTestRequest struct {
	Passage      string `json:"passage"`
	NumQuestions int    `json:"numQuestions,omitempty"`
	Provider     string `json:"provider,omitempty"`
}

// QuizTest drives the LLM gateway with a quiz-generation prompt and parses
// the structured result. POST /test/quiz.
func QuizTest(completer Completer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QuizTestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Passage == "" {
			writeError(w, http.StatusBadRequest, "passage is required")
			return
		}
		n := req.NumQuestions
		if n <= 0 {
			n = 3
		}

		resp, err := completer.Complete(r.Context(), llmgateway.CompletionRequest{
			System:      "You generate multiple-choice reading comprehension quizzes. Reply with JSON only.",
			Prompt:      buildQuizPrompt(req.Passage, n),
			MaxTokens:   800,
			Temperature: 0.4,
			Provider:    req.Provider,
		})
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		result := llmgateway.ParseQuizResponse(resp.Text)
		writeJSON(w, http.StatusOK, result)
	}
}

func buildQuizPrompt(passage string, n int) string {
	return "Passage:\n" + passage + "\n\nGenerate " + strconv.Itoa(n) +
		` multiple-choice questions as JSON: {"questions":[{"question":"","options":["","","",""],"correct_answer":0,"explanation":""}]}`
}

// ProofreadTestRequest is the body for POST /test/proofread.
type ProofreadTestRequest struct {
	Text     string `json:"text"`
	Provider string `json:"provider,omitempty"`
}

// ProofreadTest drives the LLM gateway with a proofreading prompt and
// parses the structured result. POST /test/proofread.
func ProofreadTest(completer Completer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProofreadTestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Text == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}

		resp, err := completer.Complete(r.Context(), llmgateway.CompletionRequest{
			System: "You proofread text for grammar and spelling. Reply with JSON only: " +
				`{"corrected_text":"","corrections":[{"original":"","corrected":"","reason":""}],"confidence":0.0}`,
			Prompt:      req.Text,
			MaxTokens:   600,
			Temperature: 0.2,
			Provider:    req.Provider,
		})
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		result := llmgateway.ParseProofreadResponse(resp.Text)
		writeJSON(w, http.StatusOK, result)
	}
}
