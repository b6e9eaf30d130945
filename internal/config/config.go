// Package config loads the flat, typed settings struct this service runs
// from. Loading happens once at startup in cmd/server/main.go; the resulting
// *Config is passed to every constructor that needs it, never read from a
// package-level global.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type LLMProvider string

const (
	ProviderOpenRouter LLMProvider = "openrouter"
	ProviderVertexAI   LLMProvider = "vertexai"
	ProviderMock       LLMProvider = "mock"
)

type TokenizerKind string

const (
	TokenizerGeneric TokenizerKind = "generic"
	TokenizerOpenAI  TokenizerKind = "openai"
	TokenizerAnthropic TokenizerKind = "anthropic"
	TokenizerGemini  TokenizerKind = "gemini"
)

// Config holds all application configuration, immutable after Load() returns.
type Config struct {
	Environment string
	Port        int
	FrontendURL string

	// Vector store (backs the Vector Index Manager's concrete pgx adapter).
	DatabaseURL      string
	DatabaseMaxConns int

	// OCR Ingestion Pipeline.
	OCRWorkerEndpoint     string
	OCRBaseTimeoutSeconds int
	OCRRetryAttempts      int
	OCRRetryDelaySeconds  int
	OCRMaxUploadBytes     int64
	OCRChunkBytes         int

	// Discussion Session Engine.
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	SessionTTLHours   int
	ContextWindowSize int
	MaxBookChunks     int
	TokenBudget       int
	TokenizerKind     TokenizerKind

	// Meeting Lifecycle Coordinator.
	CleanupEnabled           bool
	CleanupDelaySeconds      int
	CleanupRetryAttempts     int
	CleanupRetryDelaySeconds int

	// LLM Gateway.
	LLMProvider    LLMProvider
	LLMModel       string
	MockResponses  bool
	EmbeddingModel string
}

// Load reads configuration from environment variables. OCRWorkerEndpoint and
// DatabaseURL are mandatory (startup fails fast, exit code 1, per spec §6);
// everything else has a sensible default.
func Load() (*Config, error) {
	ocrEndpoint := os.Getenv("OCR_WORKER_ENDPOINT")
	if ocrEndpoint == "" {
		return nil, fmt.Errorf("config.Load: OCR_WORKER_ENDPOINT is required")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	cfg := &Config{
		Environment: envStr("APP_ENV", "development"),
		Port:        envInt("SERVER_PORT", 50052),
		FrontendURL: envStr("FRONTEND_URL", "http://localhost:3000"),

		DatabaseURL:      dbURL,
		DatabaseMaxConns: envInt("DATABASE_MAX_CONNS", 10),

		OCRWorkerEndpoint:     ocrEndpoint,
		OCRBaseTimeoutSeconds: envInt("OCR_BASE_TIMEOUT_SECONDS", 30),
		OCRRetryAttempts:      envInt("OCR_RETRY_ATTEMPTS", 3),
		OCRRetryDelaySeconds:  envInt("OCR_RETRY_DELAY_SECONDS", 2),
		OCRMaxUploadBytes:     int64(envInt("OCR_MAX_UPLOAD_MB", 100)) * 1024 * 1024,
		OCRChunkBytes:         envInt("OCR_CHUNK_BYTES", 2*1024*1024),

		RedisAddr:         envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     envStr("REDIS_PASSWORD", ""),
		RedisDB:           envInt("REDIS_DB", 0),
		SessionTTLHours:   envInt("SESSION_TTL_HOURS", 24),
		ContextWindowSize: envInt("CONTEXT_WINDOW_SIZE", 20),
		MaxBookChunks:     envInt("MAX_BOOK_CHUNKS", 3),
		TokenBudget:       envInt("AI__TOKEN_BUDGET", 4000),
		TokenizerKind:     TokenizerKind(envStr("AI__TOKENIZER_KIND", string(TokenizerGeneric))),

		CleanupEnabled:           envBool("CLEANUP_ENABLED", true),
		CleanupDelaySeconds:      envInt("CLEANUP_DELAY_SECONDS", 30),
		CleanupRetryAttempts:     envInt("CLEANUP_RETRY_ATTEMPTS", 3),
		CleanupRetryDelaySeconds: envInt("CLEANUP_RETRY_DELAY_SECONDS", 5),

		LLMProvider:    LLMProvider(envStr("AI__LLM_PROVIDER", string(ProviderMock))),
		LLMModel:       envStr("AI__OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		MockResponses:  envBool("AI__MOCK_RESPONSES", true),
		EmbeddingModel: envStr("AI__EMBEDDING_MODEL", "text-embedding-004"),
	}

	return cfg, nil
}

// envStr reads a plain environment variable, falling back to fallback.
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// envNested resolves a nested-section env var using the "__" delimiter
// convention (e.g. section="AI", key="OPENROUTER_MODEL" -> "AI__OPENROUTER_MODEL").
// Callers outside this package reach it through Lookup.
func envNested(section, key, fallback string) string {
	joined := strings.ToUpper(section) + "__" + strings.ToUpper(key)
	return envStr(joined, fallback)
}

// Lookup resolves an arbitrary nested-section setting at the AI__* convention,
// for callers (e.g. provider adapters) that need a setting this struct
// doesn't enumerate.
func Lookup(section, key, fallback string) string {
	return envNested(section, key, fallback)
}
