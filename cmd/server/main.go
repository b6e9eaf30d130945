package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/bookglebookgle/ai-core/internal/config"
	"github.com/bookglebookgle/ai-core/internal/discussion"
	"github.com/bookglebookgle/ai-core/internal/gcpclient"
	"github.com/bookglebookgle/ai-core/internal/llmgateway"
	"github.com/bookglebookgle/ai-core/internal/meeting"
	"github.com/bookglebookgle/ai-core/internal/middleware"
	"github.com/bookglebookgle/ai-core/internal/ocringest"
	"github.com/bookglebookgle/ai-core/internal/platform/logging"
	"github.com/bookglebookgle/ai-core/internal/streamreg"
	"github.com/bookglebookgle/ai-core/internal/transport"
	"github.com/bookglebookgle/ai-core/internal/vectorindex"
)

// Version is the service version reported in logs and by the REST facade.
const Version = "0.1.0"

// app holds every long-lived component the composition root builds, so run()
// can close them in reverse dependency order on shutdown.
type app struct {
	pool    *pgxpool.Pool
	redis   *redis.Client
	ocr     *ocringest.Pipeline
	streams *streamreg.Registry
	handler http.Handler
}

// buildLLMProviders wires the configured primary provider plus an always-
// present mock, matching the gateway's "at least one provider, mock if none
// configured" contract even when the primary fails to construct (missing
// credentials at startup shouldn't crash the whole process).
func buildLLMProviders(ctx context.Context, cfg *config.Config, log *slog.Logger) (map[string]llmgateway.Provider, []string) {
	providers := map[string]llmgateway.Provider{
		string(config.ProviderMock): llmgateway.NewMockProvider(),
	}
	var precedence []string

	switch cfg.LLMProvider {
	case config.ProviderVertexAI:
		project := config.Lookup("AI", "GCP_PROJECT", "")
		location := config.Lookup("AI", "GCP_LOCATION", "global")
		if project == "" {
			log.Warn("[server] AI__GCP_PROJECT not set, vertexai provider unavailable")
			break
		}
		adapter, err := gcpclient.NewGenAIAdapter(ctx, project, location, cfg.LLMModel)
		if err != nil {
			log.Error("[server] failed to dial vertex ai, falling back to mock", "err", err)
			break
		}
		providers["vertexai"] = llmgateway.NewVertexAIProvider(adapter)
		precedence = append(precedence, "vertexai")

	case config.ProviderOpenRouter:
		apiKey := config.Lookup("AI", "OPENROUTER_API_KEY", "")
		if apiKey == "" {
			log.Warn("[server] AI__OPENROUTER_API_KEY not set, openrouter provider unavailable")
			break
		}
		baseURL := config.Lookup("AI", "OPENROUTER_BASE_URL", "")
		providers["openrouter"] = llmgateway.NewOpenAICompatProvider("openrouter", apiKey, baseURL, cfg.LLMModel)
		precedence = append(precedence, "openrouter")
	}

	if cfg.MockResponses || len(precedence) == 0 {
		precedence = append(precedence, string(config.ProviderMock))
	}
	return providers, precedence
}

func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	pool, err := vectorindex.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	store := vectorindex.NewPostgresCollectionStore(pool)

	var embedder vectorindex.EmbeddingClient
	if embedProject := config.Lookup("AI", "GCP_PROJECT", ""); embedProject != "" {
		adapter, err := gcpclient.NewEmbeddingAdapter(ctx, embedProject, config.Lookup("AI", "GCP_LOCATION", "global"), cfg.EmbeddingModel)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect vertex embeddings: %w", err)
		}
		embedder = vectorindex.NewCachedEmbeddingClient(adapter, vectorindex.NewEmbeddingCache(15*time.Minute), logging.Tag(log, "vectorindex"))
	}
	vectors := vectorindex.New(store, embedder, logging.Tag(log, "vectorindex"))

	ocrClient := ocringest.NewTailscaleStreamClient(cfg.OCRWorkerEndpoint, cfg.OCRChunkBytes)
	ocr := ocringest.New(ocrClient, ocringest.Config{
		MaxUploadBytes: cfg.OCRMaxUploadBytes,
		BaseTimeout:    time.Duration(cfg.OCRBaseTimeoutSeconds) * time.Second,
		RetryAttempts:  cfg.OCRRetryAttempts,
		RetryDelay:     time.Duration(cfg.OCRRetryDelaySeconds) * time.Second,
	}, logging.Tag(log, "ocringest"))

	sessionStore := discussion.NewRedisSessionStore(redisClient, time.Duration(cfg.SessionTTLHours)*time.Hour, logging.Tag(log, "discussion"))

	providers, precedence := buildLLMProviders(ctx, cfg, log)
	gateway := llmgateway.New(providers, precedence, logging.Tag(log, "llmgateway"))
	discussionLLM := llmgateway.NewDiscussionAdapter(gateway)

	discuss := discussion.New(sessionStore, vectors, discussionLLM, cfg.TokenizerKind, cfg.TokenBudget, logging.Tag(log, "discussion"))
	streams := streamreg.New()

	// No per-service meeting cleaners are wired: Services is left empty and
	// the coordinator treats each nil cleaner as "skip".
	meeting.New(discuss, vectors, streams, meeting.Services{}, meeting.Config{
		CleanupEnabled:           cfg.CleanupEnabled,
		CleanupDelaySeconds:      cfg.CleanupDelaySeconds,
		CleanupRetryAttempts:     cfg.CleanupRetryAttempts,
		CleanupRetryDelaySeconds: cfg.CleanupRetryDelaySeconds,
	}, logging.Tag(log, "meeting"))

	reg := prometheus.NewRegistry()
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{MaxRequests: 120, Window: time.Minute})

	router := transport.New(&transport.Dependencies{
		DB:          pool,
		Retriever:   vectors,
		Completer:   gateway,
		Config:      cfg,
		Version:     Version,
		MetricsReg:  reg,
		RateLimiter: rateLimiter,
	})

	return &app{
		pool:    pool,
		redis:   redisClient,
		ocr:     ocr,
		streams: streams,
		handler: router,
	}, nil
}

func (a *app) Close() {
	a.redis.Close()
	a.pool.Close()
}

func getPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return fmt.Sprintf("%d", cfg.Port)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	appLog := logging.New(cfg.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := buildApp(ctx, cfg, appLog)
	cancel()
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer application.Close()

	port := getPort(cfg)
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      application.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("server starting", "version", Version, "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLog.Info("received signal, shutting down gracefully", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	appLog.Info("server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
