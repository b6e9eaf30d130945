package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bookglebookgle/ai-core/internal/config"
	"github.com/bookglebookgle/ai-core/internal/middleware"
)

// Dependencies collects every constructed component the router wires into
// an HTTP handler. Streaming RPCs (OCR upload, the discussion SSE turn
// stream) have their own transport and are not part of this REST facade;
// this router only carries /health, /status, /config, /metrics, and the
// /test/* smoke-test endpoints.
type Dependencies struct {
	DB          DBPinger
	Retriever   VectorRetriever
	Completer   Completer
	Config      *config.Config
	Version     string
	MetricsReg  *prometheus.Registry
	RateLimiter *middleware.RateLimiter
}

// New assembles the chi router, wiring the ambient middleware stack
// (request logging, security headers, CORS, Prometheus instrumentation,
// then per-client rate limiting when a limiter is given) ahead of the route
// table. The request timeout wraps only the /test/* routes.
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	metrics := middleware.NewMetrics(deps.MetricsReg)

	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(deps.Config.FrontendURL))
	r.Use(middleware.Monitoring(metrics))
	if deps.RateLimiter != nil {
		r.Use(middleware.RateLimit(deps.RateLimiter))
	}

	r.Get("/health", Health(deps.DB, deps.Version))
	r.Get("/status", Status(deps.Config, deps.Version))
	r.Get("/config", Config(deps.Config))
	r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))

	r.With(middleware.Timeout(30*time.Second)).Post("/test/rag", RAGTest(deps.Retriever))
	r.With(middleware.Timeout(60*time.Second)).Post("/test/quiz", QuizTest(deps.Completer))
	r.With(middleware.Timeout(60*time.Second)).Post("/test/proofread", ProofreadTest(deps.Completer))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}
