package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neurochat-ai/neurochat/internal/middleware"
	natsclient "github.com/neurochat-ai/neurochat/internal/nats"
	"github.com/neurochat-ai/neurochat/internal/service"
	"github.com/neurochat-ai/neurochat/pkg/logger"
)

// maxRequestBytes bounds API request bodies.
const maxRequestBytes = 1 << 20

// RouterConfig holds what the HTTP surface needs.
type RouterConfig struct {
	ConversationService   *service.ConversationService
	NATSClient            *natsclient.Client
	Logger                *logger.Logger
	HTTPRateLimitRequests int
	HTTPRateLimitWindow   time.Duration
	AllowedOrigins        []string
	SecureCookies         bool
}

// NewRouter builds the chat server routes.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Global()
	}

	healthHandler := NewHealthHandler(cfg.ConversationService, cfg.NATSClient)
	conversationHandler := NewConversationHandler(cfg.ConversationService, cfg.Logger)
	messageHandler := NewMessageHandler(cfg.ConversationService, cfg.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Session(cfg.SecureCookies))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/", Page)

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.HTTPRateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.HTTPRateLimitRequests, cfg.HTTPRateLimitWindow))
		}
		r.Use(middleware.MaxBodyBytes(maxRequestBytes))
		r.Use(middleware.RequireJSON)

		r.Get("/session", conversationHandler.Get)
		r.Post("/messages", messageHandler.Send)
		r.Put("/system-prompt", conversationHandler.UpdateSystemPrompt)
		r.Post("/reset", conversationHandler.Reset)
		r.Get("/export", conversationHandler.Export)
		r.Get("/endpoint/health", healthHandler.Endpoint)
	})

	return r
}
