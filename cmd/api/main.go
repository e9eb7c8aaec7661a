// Package main is the entry point for the chat server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/neurochat-ai/neurochat/internal/config"
	"github.com/neurochat-ai/neurochat/internal/handler"
	"github.com/neurochat-ai/neurochat/internal/llm"
	"github.com/neurochat-ai/neurochat/internal/model"
	natsclient "github.com/neurochat-ai/neurochat/internal/nats"
	"github.com/neurochat-ai/neurochat/internal/prompt"
	"github.com/neurochat-ai/neurochat/internal/service"
	"github.com/neurochat-ai/neurochat/internal/session"
	"github.com/neurochat-ai/neurochat/pkg/logger"
	"github.com/neurochat-ai/neurochat/pkg/tracing"
)

const (
	appName    = "NeuroChatAI"
	appVersion = "1.0.0"
	appCreated = "2025-01-22 16:10:37 UTC"
	appAuthor  = "Cs944612"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("failed to load .env file", zap.Error(envErr))
	}

	log.Info("starting chat server",
		zap.String("version", appVersion),
		zap.String("provider", cfg.LLMProvider),
		zap.String("api_url", cfg.APIURL),
	)

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "neurochat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer func() {
				if err := tracing.Shutdown(context.Background(), tp); err != nil {
					log.Warn("failed to shut down tracing", zap.Error(err))
				}
			}()
		}
	}

	// The transcript feed is optional; a failure to connect is not fatal.
	var (
		natsClient *natsclient.Client
		publisher  service.TranscriptPublisher
	)
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("transcript feed disabled", zap.Error(err))
		} else {
			defer natsClient.Close()

			transcripts := natsclient.NewTranscriptPublisher(natsClient.JetStream())
			if err := transcripts.EnsureStream(ctx); err != nil {
				log.Error("failed to ensure transcript stream", zap.Error(err))
				os.Exit(1)
			}
			publisher = transcripts
		}
	}

	llmClient, err := llm.NewClient(llm.Provider(cfg.LLMProvider), llm.Config{
		Timeout:       cfg.LLMRequestTimeout,
		HealthTimeout: cfg.LLMHealthTimeout,
		APIKey:        cfg.LLMAPIKey,
	})
	if err != nil {
		log.Error("failed to create completion client", zap.Error(err))
		os.Exit(1)
	}

	store := session.NewStore()
	conversationSvc := service.NewConversationService(store, llmClient, publisher, log, service.Config{
		Defaults: model.TurnSettings{
			Endpoint:    cfg.APIURL,
			Model:       cfg.ModelName,
			Temperature: cfg.DefaultTemperature,
			MaxTokens:   cfg.DefaultMaxTokens,
		},
		HistoryWindow: cfg.MaxHistoryMessages,
		MinInterval:   cfg.RateLimitInterval,
		StopSequences: prompt.DefaultStopSequences,
		App: model.AppInfo{
			Name:       appName,
			Version:    appVersion,
			Created:    appCreated,
			Author:     appAuthor,
			Repository: cfg.AppRepository,
		},
	})

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSessions(sweepCtx, store, cfg.SessionIdleTimeout, log)

	router := handler.NewRouter(handler.RouterConfig{
		ConversationService:   conversationSvc,
		NATSClient:            natsClient,
		Logger:                log,
		HTTPRateLimitRequests: cfg.HTTPRateLimitRequests,
		HTTPRateLimitWindow:   cfg.HTTPRateLimitWindow,
		AllowedOrigins:        cfg.CORSAllowedOrigins,
		SecureCookies:         cfg.SecureCookies,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// sweepSessions evicts idle sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, store *session.Store, maxIdle time.Duration, log *logger.Logger) {
	if maxIdle <= 0 {
		return
	}

	interval := maxIdle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Sweep(maxIdle); removed > 0 {
				log.Info("evicted idle sessions",
					zap.Int("removed", removed),
					zap.Int("remaining", store.Len()),
				)
			}
		}
	}
}
