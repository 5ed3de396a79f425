// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cenizastevie/aws-language-chat-buddy/internal/config"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/handler"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/llm"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/middleware"
	natsclient "github.com/cenizastevie/aws-language-chat-buddy/internal/nats"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/scenario"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/service"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/session"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/logger"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/tracing"
)

func main() {
	// Load .env in development; missing file is fine
	_ = godotenv.Load()

	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "aws-language-chat-buddy", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Session storage: NATS JetStream key-value, or in-memory for
	// development
	var sessions session.Store
	var natsConn *natsclient.Client
	if cfg.SessionBackend == "nats" {
		natsConn, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsConn.Close()

		kv, err := natsConn.EnsureSessionBucket(ctx, cfg.SessionTTL)
		if err != nil {
			log.Error("failed to ensure session bucket", zap.Error(err))
			os.Exit(1)
		}
		sessions = session.NewNATSStore(kv)
	} else {
		sessions = session.NewMemoryStore()
	}

	// Scenario store
	scenarios := scenario.NewStore(cfg.ScenarioDir)

	// LLM client
	llmClient, err := buildLLMClient(cfg)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	// Services
	evaluator := service.NewEvaluator(llmClient, cfg.LLMModel, cfg.LLMMaxTokens, log)
	feedback := service.NewFeedbackGenerator(llmClient, cfg.LLMModel, cfg.LLMMaxTokens, log)
	conversationSvc := service.NewConversationService(scenarios, evaluator, feedback, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(natsConn)
	conversationHandler := handler.NewConversationHandler(conversationSvc, sessions, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Set-Cookie", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with session handling
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.SessionSecret, cfg.SessionTTL))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/scenario", conversationHandler.LoadScenario)
		r.Get("/prompt", conversationHandler.CurrentPrompt)
		r.Post("/response", conversationHandler.StudentResponse)
		r.Post("/reset", conversationHandler.Reset)
		r.Get("/state", conversationHandler.State)
		r.Get("/session", conversationHandler.SessionInfo)
		r.Delete("/session", conversationHandler.ClearSession)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func buildLLMClient(cfg *config.Config) (llm.Client, error) {
	switch llm.Provider(cfg.LLMProvider) {
	case llm.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	default:
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	}
}
