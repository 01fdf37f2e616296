package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/clauselab/contraq/internal/config"
	dbRedis "github.com/clauselab/contraq/internal/db/redis"
	"github.com/clauselab/contraq/internal/domain"
	logpkg "github.com/clauselab/contraq/internal/logger"
	"github.com/clauselab/contraq/internal/metrics"
	documentrepo "github.com/clauselab/contraq/internal/repository/document"
	chiTransport "github.com/clauselab/contraq/internal/transport/chi"
	ollamaGen "github.com/clauselab/contraq/internal/transport/ollama"
	openaiGen "github.com/clauselab/contraq/internal/transport/openai"
	answeruc "github.com/clauselab/contraq/internal/usecase/answer"
	audituc "github.com/clauselab/contraq/internal/usecase/audit"
	extractuc "github.com/clauselab/contraq/internal/usecase/extract"
	healthuc "github.com/clauselab/contraq/internal/usecase/health"
	ingestuc "github.com/clauselab/contraq/internal/usecase/ingest"
	retrievaluc "github.com/clauselab/contraq/internal/usecase/retrieval"
	"github.com/clauselab/contraq/internal/version"
	"github.com/clauselab/contraq/internal/webhook"
)

// groqBaseURL is the OpenAI-compatible endpoint Groq exposes.
const groqBaseURL = "https://api.groq.com/openai/v1"

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting contraq API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Strings("generation_order", cfg.Generation.Order),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register domain metrics explicitly (no init())
	metrics.RegisterGenerationMetrics()
	metrics.RegisterOperationMetrics()

	// Build the generation chain in configured fallback order. The
	// rule-based extractor inside the answer service is the implicit
	// final entry, so an empty chain still answers.
	chain, checkers := buildGenerators(cfg, logger)

	docRepo := documentrepo.New(store)

	retrievalSvc := retrievaluc.New(docRepo).
		WithChunking(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap).
		WithTopK(cfg.Retrieval.TopK)
	answerSvc := answeruc.New(retrievalSvc, chain).
		WithBackendTimeout(time.Duration(cfg.Generation.BackendTimeoutSec) * time.Second)
	ingestSvc := ingestuc.New(docRepo)
	extractSvc := extractuc.New(docRepo)
	auditSvc := audituc.New(docRepo)
	healthSvc := healthuc.New(store, checkers...)

	events := webhook.New(cfg.Webhook.URL, logger)

	server := chiTransport.NewServer(ingestSvc, extractSvc, answerSvc, auditSvc, healthSvc, events, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildGenerators assembles the generation fallback chain from config.
// Config validation already guarantees every name in the order has a
// backend entry.
func buildGenerators(cfg config.Config, logger *zap.Logger) ([]domain.Generator, []healthuc.GenerationChecker) {
	chain := make([]domain.Generator, 0, len(cfg.Generation.Order))
	checkers := make([]healthuc.GenerationChecker, 0, len(cfg.Generation.Order))

	for _, name := range cfg.Generation.Order {
		backendCfg := cfg.Generation.Backends[name]

		switch name {
		case "ollama":
			g := ollamaGen.NewGenerator(&ollamaGen.Config{
				BaseURL: backendCfg.BaseURL,
				Model:   backendCfg.Model,
				Logger:  logger,
			})
			chain = append(chain, g)
			checkers = append(checkers, g)
		case "groq":
			baseURL := backendCfg.BaseURL
			if baseURL == "" {
				baseURL = groqBaseURL
			}
			g := openaiGen.NewGenerator(&openaiGen.Config{
				APIKey:   backendCfg.APIKey,
				BaseURL:  baseURL,
				Model:    backendCfg.Model,
				Provider: name,
				Logger:   logger,
			})
			chain = append(chain, g)
			checkers = append(checkers, g)
		case "openai":
			g := openaiGen.NewGenerator(&openaiGen.Config{
				APIKey:   backendCfg.APIKey,
				BaseURL:  backendCfg.BaseURL,
				Model:    backendCfg.Model,
				Provider: name,
				Logger:   logger,
			})
			chain = append(chain, g)
			checkers = append(checkers, g)
		default:
			logger.Fatal("Unknown generation backend", zap.String("backend", name))
		}
	}

	return chain, checkers
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
