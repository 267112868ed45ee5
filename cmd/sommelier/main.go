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
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cellarpress/sommelier/internal/config"
	"github.com/cellarpress/sommelier/internal/db/postgres"
	"github.com/cellarpress/sommelier/internal/domain"
	logpkg "github.com/cellarpress/sommelier/internal/logger"
	"github.com/cellarpress/sommelier/internal/metrics"
	"github.com/cellarpress/sommelier/internal/repository/embcache"
	memoryrepo "github.com/cellarpress/sommelier/internal/repository/memory"
	reviewsrepo "github.com/cellarpress/sommelier/internal/repository/reviews"
	chiTransport "github.com/cellarpress/sommelier/internal/transport/chi"
	openaiTransport "github.com/cellarpress/sommelier/internal/transport/openai"
	healthuc "github.com/cellarpress/sommelier/internal/usecase/health"
	memoryuc "github.com/cellarpress/sommelier/internal/usecase/memory"
	searchuc "github.com/cellarpress/sommelier/internal/usecase/search"
	"github.com/cellarpress/sommelier/internal/version"
)

func main() {
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting sommelier API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	ctx := context.Background()

	// Review store (Postgres + pgvector)
	pool, err := postgres.New(ctx, postgres.Config{
		URL:      cfg.Postgres.URL,
		MinConns: cfg.Postgres.MinConns,
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		logger.Fatal("Failed to create postgres pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.WaitForReady(ctx, time.Duration(cfg.Postgres.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Postgres not ready", zap.Error(err))
	}
	logger.Info("Connected to postgres")

	// Memory store (Redis)
	store, err := memoryrepo.NewStore(memoryrepo.Config{
		Addrs:      cfg.Redis.Addrs,
		Password:   cfg.Redis.Password,
		KeyPrefix:  cfg.Memory.KeyPrefix,
		Dimensions: cfg.OpenAI.Dimensions,
	})
	if err != nil {
		logger.Fatal("Failed to create memory store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Redis not ready", zap.Error(err))
	}
	if err := store.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure memory index", zap.Error(err))
	}
	logger.Info("Connected to redis")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// OpenAI transports
	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)

	var embedder domain.Embedder = openaiTransport.NewEmbedder(
		client, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.Dimensions, logger,
	)
	if cfg.Memory.CacheEmbeddings {
		embedder = embcache.New(embedder, store, cfg.Memory.KeyPrefix, metrics.EmbeddingCacheTotal, logger)
	}
	classifier := openaiTransport.NewClassifier(client, cfg.OpenAI.ChatModel, logger)
	describer := openaiTransport.NewDescriber(client, cfg.OpenAI.VisionModel, logger)
	logger.Info("OpenAI transports created",
		zap.String("chat_model", cfg.OpenAI.ChatModel),
		zap.String("vision_model", cfg.OpenAI.VisionModel),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.Int("dimensions", cfg.OpenAI.Dimensions),
	)

	// Use case services
	memorySvc := memoryuc.New(store, embedder, memoryuc.Config{
		UserID:    cfg.Memory.UserID,
		TopK:      cfg.Memory.TopK,
		QueueSize: cfg.Memory.QueueSize,
	}, logger)

	reviewRepo := reviewsrepo.New(pool, logger)
	searchSvc := searchuc.New(reviewRepo, classifier, memorySvc, describer, embedder, memorySvc, logger)
	healthSvc := healthuc.New(pool, store, newEmbeddingHealthChecker(embedder))

	// HTTP server
	server := chiTransport.NewServer(searchSvc, memorySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

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

	// Drain queued memory writes before the store closes.
	memorySvc.Close()

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker adapts domain.Embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	type healthChecker interface {
		HealthCheck(ctx context.Context) error
	}
	if hc, ok := h.embedder.(healthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
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
