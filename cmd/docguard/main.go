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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/config"
	dbRedis "github.com/kailas-cloud/docguard/internal/db/redis"
	logpkg "github.com/kailas-cloud/docguard/internal/logger"
	"github.com/kailas-cloud/docguard/internal/metrics"
	auditrepo "github.com/kailas-cloud/docguard/internal/repository/auditlog"
	datasetrepo "github.com/kailas-cloud/docguard/internal/repository/dataset"
	directoryrepo "github.com/kailas-cloud/docguard/internal/repository/directory"
	docsrepo "github.com/kailas-cloud/docguard/internal/repository/docs"
	chiTransport "github.com/kailas-cloud/docguard/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/docguard/internal/transport/openai"
	accessuc "github.com/kailas-cloud/docguard/internal/usecase/access"
	classifyuc "github.com/kailas-cloud/docguard/internal/usecase/classify"
	fallbackuc "github.com/kailas-cloud/docguard/internal/usecase/fallback"
	healthuc "github.com/kailas-cloud/docguard/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docguard/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/docguard/internal/usecase/query"
	"github.com/kailas-cloud/docguard/internal/version"
)

func main() {
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

	logger.Info("Starting docguard API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.Register()

	// Model providers
	labelProvider := openaiTransport.NewClassifier(&openaiTransport.ClassifierConfig{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.ClassifierModel,
		MaxTokens: cfg.LLM.ClassifierMaxTokens,
		Logger:    logger,
	})
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.GenerationModel,
		MaxTokens:   cfg.LLM.GenerationMaxTokens,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		Logger:      logger,
	})
	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.EmbeddingModel,
		Dimensions: cfg.LLM.EmbeddingDimensions,
		Logger:     logger,
	})

	// Repositories
	directory := directoryrepo.New(store, cfg.Storage.KeyPrefix)
	auditLog := auditrepo.New(store, cfg.Storage.KeyPrefix, time.Duration(cfg.Storage.AuditTTLSec)*time.Second)
	chunkRepo := docsrepo.New(store, embedder, docsrepo.Config{
		KeyPrefix:       cfg.Storage.KeyPrefix,
		Dimensions:      cfg.LLM.EmbeddingDimensions,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	})

	// Optional fallback path: both artifacts or neither.
	accessOpts := accessuc.Options{AllowUnknownUsers: cfg.Policy.AllowUnknownUsers}
	if cfg.FallbackEnabled() {
		decider, err := fallbackuc.NewClassifier(cfg.Fallback.ModelPath, logger)
		if err != nil {
			logger.Fatal("Failed to load fallback model", zap.Error(err))
		}
		dataset, err := datasetrepo.Load(cfg.Fallback.DatasetPath, logger)
		if err != nil {
			logger.Fatal("Failed to load reference dataset", zap.Error(err))
		}
		accessOpts.Dataset = dataset
		accessOpts.Fallback = decider
	}

	// Use case services
	classifier := classifyuc.New(labelProvider, logger)
	engine := accessuc.New(directory, classifier, accessOpts, logger)
	filter := accessuc.NewFilter(classifier, logger)
	querySvc := queryuc.New(engine, filter, chunkRepo, generator, auditLog, queryuc.Config{
		TopK:           cfg.Policy.TopK,
		RelevanceFloor: cfg.Policy.RelevanceFloor,
		ExcerptLimit:   cfg.Policy.AuditExcerptLimit,
	}, logger)
	ingestSvc := ingestuc.New(classifier, chunkRepo, ingestuc.Config{
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
	}, logger)
	healthSvc := healthuc.New(store, embedder)

	server := chiTransport.NewServer(querySvc, ingestSvc, healthSvc, directory, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

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

// wideEventMiddleware emits one canonical log line per request and puts a
// request-scoped logger in the context.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

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
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
