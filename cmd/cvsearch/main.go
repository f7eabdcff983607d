package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cvsearch/internal/config"
	dbElastic "github.com/kailas-cloud/cvsearch/internal/db/elastic"
	dbRedis "github.com/kailas-cloud/cvsearch/internal/db/redis"
	logpkg "github.com/kailas-cloud/cvsearch/internal/logger"
	"github.com/kailas-cloud/cvsearch/internal/metrics"
	searchrepo "github.com/kailas-cloud/cvsearch/internal/repository/search"
	"github.com/kailas-cloud/cvsearch/internal/repository/searchcache"
	chiTransport "github.com/kailas-cloud/cvsearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/cvsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/cvsearch/internal/usecase/search"
	"github.com/kailas-cloud/cvsearch/internal/version"
	"github.com/kailas-cloud/cvsearch/internal/view"
)

func main() {
	// Load configuration based on ENV; without config/<ENV>.yaml the connector comes from env vars.
	env := config.GetEnv()

	cfg, err := config.LoadOrDefault(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, "cvsearch", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cvsearch server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("elasticsearch_url", cfg.Elasticsearch.URL),
		zap.String("index", cfg.Elasticsearch.Index),
	)

	// Query shape and result card must agree before anything is served.
	sch, card, err := cfg.Search.Schema()
	if err != nil {
		logger.Fatal("Invalid search schema", zap.Error(err))
	}

	engine, err := dbElastic.NewStore(dbElastic.Config{
		Addrs:      []string{cfg.Elasticsearch.URL},
		Username:   cfg.Elasticsearch.Username,
		Password:   cfg.Elasticsearch.Password,
		MaxRetries: cfg.Elasticsearch.MaxRetries,
	})
	if err != nil {
		logger.Fatal("Failed to create search engine client", zap.Error(err))
	}

	// The page renders an error banner while the engine is down, so a slow start is not fatal.
	ctx := context.Background()
	readiness := time.Duration(cfg.Elasticsearch.ReadinessTimeout) * time.Second
	if err := engine.WaitForReady(ctx, readiness); err != nil {
		logger.Warn("Search engine not ready, serving anyway", zap.Error(err))
	} else {
		logger.Info("Connected to search engine")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	var searcher searchuc.Repository = searchrepo.New(engine, cfg.Elasticsearch.Index, sch)

	// Optional result cache; nil interface (not typed nil pointer) when disabled.
	var cachePinger healthuc.Pinger
	if len(cfg.Cache.Addrs) > 0 {
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cache.Close()

		if err := cache.WaitForReady(ctx, readiness); err != nil {
			logger.Warn("Cache not ready, searches fall through to the engine", zap.Error(err))
		}

		prefix := searchcache.KeyPrefix(cfg.Cache.KeyPrefix, cfg.Elasticsearch.Index, sch)
		ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
		searcher = searchcache.New(searcher, cache, prefix, ttl, metrics.SearchCacheTotal, logger)
		cachePinger = cache
		logger.Info("Result cache enabled", zap.Strings("addrs", cfg.Cache.Addrs), zap.Duration("ttl", ttl))
	}

	searchSvc := searchuc.New(searcher).WithPageSizes(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	healthSvc := healthuc.New(engine, cachePinger)

	page, err := view.New(card)
	if err != nil {
		logger.Fatal("Failed to load page templates", zap.Error(err))
	}

	server := chiTransport.NewServer(searchSvc, healthSvc, page, cfg.Elasticsearch.Index, sch, card, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternal,
						Message: "internal error",
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
				zap.String("query", r.URL.Query().Get("q")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
