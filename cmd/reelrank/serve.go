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
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/config"
	dbRedis "github.com/reelrank/reelrank/internal/db/redis"
	logpkg "github.com/reelrank/reelrank/internal/logger"
	"github.com/reelrank/reelrank/internal/metrics"
	"github.com/reelrank/reelrank/internal/repository/movieindex"
	"github.com/reelrank/reelrank/internal/transport/httpapi"
	openaiTransport "github.com/reelrank/reelrank/internal/transport/openai"
	searchuc "github.com/reelrank/reelrank/internal/usecase/search"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recommendation HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runServe(cmd.Context(), cfg, log)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	log.Info("connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     log,
	})

	// Best-effort startup probe; a provider outage here is worth a warning
	// but the server still starts and surfaces errors per request.
	probeCtx, cancelProbe := context.WithTimeout(ctx, 10*time.Second)
	if err := embedder.HealthCheck(probeCtx); err != nil {
		log.Warn("embedding provider unreachable at startup", zap.Error(err))
	}
	cancelProbe()

	repo := movieindex.New(store, cfg.Index.Collection, cfg.Index.KeyPrefix, cfg.Embedding.Dimensions)

	var optimizer searchuc.QueryOptimizer
	var narrator searchuc.Narrator
	if cfg.LLM.Enabled() {
		chat := openaiTransport.NewChat(&openaiTransport.ChatConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Logger:  log,
		})
		optimizer = chat
		narrator = chatNarrator{chat: chat}
		log.Info("LLM features enabled", zap.String("model", cfg.LLM.Model))
	}

	searchSvc := searchuc.New(repo, embedder, optimizer, narrator,
		time.Duration(cfg.LLM.OptimizeTimeoutSec)*time.Second).
		WithLimits(cfg.Index.TopK, cfg.Index.OverFetch)

	server := httpapi.NewServer(searchSvc, store, log)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(log))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(log))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		log.Info("received shutdown signal")
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// chatNarrator adapts the chat transport to the search Narrator contract.
type chatNarrator struct {
	chat *openaiTransport.Chat
}

func (n chatNarrator) Narrate(ctx context.Context, query string, movies []searchuc.NarrativeContext) (string, error) {
	ms := make([]openaiTransport.NarrativeMovie, 0, len(movies))
	for _, m := range movies {
		ms = append(ms, openaiTransport.NarrativeMovie{
			Title:      m.Title,
			Overview:   m.Overview,
			Genres:     m.Genres,
			MatchScore: m.MatchScore,
		})
	}
	return n.chat.Narrate(ctx, query, ms)
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
