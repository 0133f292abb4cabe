package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/config"
	"github.com/reelrank/reelrank/internal/corpus"
	dbRedis "github.com/reelrank/reelrank/internal/db/redis"
	"github.com/reelrank/reelrank/internal/logger"
	"github.com/reelrank/reelrank/internal/metrics"
	"github.com/reelrank/reelrank/internal/repository/movieindex"
	openaiTransport "github.com/reelrank/reelrank/internal/transport/openai"
	ingestuc "github.com/reelrank/reelrank/internal/usecase/ingest"
)

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Embed the corpus artifact and load it into the vector index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runIngest(cmd.Context(), cfg, log)
		},
	}
}

func runIngest(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	movies, err := corpus.ReadArtifact(cfg.Data.CorpusFile)
	if err != nil {
		return fmt.Errorf("corpus artifact: %w", err)
	}
	log.Info("corpus artifact loaded",
		zap.String("path", cfg.Data.CorpusFile),
		zap.Int("movies", len(movies)))

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

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     log,
	})

	repo := movieindex.New(store, cfg.Index.Collection, cfg.Index.KeyPrefix, cfg.Embedding.Dimensions)
	svc := ingestuc.New(repo, embedder)

	report, err := svc.Run(logger.ContextWithLogger(ctx, log), movies, ingestuc.Options{
		BatchSize: cfg.Index.BatchSize,
		MaxMovies: cfg.Data.MaxMovies,
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	log.Info("ingestion finished",
		zap.Int("total", report.Total),
		zap.Int("indexed", report.Indexed),
		zap.Int("failed", report.Failed),
		zap.Int("failed_batches", len(report.FailedBatches)),
		zap.Int("tokens", report.TotalTokens))

	if report.Failed > 0 {
		for _, br := range report.FailedBatches {
			log.Warn("failed batch", zap.Int("from", br.From), zap.Int("to", br.To))
		}
	}
	return nil
}
