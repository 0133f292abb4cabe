package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/catalog"
	"github.com/reelrank/reelrank/internal/config"
	"github.com/reelrank/reelrank/internal/corpus"
	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/reconcile"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Build the clean corpus artifact from the raw catalog tables",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runReconcile(cfg, log)
		},
	}
}

func runReconcile(cfg config.Config, log *zap.Logger) error {
	metadata, metaDiag, err := catalog.LoadMetadata(cfg.Data.MoviesFile)
	if err != nil {
		return fmt.Errorf("metadata table: %w", err)
	}
	log.Info("metadata loaded", zap.String("source", metaDiag.Source),
		zap.Int("rows", metaDiag.Rows), zap.Int("dropped", metaDiag.Dropped))

	// Enrichment tables are optional: a missing file degrades the corpus,
	// it does not abort the build.
	keywords, kwDiag, err := catalog.LoadKeywords(cfg.Data.KeywordFile)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			return fmt.Errorf("keywords table: %w", err)
		}
		log.Warn("keywords table unavailable, continuing without it", zap.Error(err))
	} else {
		log.Info("keywords loaded", zap.Int("rows", kwDiag.Rows), zap.Int("dropped", kwDiag.Dropped))
	}

	credits, crDiag, err := catalog.LoadCredits(cfg.Data.CreditsFile)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			return fmt.Errorf("credits table: %w", err)
		}
		log.Warn("credits table unavailable, continuing without it", zap.Error(err))
	} else {
		log.Info("credits loaded", zap.Int("rows", crDiag.Rows), zap.Int("dropped", crDiag.Dropped))
	}

	links, linkDiag, err := catalog.LoadLinks(cfg.Data.LinksFile)
	if err != nil {
		return fmt.Errorf("links table: %w", err)
	}
	log.Info("links loaded", zap.Int("rows", linkDiag.Rows), zap.Int("dropped", linkDiag.Dropped))

	ratings, ratingDiag, err := catalog.LoadRatings(cfg.Data.RatingsFile)
	if err != nil {
		return fmt.Errorf("ratings table: %w", err)
	}
	log.Info("ratings loaded", zap.String("source", ratingDiag.Source),
		zap.Int("rows", ratingDiag.Rows), zap.Int("dropped", ratingDiag.Dropped))

	movies, buildStats := corpus.Build(metadata, keywords, credits)
	log.Info("corpus built",
		zap.Int("input", buildStats.Input),
		zap.Int("duplicates", buildStats.Duplicates),
		zap.Int("no_synopsis", buildStats.NoSynopsis),
		zap.Int("kept", buildStats.Kept),
		zap.Int("with_cast", buildStats.WithCast),
		zap.Int("with_keywords", buildStats.WithKeywords))

	summary := reconcile.Reconcile(movies, ratings, links)
	log.Info("ratings reconciled",
		zap.Int("rating_groups", summary.RatingGroups),
		zap.Int("linked_groups", summary.LinkedGroups),
		zap.Int("movies_matched", summary.MoviesMatched),
		zap.Int("movies_unrated", summary.MoviesUnrated))

	corpus.Finalize(movies)

	if err := corpus.WriteArtifact(cfg.Data.CorpusFile, movies); err != nil {
		return err
	}
	log.Info("corpus artifact written",
		zap.String("path", cfg.Data.CorpusFile),
		zap.Int("movies", len(movies)))

	return nil
}
