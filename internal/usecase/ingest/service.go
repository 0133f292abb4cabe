package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/domain/movie"
	"github.com/reelrank/reelrank/internal/logger"
	"github.com/reelrank/reelrank/internal/metrics"
)

// DefaultBatchSize movies go to the embedding API per request.
const DefaultBatchSize = 100

// BatchRange identifies a failed batch by its half-open movie index range.
type BatchRange struct {
	From int
	To   int
}

// Report summarizes one ingestion run.
type Report struct {
	Total         int
	Indexed       int
	Failed        int
	FailedBatches []BatchRange
	TotalTokens   int
}

// Options tunes an ingestion run. Zero values fall back to defaults.
type Options struct {
	BatchSize int

	// MaxMovies caps how many corpus movies are ingested. 0 means all.
	MaxMovies int
}

// Service embeds the corpus batch by batch and loads it into a freshly
// recreated index.
type Service struct {
	repo  Repository
	embed BatchEmbedder
}

// New creates an ingest service.
func New(repo Repository, embed BatchEmbedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// Run ingests the corpus. One batch failing is logged and skipped; the run
// continues so a transient provider error cannot discard hours of progress.
// The index is recreated before the first batch, so a re-run of the same
// corpus converges to the same index state.
func (s *Service) Run(ctx context.Context, movies []movie.Movie, opts Options) (*Report, error) {
	if len(movies) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if opts.MaxMovies > 0 && len(movies) > opts.MaxMovies {
		movies = movies[:opts.MaxMovies]
	}

	log := logger.FromContext(ctx)

	if err := s.repo.Recreate(ctx); err != nil {
		return nil, fmt.Errorf("recreate index: %w", err)
	}

	report := &Report{Total: len(movies)}

	for from := 0; from < len(movies); from += batchSize {
		to := from + batchSize
		if to > len(movies) {
			to = len(movies)
		}
		batch := movies[from:to]

		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingest aborted at batch %d..%d: %w", from, to, err)
		}

		texts := make([]string, len(batch))
		for i, m := range batch {
			texts[i] = m.TextToEmbed
		}

		res, err := s.embed.BatchEmbed(ctx, texts)
		if err != nil {
			s.failBatch(log, report, from, to, "embed batch", err)
			continue
		}
		report.TotalTokens += res.TotalTokens

		if err := s.repo.UpsertBatch(ctx, batch, res.Embeddings); err != nil {
			s.failBatch(log, report, from, to, "upsert batch", err)
			continue
		}

		report.Indexed += len(batch)
		metrics.IngestMoviesTotal.WithLabelValues("indexed").Add(float64(len(batch)))
		metrics.IngestBatchesTotal.WithLabelValues("ok").Inc()

		log.Info("batch indexed",
			zap.Int("from", from),
			zap.Int("to", to),
			zap.Int("indexed", report.Indexed),
			zap.Int("total", report.Total))
	}

	if count, err := s.repo.Count(ctx); err == nil && count != report.Indexed {
		log.Warn("index count does not match indexed movies",
			zap.Int("index_count", count),
			zap.Int("indexed", report.Indexed))
	}

	return report, nil
}

func (s *Service) failBatch(log *zap.Logger, report *Report, from, to int, stage string, err error) {
	n := to - from
	report.Failed += n
	report.FailedBatches = append(report.FailedBatches, BatchRange{From: from, To: to})
	metrics.IngestMoviesTotal.WithLabelValues("failed").Add(float64(n))
	metrics.IngestBatchesTotal.WithLabelValues("failed").Inc()

	log.Error("batch failed, continuing",
		zap.String("stage", stage),
		zap.Int("from", from),
		zap.Int("to", to),
		zap.Error(err))
}
