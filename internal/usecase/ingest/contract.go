package ingest

import (
	"context"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/domain/movie"
)

// Repository defines the index contract for ingestion.
type Repository interface {
	Recreate(ctx context.Context) error
	UpsertBatch(ctx context.Context, movies []movie.Movie, vectors [][]float32) error
	Count(ctx context.Context) (int, error)
}

// BatchEmbedder vectorizes a batch of texts in one call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
