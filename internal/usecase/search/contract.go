package search

import (
	"context"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/repository/movieindex"
)

// Repository defines the index contract for search operations.
type Repository interface {
	Query(ctx context.Context, vector []float32, k int) ([]movieindex.Candidate, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// QueryOptimizer expands a user query for better semantic recall. Optional.
type QueryOptimizer interface {
	OptimizeQuery(ctx context.Context, query string) (string, error)
}

// Narrator generates a recommendation text over the top ranked hits. Optional.
type Narrator interface {
	Narrate(ctx context.Context, query string, movies []NarrativeContext) (string, error)
}

// NarrativeContext is one ranked hit handed to the Narrator.
type NarrativeContext struct {
	Title      string
	Overview   string
	Genres     string
	MatchScore float64
}
