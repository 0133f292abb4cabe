package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/logger"
)

// Result is one recommendation returned to the caller.
type Result struct {
	ID          string
	Title       string
	Overview    string
	PosterPath  string
	MatchScore  float64
	UserRating  float64
	RatingCount int
	VoteAverage float64
	FusedScore  float64
}

// Response carries the recommendations plus the optional LLM extras.
type Response struct {
	Results []Result

	// OptimizedQuery is set only when the optimizer produced a query that
	// differs from what the user typed.
	OptimizedQuery string

	// Narrative is the recommendation text, empty when narration is
	// disabled or failed.
	Narrative string
}

// Options tunes a single search call. Zero values fall back to defaults.
type Options struct {
	TopK      int
	OverFetch int
}

// Service embeds the query, over-fetches nearest movies and re-ranks them by
// fused similarity and community rating.
type Service struct {
	repo      Repository
	embed     Embedder
	optimizer QueryOptimizer // nil when LLM disabled
	narrator  Narrator       // nil when LLM disabled

	optimizeTimeout time.Duration

	defaultTopK      int
	defaultOverFetch int
}

// New creates a search service. optimizer and narrator may be nil.
func New(repo Repository, embed Embedder, optimizer QueryOptimizer, narrator Narrator, optimizeTimeout time.Duration) *Service {
	if optimizeTimeout <= 0 {
		optimizeTimeout = 5 * time.Second
	}
	return &Service{
		repo:             repo,
		embed:            embed,
		optimizer:        optimizer,
		narrator:         narrator,
		optimizeTimeout:  optimizeTimeout,
		defaultTopK:      DefaultTopK,
		defaultOverFetch: DefaultOverFetch,
	}
}

// WithLimits overrides the default result count and candidate over-fetch.
func (s *Service) WithLimits(topK, overFetch int) *Service {
	if topK > 0 {
		s.defaultTopK = topK
	}
	if overFetch > 0 {
		s.defaultOverFetch = overFetch
	}
	return s
}

// Search runs the full retrieval flow for one query.
func (s *Service) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	overFetch := opts.OverFetch
	if overFetch <= 0 {
		overFetch = s.defaultOverFetch
	}
	if overFetch < topK {
		overFetch = topK
	}

	log := logger.FromContext(ctx)

	searchQuery, optimized := s.optimize(ctx, query)

	emb, err := s.embed.Embed(ctx, searchQuery)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingProviderError) {
			return nil, fmt.Errorf("vectorize query: %w", err)
		}
		return nil, fmt.Errorf("vectorize query: %w: %w", domain.ErrRetrievalUnavailable, err)
	}

	candidates, err := s.repo.Query(ctx, emb.Embedding, overFetch)
	if err != nil {
		return nil, fmt.Errorf("query index: %w: %w", domain.ErrRetrievalUnavailable, err)
	}

	ranked := Rank(candidates)
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	resp := &Response{Results: make([]Result, 0, len(ranked))}
	if optimized {
		resp.OptimizedQuery = searchQuery
	}

	for _, r := range ranked {
		m := r.Candidate.Movie
		resp.Results = append(resp.Results, Result{
			ID:          m.ID,
			Title:       m.Title,
			Overview:    m.Overview,
			PosterPath:  m.PosterPath,
			MatchScore:  r.MatchScore(),
			UserRating:  m.UserRating(),
			RatingCount: m.RatingCount(),
			VoteAverage: m.VoteAverage,
			FusedScore:  r.Fused,
		})
	}

	resp.Narrative = s.narrate(ctx, query, ranked)

	log.Debug("search completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(resp.Results)),
		zap.Bool("optimized", optimized))

	return resp, nil
}

// optimize expands the query through the LLM when configured. Any failure
// falls back to the original query; optimization is never allowed to fail
// a search.
func (s *Service) optimize(ctx context.Context, query string) (string, bool) {
	if s.optimizer == nil {
		return query, false
	}

	optCtx, cancel := context.WithTimeout(ctx, s.optimizeTimeout)
	defer cancel()

	optimized, err := s.optimizer.OptimizeQuery(optCtx, query)
	if err != nil {
		logger.FromContext(ctx).Warn("query optimization failed, using original query", zap.Error(err))
		return query, false
	}
	optimized = strings.TrimSpace(optimized)
	if optimized == "" || optimized == query {
		return query, false
	}
	return optimized, true
}

// narrate builds the recommendation text from the top hits. Failures are
// logged and swallowed.
func (s *Service) narrate(ctx context.Context, query string, ranked []Ranked) string {
	if s.narrator == nil || len(ranked) == 0 {
		return ""
	}

	top := ranked
	if len(top) > 3 {
		top = top[:3]
	}
	movies := make([]NarrativeContext, 0, len(top))
	for _, r := range top {
		movies = append(movies, NarrativeContext{
			Title:      r.Candidate.Movie.Title,
			Overview:   r.Candidate.Movie.Overview,
			Genres:     r.Candidate.Movie.GenresText,
			MatchScore: r.MatchScore(),
		})
	}

	text, err := s.narrator.Narrate(ctx, query, movies)
	if err != nil {
		logger.FromContext(ctx).Warn("narrative generation failed", zap.Error(err))
		return ""
	}
	return text
}
