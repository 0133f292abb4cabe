// Package movieindex stores corpus movies as redis hashes under a vector
// index and resolves KNN candidates back into domain movies.
package movieindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/reelrank/reelrank/internal/db"
	"github.com/reelrank/reelrank/internal/domain/movie"
)

// Hash field names. The metadata fields come back on every search hit, so
// only what result rendering needs is stored.
const (
	fieldVector      = "vector"
	fieldDocument    = "text_to_embed"
	fieldTitle       = "title"
	fieldOverview    = "overview"
	fieldGenres      = "genres_text"
	fieldPosterPath  = "poster_path"
	fieldVoteAverage = "vote_average"
	fieldMLRating    = "ml_rating"
	fieldMLCount     = "ml_count"
)

// Stored synopses are truncated to a character budget: search hits render a
// preview, not the full text. The document field keeps the full embedded
// text.
const maxStoredOverview = 500

// Candidate is one KNN hit with its raw index distance.
type Candidate struct {
	Movie    movie.Movie
	Distance float64
}

type store interface {
	db.HashStore
	db.IndexManager
	db.Searcher
}

// Repository persists and searches the movie corpus index.
type Repository struct {
	store      store
	collection string
	keyPrefix  string
	dimensions int
}

// New builds a Repository over the given store. keyPrefix is prepended to
// movie IDs to form hash keys; collection names the FT index.
func New(s store, collection, keyPrefix string, dimensions int) *Repository {
	return &Repository{
		store:      s,
		collection: collection,
		keyPrefix:  keyPrefix,
		dimensions: dimensions,
	}
}

func (r *Repository) key(id string) string {
	return r.keyPrefix + id
}

func (r *Repository) definition() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     r.collection,
		Prefixes: []string{r.keyPrefix},
		Fields: []db.IndexField{
			{
				Name:           fieldVector,
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorHNSW,
				VectorDim:      r.dimensions,
				VectorDistance: db.DistanceCosine,
			},
			{Name: fieldTitle, Type: db.IndexFieldText},
			{Name: fieldVoteAverage, Type: db.IndexFieldNumeric},
			{Name: fieldMLRating, Type: db.IndexFieldNumeric},
		},
	}
}

// Recreate drops the index and every stored document, then creates the index
// fresh. Ingestion always starts from a clean collection so a re-run cannot
// leave stale documents behind.
func (r *Repository) Recreate(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.collection); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.collection, err)
	}

	keys, err := r.store.Scan(ctx, r.keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan %s keys: %w", r.keyPrefix, err)
	}
	if len(keys) > 0 {
		if err := r.store.DelMulti(ctx, keys); err != nil {
			return fmt.Errorf("purge %d keys: %w", len(keys), err)
		}
	}

	if err := r.store.CreateIndex(ctx, r.definition()); err != nil {
		return fmt.Errorf("create index %s: %w", r.collection, err)
	}
	return nil
}

// UpsertBatch writes one hash per movie with its embedding. movies and
// vectors are parallel slices.
func (r *Repository) UpsertBatch(ctx context.Context, movies []movie.Movie, vectors [][]float32) error {
	if len(movies) != len(vectors) {
		return fmt.Errorf("upsert batch: %d movies, %d vectors", len(movies), len(vectors))
	}

	items := make([]db.HashSetItem, 0, len(movies))
	for i, m := range movies {
		if len(vectors[i]) != r.dimensions {
			return fmt.Errorf("upsert batch: movie %s vector has %d dims, want %d", m.ID, len(vectors[i]), r.dimensions)
		}

		fields := map[string]string{
			fieldVector:      string(db.VectorBytes(vectors[i])),
			fieldDocument:    m.TextToEmbed,
			fieldTitle:       m.Title,
			fieldOverview:    truncateRunes(m.Overview, maxStoredOverview),
			fieldGenres:      m.GenresText,
			fieldPosterPath:  m.PosterPath,
			fieldVoteAverage: strconv.FormatFloat(m.VoteAverage, 'g', -1, 64),
			fieldMLRating:    strconv.FormatFloat(m.UserRating(), 'g', -1, 64),
			fieldMLCount:     strconv.Itoa(m.RatingCount()),
		}
		items = append(items, db.HashSetItem{Key: r.key(m.ID), Fields: fields})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert batch of %d: %w", len(items), err)
	}
	return nil
}

// Query returns the k nearest stored movies to the given vector, closest
// first, with the raw index distance attached.
func (r *Repository) Query(ctx context.Context, vector []float32, k int) ([]Candidate, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.collection,
		Vector:    vector,
		K:         k,
		ReturnFields: []string{
			fieldDocument, fieldTitle, fieldOverview, fieldGenres,
			fieldPosterPath, fieldVoteAverage, fieldMLRating, fieldMLCount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}

	out := make([]Candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, Candidate{Movie: r.entryMovie(e), Distance: e.Distance})
	}
	return out, nil
}

// Count returns the number of indexed documents.
func (r *Repository) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.collection)
	if err != nil {
		return 0, fmt.Errorf("count index %s: %w", r.collection, err)
	}
	return n, nil
}

func (r *Repository) entryMovie(e db.SearchEntry) movie.Movie {
	m := movie.Movie{
		ID:          idFromKey(e.Key, r.keyPrefix),
		Title:       e.Fields[fieldTitle],
		Overview:    e.Fields[fieldOverview],
		GenresText:  e.Fields[fieldGenres],
		PosterPath:  e.Fields[fieldPosterPath],
		TextToEmbed: e.Fields[fieldDocument],
	}
	m.VoteAverage, _ = strconv.ParseFloat(e.Fields[fieldVoteAverage], 64)

	mean, _ := strconv.ParseFloat(e.Fields[fieldMLRating], 64)
	count, _ := strconv.Atoi(e.Fields[fieldMLCount])
	if mean > 0 {
		m.Rating = &movie.Rating{Mean: mean, Count: count}
	}
	return m
}

// truncateRunes cuts s to at most max characters, never splitting a rune.
func truncateRunes(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func idFromKey(key, prefix string) string {
	if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}
