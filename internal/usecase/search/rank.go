package search

import (
	"sort"

	"github.com/reelrank/reelrank/internal/repository/movieindex"
)

// Fused score weights. Similarity dominates, the community rating breaks the
// near-ties the vector space cannot.
const (
	SimilarityWeight = 0.6
	RatingWeight     = 0.4
)

// DefaultOverFetch candidates are pulled from the index so re-ranking has
// room to reorder before the cut to DefaultTopK.
const (
	DefaultOverFetch = 20
	DefaultTopK      = 6
)

// Ranked is a candidate with its scoring breakdown.
type Ranked struct {
	Candidate  movieindex.Candidate
	Similarity float64
	Rating     float64 // on the 0..5 user scale, proxy when unrated
	Fused      float64
}

// MatchScore is the similarity as a display percentage.
func (r Ranked) MatchScore() float64 {
	return r.Similarity * 100
}

// similarity converts a cosine distance to a 0..1 similarity. Distances above
// 1 clamp to zero rather than going negative.
func similarity(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	return s
}

// effectiveRating returns the 0..5 rating used for fusion. Unrated movies
// fall back to half the public vote average so they are not buried purely
// for missing reconciled votes.
func effectiveRating(c movieindex.Candidate) float64 {
	if c.Movie.Rating != nil && c.Movie.Rating.Mean > 0 {
		return c.Movie.Rating.Mean
	}
	return c.Movie.VoteAverage / 2
}

// normalizeRating maps the 0..5 scale onto 0..1, clamping out-of-range input.
func normalizeRating(rating float64) float64 {
	n := rating / 5
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// Rank scores and orders candidates by fused score, highest first. The sort
// is stable: candidates with equal fused scores keep their arrival order,
// which is the index's distance order.
func Rank(candidates []movieindex.Candidate) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		sim := similarity(c.Distance)
		rating := effectiveRating(c)
		out = append(out, Ranked{
			Candidate:  c,
			Similarity: sim,
			Rating:     rating,
			Fused:      SimilarityWeight*sim + RatingWeight*normalizeRating(rating),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Fused > out[j].Fused
	})
	return out
}
