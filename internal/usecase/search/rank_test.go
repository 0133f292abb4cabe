package search

import (
	"math"
	"testing"

	"github.com/reelrank/reelrank/internal/domain/movie"
	"github.com/reelrank/reelrank/internal/repository/movieindex"
)

func candidate(id string, distance float64, rating *movie.Rating, voteAverage float64) movieindex.Candidate {
	return movieindex.Candidate{
		Movie:    movie.Movie{ID: id, Rating: rating, VoteAverage: voteAverage},
		Distance: distance,
	}
}

func TestRankFusedScore(t *testing.T) {
	// similarity 0.8, rating 4.0/5 -> 0.6*0.8 + 0.4*0.8 = 0.80
	a := candidate("a", 0.2, &movie.Rating{Mean: 4.0, Count: 50}, 8.0)
	// similarity 0.9, rating 1.5/5 -> 0.6*0.9 + 0.4*0.3 = 0.66
	b := candidate("b", 0.1, &movie.Rating{Mean: 1.5, Count: 50}, 3.0)

	ranked := Rank([]movieindex.Candidate{b, a})

	if ranked[0].Candidate.Movie.ID != "a" {
		t.Fatalf("ranked[0] = %s, want a: rating fusion must beat raw similarity", ranked[0].Candidate.Movie.ID)
	}
	if math.Abs(ranked[0].Fused-0.80) > 1e-9 {
		t.Errorf("fused score = %v, want 0.80", ranked[0].Fused)
	}
	if math.Abs(ranked[1].Fused-0.66) > 1e-9 {
		t.Errorf("fused score = %v, want 0.66", ranked[1].Fused)
	}
}

func TestRankDeterministic(t *testing.T) {
	// A: distance 0.2, rating 5.0 -> 0.6*0.8 + 0.4*1.0 = 0.88
	// B: distance 0.1, unrated, no vote average -> 0.6*0.9 = 0.54
	a := candidate("A", 0.2, &movie.Rating{Mean: 5.0, Count: 100}, 10)
	b := candidate("B", 0.1, nil, 0)

	ranked := Rank([]movieindex.Candidate{b, a})

	if math.Abs(ranked[0].Fused-0.88) > 1e-9 {
		t.Errorf("A fused = %v, want 0.88", ranked[0].Fused)
	}
	if math.Abs(ranked[1].Fused-0.54) > 1e-9 {
		t.Errorf("B fused = %v, want 0.54", ranked[1].Fused)
	}
	if ranked[0].Candidate.Movie.ID != "A" {
		t.Errorf("order = %s,%s, want A,B", ranked[0].Candidate.Movie.ID, ranked[1].Candidate.Movie.ID)
	}
}

func TestRankStableOnTies(t *testing.T) {
	// Identical scores keep index arrival order.
	c1 := candidate("first", 0.3, &movie.Rating{Mean: 4.0, Count: 20}, 8.0)
	c2 := candidate("second", 0.3, &movie.Rating{Mean: 4.0, Count: 20}, 8.0)

	ranked := Rank([]movieindex.Candidate{c1, c2})

	if ranked[0].Candidate.Movie.ID != "first" || ranked[1].Candidate.Movie.ID != "second" {
		t.Errorf("tie order = %s,%s, want first,second",
			ranked[0].Candidate.Movie.ID, ranked[1].Candidate.Movie.ID)
	}
}

func TestSimilarityClamp(t *testing.T) {
	if got := similarity(1.7); got != 0 {
		t.Errorf("similarity(1.7) = %v, want 0", got)
	}
	if got := similarity(0); got != 1 {
		t.Errorf("similarity(0) = %v, want 1", got)
	}
}

func TestEffectiveRatingProxy(t *testing.T) {
	unrated := candidate("x", 0.5, nil, 7.0)
	if got := effectiveRating(unrated); got != 3.5 {
		t.Errorf("proxy rating = %v, want 3.5", got)
	}

	zeroMean := candidate("y", 0.5, &movie.Rating{Mean: 0, Count: 5}, 6.0)
	if got := effectiveRating(zeroMean); got != 3.0 {
		t.Errorf("zero-mean proxy = %v, want 3.0", got)
	}

	rated := candidate("z", 0.5, &movie.Rating{Mean: 4.5, Count: 5}, 2.0)
	if got := effectiveRating(rated); got != 4.5 {
		t.Errorf("rated = %v, want 4.5", got)
	}
}

func TestNormalizeRatingClamp(t *testing.T) {
	if got := normalizeRating(7.5); got != 1 {
		t.Errorf("normalizeRating(7.5) = %v, want 1", got)
	}
	if got := normalizeRating(-1); got != 0 {
		t.Errorf("normalizeRating(-1) = %v, want 0", got)
	}
	if got := normalizeRating(2.5); got != 0.5 {
		t.Errorf("normalizeRating(2.5) = %v, want 0.5", got)
	}
}
