package reconcile

import (
	"github.com/reelrank/reelrank/internal/catalog"
	"github.com/reelrank/reelrank/internal/domain/movie"
)

// Summary reports how much of the rating log survived each reconciliation
// stage. Used for reconcile-run logging only.
type Summary struct {
	RatingGroups  int
	LinkedGroups  int
	MoviesMatched int
	MoviesUnrated int
}

// aggregate is a per-group rating accumulator.
type aggregate struct {
	sum   float64
	count int
}

func (a aggregate) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// AggregateRatings collapses the raw rating log into one mean/count pair per
// internal movie identifier.
func AggregateRatings(rows []catalog.RatingRow) map[string]movie.Rating {
	groups := make(map[string]*aggregate)
	for _, r := range rows {
		g, ok := groups[r.MovieID]
		if !ok {
			g = &aggregate{}
			groups[r.MovieID] = g
		}
		g.sum += r.Rating
		g.count++
	}

	out := make(map[string]movie.Rating, len(groups))
	for id, g := range groups {
		out[id] = movie.Rating{Mean: g.mean(), Count: g.count}
	}
	return out
}

// Consolidate maps aggregated ratings onto canonical catalog identifiers via
// the cross-reference table. When several internal identifiers point at the
// same canonical movie their group means are averaged and their vote counts
// summed, so no vote is double-counted and no group dominates the mean.
func Consolidate(byMovieID map[string]movie.Rating, links []catalog.LinkRow) map[string]movie.Rating {
	type fanIn struct {
		meanSum float64
		groups  int
		count   int
	}

	merged := make(map[string]*fanIn)
	for _, l := range links {
		r, ok := byMovieID[l.MovieID]
		if !ok {
			continue
		}
		f, ok := merged[l.TMDBID]
		if !ok {
			f = &fanIn{}
			merged[l.TMDBID] = f
		}
		f.meanSum += r.Mean
		f.groups++
		f.count += r.Count
	}

	out := make(map[string]movie.Rating, len(merged))
	for id, f := range merged {
		out[id] = movie.Rating{Mean: f.meanSum / float64(f.groups), Count: f.count}
	}
	return out
}

// Attach joins consolidated ratings onto movies by canonical identifier.
// Movies without a rating group keep a nil Rating, which downstream ranking
// treats as absence rather than a zero score. Returns the join summary.
func Attach(movies []movie.Movie, ratings map[string]movie.Rating) Summary {
	var sum Summary
	for i := range movies {
		r, ok := ratings[movies[i].ID]
		if !ok {
			movies[i].Rating = nil
			sum.MoviesUnrated++
			continue
		}
		rc := r
		movies[i].Rating = &rc
		sum.MoviesMatched++
	}
	return sum
}

// Reconcile runs the full rating reconciliation: aggregate the raw log,
// consolidate through the link table, attach to the catalog.
func Reconcile(movies []movie.Movie, ratings []catalog.RatingRow, links []catalog.LinkRow) Summary {
	byMovieID := AggregateRatings(ratings)
	consolidated := Consolidate(byMovieID, links)

	sum := Attach(movies, consolidated)
	sum.RatingGroups = len(byMovieID)
	sum.LinkedGroups = len(consolidated)
	return sum
}
