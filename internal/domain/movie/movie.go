// Package movie holds the reconciled corpus unit and its rating aggregate.
package movie

// Rating is the aggregated user-rating signal for one movie, produced by
// grouping the raw rating log and consolidating it through the identifier
// cross-reference. Mean is on a 0-5 scale.
type Rating struct {
	Mean  float64
	Count int
}

// Movie is one reconciled corpus item, keyed by the canonical ID (the
// external catalog's numeric identifier in string form). It is immutable
// once ingested; updates require a full re-ingestion of the collection.
type Movie struct {
	ID          string
	Title       string
	Overview    string
	Tagline     string
	PosterPath  string
	GenresText  string
	CastText    string
	KeywordText string

	// VoteAverage is the community vote on a 0-10 scale, 0 when absent.
	VoteAverage float64

	// Rating is nil when no rating-log rows were linked to this movie.
	// Absence is distinct from a zero rating.
	Rating *Rating

	// TextToEmbed is synthesized deterministically from the fields above;
	// it is never hand-edited.
	TextToEmbed string
}

// UserRating returns the aggregated mean rating or 0 when absent.
func (m *Movie) UserRating() float64 {
	if m.Rating == nil {
		return 0
	}
	return m.Rating.Mean
}

// RatingCount returns the total number of underlying ratings or 0 when absent.
func (m *Movie) RatingCount() int {
	if m.Rating == nil {
		return 0
	}
	return m.Rating.Count
}
