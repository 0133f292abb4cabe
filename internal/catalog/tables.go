// Package catalog reads the heterogeneous source tables (movie metadata,
// keyword and credit enrichments, the rating log and the identifier
// cross-reference) into typed in-memory relations.
package catalog

// MetadataRow is one row of the primary movie metadata table. ID is already
// normalized to canonical integer-string form. Genres carries the raw
// serialized genre list for the enricher.
type MetadataRow struct {
	ID          string
	Title       string
	Overview    string
	Tagline     string
	PosterPath  string
	Genres      string
	VoteAverage float64
}

// KeywordRow links a canonical ID to its raw serialized keyword list.
type KeywordRow struct {
	ID       string
	Keywords string
}

// CreditRow links a canonical ID to its raw serialized cast list.
type CreditRow struct {
	ID   string
	Cast string
}

// LinkRow is one identifier cross-reference entry: rating-log movie ID to
// external catalog ID, both in canonical string form. Rows lacking the
// external ID are dropped at load time.
type LinkRow struct {
	MovieID string
	TMDBID  string
}

// RatingRow is one raw rating-log entry.
type RatingRow struct {
	MovieID string
	Rating  float64
}

// Diagnostics summarizes a single table load. Dropped counts rows discarded
// for bad identifiers or short records; such rows are never fatal.
type Diagnostics struct {
	Source  string
	Rows    int
	Dropped int
}
