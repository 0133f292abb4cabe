package corpus

import (
	"strings"

	"github.com/reelrank/reelrank/internal/catalog"
	"github.com/reelrank/reelrank/internal/domain/movie"
	"github.com/reelrank/reelrank/internal/enrich"
)

// Enrichment list caps keep the synthesized text focused on the names that
// actually identify a movie.
const (
	maxCastNames    = 5
	maxKeywordNames = 10
)

// Stats reports what the corpus build kept and dropped.
type Stats struct {
	Input        int
	Duplicates   int
	NoSynopsis   int
	Kept         int
	WithCast     int
	WithKeywords int
}

// Build turns the reconciled catalog tables into corpus movies. Duplicate
// identifiers keep the first occurrence; rows whose synopsis is empty are
// excluded since there is nothing meaningful to embed for them.
func Build(metadata []catalog.MetadataRow, keywords []catalog.KeywordRow, credits []catalog.CreditRow) ([]movie.Movie, Stats) {
	stats := Stats{Input: len(metadata)}

	keywordsByID := make(map[string]string, len(keywords))
	for _, k := range keywords {
		if _, ok := keywordsByID[k.ID]; !ok {
			keywordsByID[k.ID] = k.Keywords
		}
	}
	castByID := make(map[string]string, len(credits))
	for _, c := range credits {
		if _, ok := castByID[c.ID]; !ok {
			castByID[c.ID] = c.Cast
		}
	}

	seen := make(map[string]struct{}, len(metadata))
	out := make([]movie.Movie, 0, len(metadata))

	for _, row := range metadata {
		if _, dup := seen[row.ID]; dup {
			stats.Duplicates++
			continue
		}
		seen[row.ID] = struct{}{}

		if strings.TrimSpace(row.Overview) == "" {
			stats.NoSynopsis++
			continue
		}

		m := movie.Movie{
			ID:          row.ID,
			Title:       row.Title,
			Overview:    row.Overview,
			Tagline:     row.Tagline,
			PosterPath:  row.PosterPath,
			VoteAverage: row.VoteAverage,
			GenresText:  enrich.ParseNames(row.Genres, 0),
			CastText:    enrich.ParseNames(castByID[row.ID], maxCastNames),
			KeywordText: enrich.ParseNames(keywordsByID[row.ID], maxKeywordNames),
		}
		if m.CastText != "" {
			stats.WithCast++
		}
		if m.KeywordText != "" {
			stats.WithKeywords++
		}
		out = append(out, m)
	}

	stats.Kept = len(out)
	return out, stats
}

// Finalize fills TextToEmbed for every movie. Call after rating attachment
// so the rating sentence reflects reconciled votes.
func Finalize(movies []movie.Movie) {
	for i := range movies {
		movies[i].TextToEmbed = SynthesizeText(movies[i])
	}
}
