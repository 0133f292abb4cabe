package corpus

import (
	"fmt"
	"strings"

	"github.com/reelrank/reelrank/internal/domain/movie"
)

// Embedding text is synthesized in Spanish to match the deployment's query
// language. Segment order and wording are part of the corpus contract: a
// rebuilt corpus must produce byte-identical text for unchanged inputs.
const (
	segmentGenres   = "Esta es una película de %s."
	segmentCast     = "Protagonizada por %s."
	segmentKeywords = "Trata sobre: %s."
	segmentRating   = "Tiene una calificación de usuarios de %.1f sobre 5."
)

// Rating sentences below this vote count are suppressed: tiny samples say
// more about the sample than the movie.
const minRatingVotes = 10

// SynthesizeText builds the natural-language description that gets embedded
// for a movie. Segments for absent fields are omitted entirely rather than
// rendered empty, and the rating sentence requires both a reconciled rating
// and more than minRatingVotes votes behind it. The tagline, when present,
// closes the text verbatim.
func SynthesizeText(m movie.Movie) string {
	segments := make([]string, 0, 6)

	title := strings.TrimSpace(m.Title)
	overview := strings.TrimSpace(m.Overview)
	switch {
	case title != "" && overview != "":
		segments = append(segments, fmt.Sprintf("%s. %s", title, overview))
	case overview != "":
		segments = append(segments, overview)
	}

	if g := strings.TrimSpace(m.GenresText); g != "" {
		segments = append(segments, fmt.Sprintf(segmentGenres, g))
	}
	if c := strings.TrimSpace(m.CastText); c != "" {
		segments = append(segments, fmt.Sprintf(segmentCast, c))
	}
	if k := strings.TrimSpace(m.KeywordText); k != "" {
		segments = append(segments, fmt.Sprintf(segmentKeywords, k))
	}
	if m.Rating != nil && m.Rating.Count > minRatingVotes {
		segments = append(segments, fmt.Sprintf(segmentRating, m.Rating.Mean))
	}
	if tl := strings.TrimSpace(m.Tagline); tl != "" {
		segments = append(segments, tl)
	}

	return strings.Join(segments, " ")
}
