package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/reelrank/reelrank/internal/domain/movie"
)

// artifactHeader pins the corpus file layout. Readers resolve columns by
// position, so the order is part of the artifact contract.
var artifactHeader = []string{
	"id",
	"title",
	"overview",
	"poster_path",
	"genres_text",
	"cast_text",
	"keywords_text",
	"vote_average",
	"ml_rating",
	"ml_count",
	"text_to_embed",
}

// WriteArtifact persists the finalized corpus. Absent ratings are written as
// empty cells so a reread distinguishes "no rating" from a zero rating.
func WriteArtifact(path string, movies []movie.Movie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(artifactHeader); err != nil {
		return fmt.Errorf("write corpus header: %w", err)
	}

	for _, m := range movies {
		rating, count := "", ""
		if m.Rating != nil {
			rating = strconv.FormatFloat(m.Rating.Mean, 'g', -1, 64)
			count = strconv.Itoa(m.Rating.Count)
		}
		rec := []string{
			m.ID,
			m.Title,
			m.Overview,
			m.PosterPath,
			m.GenresText,
			m.CastText,
			m.KeywordText,
			strconv.FormatFloat(m.VoteAverage, 'g', -1, 64),
			rating,
			count,
			m.TextToEmbed,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write corpus row %s: %w", m.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush corpus: %w", err)
	}
	return f.Close()
}

// ReadArtifact loads a corpus file written by WriteArtifact.
func ReadArtifact(path string) ([]movie.Movie, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read corpus header: %w", err)
	}
	if len(header) != len(artifactHeader) {
		return nil, fmt.Errorf("read corpus: header has %d columns, want %d", len(header), len(artifactHeader))
	}
	for i, name := range artifactHeader {
		if header[i] != name {
			return nil, fmt.Errorf("read corpus: column %d is %q, want %q", i, header[i], name)
		}
	}

	var out []movie.Movie
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read corpus row: %w", err)
		}

		vote, err := strconv.ParseFloat(rec[7], 64)
		if err != nil {
			return nil, fmt.Errorf("read corpus row %s: vote_average: %w", rec[0], err)
		}

		m := movie.Movie{
			ID:          rec[0],
			Title:       rec[1],
			Overview:    rec[2],
			PosterPath:  rec[3],
			GenresText:  rec[4],
			CastText:    rec[5],
			KeywordText: rec[6],
			VoteAverage: vote,
			TextToEmbed: rec[10],
		}

		if rec[8] != "" {
			mean, err := strconv.ParseFloat(rec[8], 64)
			if err != nil {
				return nil, fmt.Errorf("read corpus row %s: ml_rating: %w", rec[0], err)
			}
			count, err := strconv.Atoi(rec[9])
			if err != nil {
				return nil, fmt.Errorf("read corpus row %s: ml_count: %w", rec[0], err)
			}
			m.Rating = &movie.Rating{Mean: mean, Count: count}
		}

		out = append(out, m)
	}

	return out, nil
}
