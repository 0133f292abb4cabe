package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/reelrank/reelrank/internal/domain"
)

// NormalizeID coerces a numeric identifier cell to canonical integer-string
// form. Source tables carry decimal noise ("862.0") that must collapse to
// "862". Returns false for cells that fail numeric coercion.
func NormalizeID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

// LoadMetadata reads the primary movie metadata table. Rows whose identifier
// fails numeric coercion are dropped and counted, never fatal.
func LoadMetadata(path string) ([]MetadataRow, Diagnostics, error) {
	diag := Diagnostics{Source: filepath.Base(path)}

	rows, header, err := readCSV(path)
	if err != nil {
		return nil, diag, fmt.Errorf("load metadata: %w", err)
	}

	col, err := resolveColumns(header, "id", "original_title", "overview", "tagline", "poster_path", "genres", "vote_average")
	if err != nil {
		return nil, diag, fmt.Errorf("load metadata: %w", err)
	}

	out := make([]MetadataRow, 0, len(rows))
	for _, rec := range rows {
		id, ok := NormalizeID(field(rec, col["id"]))
		if !ok {
			diag.Dropped++
			continue
		}

		vote, _ := strconv.ParseFloat(field(rec, col["vote_average"]), 64)

		out = append(out, MetadataRow{
			ID:          id,
			Title:       field(rec, col["original_title"]),
			Overview:    field(rec, col["overview"]),
			Tagline:     field(rec, col["tagline"]),
			PosterPath:  field(rec, col["poster_path"]),
			Genres:      field(rec, col["genres"]),
			VoteAverage: vote,
		})
	}

	diag.Rows = len(out)
	return out, diag, nil
}

// LoadKeywords reads the optional keyword enrichment table. A missing file
// yields domain.ErrSourceUnavailable; the pipeline continues without it.
func LoadKeywords(path string) ([]KeywordRow, Diagnostics, error) {
	diag := Diagnostics{Source: filepath.Base(path)}

	rows, header, err := readCSV(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, diag, fmt.Errorf("keywords table %s: %w", path, domain.ErrSourceUnavailable)
		}
		return nil, diag, fmt.Errorf("load keywords: %w", err)
	}

	col, err := resolveColumns(header, "id", "keywords")
	if err != nil {
		return nil, diag, fmt.Errorf("load keywords: %w", err)
	}

	out := make([]KeywordRow, 0, len(rows))
	for _, rec := range rows {
		id, ok := NormalizeID(field(rec, col["id"]))
		if !ok {
			diag.Dropped++
			continue
		}
		out = append(out, KeywordRow{ID: id, Keywords: field(rec, col["keywords"])})
	}

	diag.Rows = len(out)
	return out, diag, nil
}

// LoadCredits reads the optional credits table. A missing file yields
// domain.ErrSourceUnavailable; the pipeline continues without it.
func LoadCredits(path string) ([]CreditRow, Diagnostics, error) {
	diag := Diagnostics{Source: filepath.Base(path)}

	rows, header, err := readCSV(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, diag, fmt.Errorf("credits table %s: %w", path, domain.ErrSourceUnavailable)
		}
		return nil, diag, fmt.Errorf("load credits: %w", err)
	}

	col, err := resolveColumns(header, "id", "cast")
	if err != nil {
		return nil, diag, fmt.Errorf("load credits: %w", err)
	}

	out := make([]CreditRow, 0, len(rows))
	for _, rec := range rows {
		id, ok := NormalizeID(field(rec, col["id"]))
		if !ok {
			diag.Dropped++
			continue
		}
		out = append(out, CreditRow{ID: id, Cast: field(rec, col["cast"])})
	}

	diag.Rows = len(out)
	return out, diag, nil
}

// LoadLinks reads the identifier cross-reference table. Rows missing the
// external catalog ID are dropped and counted.
func LoadLinks(path string) ([]LinkRow, Diagnostics, error) {
	diag := Diagnostics{Source: filepath.Base(path)}

	rows, header, err := readCSV(path)
	if err != nil {
		return nil, diag, fmt.Errorf("load links: %w", err)
	}

	col, err := resolveColumns(header, "movieId", "tmdbId")
	if err != nil {
		return nil, diag, fmt.Errorf("load links: %w", err)
	}

	out := make([]LinkRow, 0, len(rows))
	for _, rec := range rows {
		movieID, ok := NormalizeID(field(rec, col["movieId"]))
		if !ok {
			diag.Dropped++
			continue
		}
		tmdbID, ok := NormalizeID(field(rec, col["tmdbId"]))
		if !ok {
			diag.Dropped++
			continue
		}
		out = append(out, LinkRow{MovieID: movieID, TMDBID: tmdbID})
	}

	diag.Rows = len(out)
	return out, diag, nil
}

// LoadRatings reads the raw rating log. Parquet files are dispatched to the
// streaming parquet reader; anything else is read as CSV.
func LoadRatings(path string) ([]RatingRow, Diagnostics, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return loadRatingsParquet(path)
	}
	return loadRatingsCSV(path)
}

func loadRatingsCSV(path string) ([]RatingRow, Diagnostics, error) {
	diag := Diagnostics{Source: filepath.Base(path)}

	rows, header, err := readCSV(path)
	if err != nil {
		return nil, diag, fmt.Errorf("load ratings: %w", err)
	}

	col, err := resolveColumns(header, "movieId", "rating")
	if err != nil {
		return nil, diag, fmt.Errorf("load ratings: %w", err)
	}

	out := make([]RatingRow, 0, len(rows))
	for _, rec := range rows {
		movieID, ok := NormalizeID(field(rec, col["movieId"]))
		if !ok {
			diag.Dropped++
			continue
		}
		rating, err := strconv.ParseFloat(field(rec, col["rating"]), 64)
		if err != nil {
			diag.Dropped++
			continue
		}
		out = append(out, RatingRow{MovieID: movieID, Rating: rating})
	}

	diag.Rows = len(out)
	return out, diag, nil
}

// readCSV reads a whole CSV file, returning data records and the header.
// LazyQuotes and variable record length tolerate the messy upstream dumps.
func readCSV(path string) ([][]string, []string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, rec)
	}

	return rows, header, nil
}

// resolveColumns maps required column names to their header positions.
func resolveColumns(header []string, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	out := make(map[string]int, len(names))
	for _, name := range names {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("column %q not found: %w", name, domain.ErrMalformedRecord)
		}
		out[name] = i
	}
	return out, nil
}

// field returns rec[i] or "" when the record is short.
func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
