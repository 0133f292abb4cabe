package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
)

// loadRatingsParquet streams a rating-log parquet file. Large rating dumps
// ship as parquet; the generic row reader avoids materializing the schema.
func loadRatingsParquet(path string) ([]RatingRow, Diagnostics, error) {
	diag := Diagnostics{Source: filepath.Base(path)}

	h, err := openParquet(path)
	if err != nil {
		return nil, diag, fmt.Errorf("load ratings: %w", err)
	}
	defer h.Close()

	movieIdx, ratingIdx := -1, -1
	for i, col := range h.pf.Schema().Columns() {
		if len(col) == 0 {
			continue
		}
		switch col[0] {
		case "movieId":
			movieIdx = i
		case "rating":
			ratingIdx = i
		}
	}
	if movieIdx < 0 || ratingIdx < 0 {
		return nil, diag, fmt.Errorf("load ratings: movieId/rating columns not found in parquet schema")
	}

	var out []RatingRow

	for _, rg := range h.pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		buf := make([]parquet.Row, 1000)

		for {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				row, ok := parquetRatingRow(buf[i], movieIdx, ratingIdx)
				if !ok {
					diag.Dropped++
					continue
				}
				out = append(out, row)
			}

			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, diag, fmt.Errorf("load ratings: read rows: %w", readErr)
			}
		}
	}

	diag.Rows = len(out)
	return out, diag, nil
}

func parquetRatingRow(row parquet.Row, movieIdx, ratingIdx int) (RatingRow, bool) {
	var movieID string
	var rating float64
	haveMovie, haveRating := false, false

	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case movieIdx:
			switch v.Kind() {
			case parquet.Int32, parquet.Int64:
				movieID = strconv.FormatInt(v.Int64(), 10)
				haveMovie = true
			default:
				movieID, haveMovie = NormalizeID(v.String())
			}
		case ratingIdx:
			rating = v.Double()
			haveRating = true
		}
	}

	if !haveMovie || !haveRating {
		return RatingRow{}, false
	}
	return RatingRow{MovieID: movieID, Rating: rating}, true
}

// parquetHandle wraps parquet.File + underlying os.File for proper cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	cleanPath := filepath.Clean(path)
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
