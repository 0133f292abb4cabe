package movieindex

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/reelrank/reelrank/internal/db"
	"github.com/reelrank/reelrank/internal/domain/movie"
)

type fakeStore struct {
	hashes  map[string]map[string]string
	index   *db.IndexDefinition
	dropped []string

	searchResult *db.SearchResult
	searchErr    error
	lastQuery    *db.KNNQuery
}

func newFakeStore() *fakeStore {
	return &fakeStore{hashes: map[string]map[string]string{}}
}

func (f *fakeStore) HSet(_ context.Context, key string, fields map[string]string) error {
	f.hashes[key] = fields
	return nil
}

func (f *fakeStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		if err := f.HSet(ctx, it.Key, it.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	h, ok := f.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return h, nil
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	delete(f.hashes, key)
	return nil
}

func (f *fakeStore) DelMulti(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if err := f.Del(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := pattern
	if n := len(prefix); n > 0 && prefix[n-1] == '*' {
		prefix = prefix[:n-1]
	}
	var keys []string
	for k := range f.hashes {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	f.index = def
	return nil
}

func (f *fakeStore) DropIndex(_ context.Context, name string) error {
	if f.index == nil {
		return db.ErrIndexNotFound
	}
	f.dropped = append(f.dropped, name)
	f.index = nil
	return nil
}

func (f *fakeStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return f.index != nil, nil
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.lastQuery = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResult == nil {
		return &db.SearchResult{}, nil
	}
	return f.searchResult, nil
}

func (f *fakeStore) SearchCount(_ context.Context, _ string) (int, error) {
	return len(f.hashes), nil
}

func TestRecreatePurgesAndRebuilds(t *testing.T) {
	fs := newFakeStore()
	fs.index = &db.IndexDefinition{Name: "movies"}
	fs.hashes["reelrank:862"] = map[string]string{"title": "stale"}
	fs.hashes["other:1"] = map[string]string{"title": "unrelated"}

	repo := New(fs, "movies", "reelrank:", 4)
	if err := repo.Recreate(context.Background()); err != nil {
		t.Fatalf("Recreate() error = %v", err)
	}

	if _, ok := fs.hashes["reelrank:862"]; ok {
		t.Error("stale document under key prefix not purged")
	}
	if _, ok := fs.hashes["other:1"]; !ok {
		t.Error("document outside key prefix was purged")
	}
	if fs.index == nil {
		t.Fatal("index not recreated")
	}
	if got := fs.index.Fields[0].VectorDim; got != 4 {
		t.Errorf("vector dim = %d, want 4", got)
	}
}

func TestRecreateOnEmptyStore(t *testing.T) {
	fs := newFakeStore()

	repo := New(fs, "movies", "reelrank:", 4)
	if err := repo.Recreate(context.Background()); err != nil {
		t.Fatalf("Recreate() on empty store error = %v", err)
	}
	if fs.index == nil {
		t.Fatal("index not created")
	}
}

func TestUpsertBatch(t *testing.T) {
	fs := newFakeStore()
	repo := New(fs, "movies", "reelrank:", 2)

	movies := []movie.Movie{
		{ID: "862", Title: "Toy Story", Overview: "Toys.", VoteAverage: 7.7,
			Rating:      &movie.Rating{Mean: 4.2, Count: 120},
			TextToEmbed: "Toy Story. Toys."},
		{ID: "8844", Title: "Jumanji", Overview: "A board game.", VoteAverage: 6.9},
	}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := repo.UpsertBatch(context.Background(), movies, vectors); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	h := fs.hashes["reelrank:862"]
	if h == nil {
		t.Fatal("hash for 862 not written")
	}
	if h["title"] != "Toy Story" {
		t.Errorf("title = %q", h["title"])
	}
	if h["ml_rating"] != "4.2" {
		t.Errorf("ml_rating = %q, want 4.2", h["ml_rating"])
	}
	if h["text_to_embed"] != "Toy Story. Toys." {
		t.Errorf("text_to_embed = %q, want the full embedded document", h["text_to_embed"])
	}
	if len(h["vector"]) != 8 {
		t.Errorf("vector blob length = %d, want 8", len(h["vector"]))
	}

	// Unrated movie stores zero so the field is always present.
	if got := fs.hashes["reelrank:8844"]["ml_rating"]; got != "0" {
		t.Errorf("unrated ml_rating = %q, want 0", got)
	}
}

func TestUpsertBatchLengthMismatch(t *testing.T) {
	repo := New(newFakeStore(), "movies", "reelrank:", 2)
	err := repo.UpsertBatch(context.Background(), []movie.Movie{{ID: "1"}}, nil)
	if err == nil {
		t.Fatal("expected error for mismatched slice lengths")
	}
}

func TestUpsertBatchDimensionMismatch(t *testing.T) {
	repo := New(newFakeStore(), "movies", "reelrank:", 4)
	err := repo.UpsertBatch(context.Background(), []movie.Movie{{ID: "1"}}, [][]float32{{0.1}})
	if err == nil {
		t.Fatal("expected error for wrong vector dimensions")
	}
}

func TestUpsertBatchTruncatesOverview(t *testing.T) {
	fs := newFakeStore()
	repo := New(fs, "movies", "reelrank:", 1)

	long := make([]byte, maxStoredOverview+100)
	for i := range long {
		long[i] = 'a'
	}
	movies := []movie.Movie{{ID: "1", Overview: string(long)}}

	if err := repo.UpsertBatch(context.Background(), movies, [][]float32{{0.5}}); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}
	if got := len(fs.hashes["reelrank:1"]["overview"]); got != maxStoredOverview {
		t.Errorf("stored overview length = %d, want %d", got, maxStoredOverview)
	}
}

func TestUpsertBatchTruncatesOnRuneBoundary(t *testing.T) {
	fs := newFakeStore()
	repo := New(fs, "movies", "reelrank:", 1)

	// A multi-byte rune straddling the character cutoff must survive whole.
	atLimit := strings.Repeat("a", maxStoredOverview-1) + "é"
	overLimit := strings.Repeat("é", maxStoredOverview+50)
	movies := []movie.Movie{
		{ID: "1", Overview: atLimit},
		{ID: "2", Overview: overLimit},
	}

	if err := repo.UpsertBatch(context.Background(), movies, [][]float32{{0.5}, {0.6}}); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	if got := fs.hashes["reelrank:1"]["overview"]; got != atLimit {
		t.Errorf("overview at character limit was altered, got %d bytes", len(got))
	}

	stored := fs.hashes["reelrank:2"]["overview"]
	if !utf8.ValidString(stored) {
		t.Error("truncated overview is not valid UTF-8")
	}
	if got := utf8.RuneCountInString(stored); got != maxStoredOverview {
		t.Errorf("truncated overview has %d characters, want %d", got, maxStoredOverview)
	}
}

func TestQuery(t *testing.T) {
	fs := newFakeStore()
	fs.searchResult = &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{Key: "reelrank:862", Distance: 0.1, Fields: map[string]string{
				"title": "Toy Story", "overview": "Toys.", "poster_path": "/p.jpg",
				"text_to_embed": "Toy Story. Toys.",
				"vote_average":  "7.7", "ml_rating": "4.2", "ml_count": "120",
			}},
			{Key: "reelrank:8844", Distance: 0.4, Fields: map[string]string{
				"title": "Jumanji", "vote_average": "6.9", "ml_rating": "0", "ml_count": "0",
			}},
		},
	}

	repo := New(fs, "movies", "reelrank:", 2)
	got, err := repo.Query(context.Background(), []float32{0.1, 0.2}, 20)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if fs.lastQuery.K != 20 {
		t.Errorf("query K = %d, want 20", fs.lastQuery.K)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}

	first := got[0]
	if first.Movie.ID != "862" {
		t.Errorf("candidate ID = %q, want 862 (prefix stripped)", first.Movie.ID)
	}
	if first.Distance != 0.1 {
		t.Errorf("candidate distance = %v, want 0.1", first.Distance)
	}
	if first.Movie.Rating == nil || first.Movie.Rating.Count != 120 {
		t.Errorf("candidate rating = %+v, want count 120", first.Movie.Rating)
	}
	if first.Movie.TextToEmbed != "Toy Story. Toys." {
		t.Errorf("candidate document = %q, want the stored embedded text", first.Movie.TextToEmbed)
	}

	// A stored zero rating resolves to absence.
	if got[1].Movie.Rating != nil {
		t.Errorf("unrated candidate rating = %+v, want nil", got[1].Movie.Rating)
	}
}

func TestQueryPropagatesError(t *testing.T) {
	fs := newFakeStore()
	fs.searchErr = db.ErrIndexNotFound

	repo := New(fs, "movies", "reelrank:", 2)
	if _, err := repo.Query(context.Background(), []float32{0.1, 0.2}, 5); err == nil {
		t.Fatal("expected error from failing search")
	}
}

func TestCount(t *testing.T) {
	fs := newFakeStore()
	for i := 0; i < 3; i++ {
		fs.hashes["reelrank:"+strconv.Itoa(i)] = map[string]string{}
	}

	repo := New(fs, "movies", "reelrank:", 2)
	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}
