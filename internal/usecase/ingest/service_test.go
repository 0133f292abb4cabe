package ingest

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/domain/movie"
)

type mockRepo struct {
	recreated   int
	upserts     [][]movie.Movie // since the last Recreate
	docs        map[string]string
	upsertErrOn int // 1-based upsert call that fails, 0 = never
	calls       int
}

func (m *mockRepo) Recreate(_ context.Context) error {
	m.recreated++
	m.upserts = nil
	m.docs = map[string]string{}
	return nil
}

func (m *mockRepo) UpsertBatch(_ context.Context, movies []movie.Movie, vectors [][]float32) error {
	m.calls++
	if m.upsertErrOn != 0 && m.calls == m.upsertErrOn {
		return errors.New("write failed")
	}
	if len(movies) != len(vectors) {
		return errors.New("slice length mismatch")
	}
	if m.docs == nil {
		return errors.New("upsert before recreate")
	}
	m.upserts = append(m.upserts, movies)
	for _, mv := range movies {
		m.docs[mv.ID] = mv.TextToEmbed
	}
	return nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) {
	return len(m.docs), nil
}

type mockBatchEmbedder struct {
	errOn int // 1-based call that fails, 0 = never
	calls int
	sizes []int
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	m.sizes = append(m.sizes, len(texts))
	if m.errOn != 0 && m.calls == m.errOn {
		return domain.BatchEmbeddingResult{}, errors.New("provider error")
	}
	embeddings := make([][]float32, len(texts))
	for i := range embeddings {
		embeddings[i] = []float32{0.1, 0.2}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: len(texts)}, nil
}

func corpus(n int) []movie.Movie {
	out := make([]movie.Movie, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, movie.Movie{
			ID:          strconv.Itoa(i),
			Title:       "Movie " + strconv.Itoa(i),
			TextToEmbed: "Texto " + strconv.Itoa(i),
		})
	}
	return out
}

func TestRunBatching(t *testing.T) {
	repo := &mockRepo{}
	emb := &mockBatchEmbedder{}
	svc := New(repo, emb)

	report, err := svc.Run(context.Background(), corpus(250), Options{BatchSize: 100})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if emb.calls != 3 {
		t.Errorf("embed calls = %d, want 3", emb.calls)
	}
	wantSizes := []int{100, 100, 50}
	for i, w := range wantSizes {
		if emb.sizes[i] != w {
			t.Errorf("batch %d size = %d, want %d", i, emb.sizes[i], w)
		}
	}
	if report.Indexed != 250 || report.Failed != 0 {
		t.Errorf("report = %+v, want 250 indexed", report)
	}
	if report.TotalTokens != 250 {
		t.Errorf("tokens = %d, want 250", report.TotalTokens)
	}
	if repo.recreated != 1 {
		t.Errorf("recreated = %d, want exactly 1, before the first batch", repo.recreated)
	}
}

func TestRunEmptyCorpus(t *testing.T) {
	svc := New(&mockRepo{}, &mockBatchEmbedder{})

	_, err := svc.Run(context.Background(), nil, Options{})
	if !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Fatalf("error = %v, want ErrEmptyCorpus", err)
	}
}

func TestRunContinuesPastFailedBatch(t *testing.T) {
	repo := &mockRepo{}
	emb := &mockBatchEmbedder{errOn: 2}
	svc := New(repo, emb)

	report, err := svc.Run(context.Background(), corpus(250), Options{BatchSize: 100})
	if err != nil {
		t.Fatalf("Run() error = %v: one failed batch must not abort the run", err)
	}

	if report.Indexed != 150 {
		t.Errorf("indexed = %d, want 150", report.Indexed)
	}
	if report.Failed != 100 {
		t.Errorf("failed = %d, want 100", report.Failed)
	}
	if len(report.FailedBatches) != 1 {
		t.Fatalf("failed batches = %d, want 1", len(report.FailedBatches))
	}
	if report.FailedBatches[0] != (BatchRange{From: 100, To: 200}) {
		t.Errorf("failed range = %+v, want 100..200", report.FailedBatches[0])
	}
}

func TestRunUpsertFailureCountsBatch(t *testing.T) {
	repo := &mockRepo{upsertErrOn: 1}
	svc := New(repo, &mockBatchEmbedder{})

	report, err := svc.Run(context.Background(), corpus(150), Options{BatchSize: 100})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Indexed != 50 || report.Failed != 100 {
		t.Errorf("report = %+v, want 50 indexed / 100 failed", report)
	}
}

func TestRunMaxMoviesCap(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockBatchEmbedder{})

	report, err := svc.Run(context.Background(), corpus(250), Options{BatchSize: 100, MaxMovies: 120})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Total != 120 || report.Indexed != 120 {
		t.Errorf("report = %+v, want 120 total and indexed", report)
	}
}

func TestRunReingestIsIdempotent(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockBatchEmbedder{})
	movies := corpus(250)

	first, err := svc.Run(context.Background(), movies, Options{BatchSize: 100})
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	firstDocs := make(map[string]string, len(repo.docs))
	for id, doc := range repo.docs {
		firstDocs[id] = doc
	}

	second, err := svc.Run(context.Background(), movies, Options{BatchSize: 100})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if repo.recreated != 2 {
		t.Errorf("recreated = %d, want one fresh generation per run", repo.recreated)
	}
	if second.Indexed != first.Indexed {
		t.Errorf("second run indexed %d, first %d", second.Indexed, first.Indexed)
	}
	if len(repo.docs) != len(firstDocs) {
		t.Fatalf("index holds %d documents after re-run, want %d", len(repo.docs), len(firstDocs))
	}
	for id, doc := range firstDocs {
		if repo.docs[id] != doc {
			t.Errorf("document for %s changed across runs", id)
		}
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := New(&mockRepo{}, &mockBatchEmbedder{})
	_, err := svc.Run(ctx, corpus(10), Options{})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
