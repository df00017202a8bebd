package match

import (
	"context"
	"errors"
	"math"
	"testing"
)

type stubEmbedder struct {
	resumeVec []float64
	jobVecs   [][]float64
	embedErr  error
	batchErr  error

	embedCalls int
	batchCalls int
	batchTexts []string
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	s.embedCalls++
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return s.resumeVec, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	s.batchCalls++
	s.batchTexts = texts
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	return s.jobVecs, nil
}

func jobList(n int) []*Job {
	jobs := make([]*Job, n)
	for i := range jobs {
		jobs[i] = &Job{
			Title:       "Engineer",
			Description: "description",
			SourceURL:   "https://jobs.example.com/" + string(rune('a'+i)),
		}
	}
	return jobs
}

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   []float64
		expect float64
	}{
		{name: "identical vectors", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, expect: 1},
		{name: "orthogonal vectors", a: []float64{1, 0}, b: []float64{0, 1}, expect: 0},
		{name: "opposite vectors", a: []float64{1, 2}, b: []float64{-1, -2}, expect: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := cosine(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.expect) > 1e-9 {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestCosineFailsExplicitly(t *testing.T) {
	t.Parallel()

	if _, err := cosine(nil, []float64{1}); err == nil {
		t.Fatal("expected error for empty vector")
	}
	if _, err := cosine([]float64{0, 0}, []float64{1, 1}); err == nil {
		t.Fatal("expected error for zero-norm vector")
	}
	if _, err := cosine([]float64{1, 2}, []float64{1, 2, 3}); err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
}

func TestFilterRanksAndTruncates(t *testing.T) {
	t.Parallel()

	jobs := jobList(3)
	embedder := &stubEmbedder{
		resumeVec: []float64{1, 0},
		jobVecs: [][]float64{
			{0.5, 0.5}, // ~0.707
			{1, 0},     // 1.0
			{0, 1},     // 0.0
		},
	}

	results, err := Filter(context.Background(), embedder, &Resume{Name: "A"}, jobs, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Job != jobs[1] || results[1].Job != jobs[0] {
		t.Fatalf("unexpected order: %s, %s", results[0].Job.SourceURL, results[1].Job.SourceURL)
	}
	if results[0].Score < results[1].Score {
		t.Fatal("results are not sorted descending")
	}
	if embedder.embedCalls != 1 || embedder.batchCalls != 1 {
		t.Fatalf("expected one embed and one batch call, got %d and %d", embedder.embedCalls, embedder.batchCalls)
	}
}

func TestFilterKeepsAllJobsWhenTopNIsLarge(t *testing.T) {
	t.Parallel()

	jobs := jobList(3)
	embedder := &stubEmbedder{
		resumeVec: []float64{1, 0},
		jobVecs:   [][]float64{{1, 0}, {1, 0}, {0.5, 0.5}},
	}

	results, err := Filter(context.Background(), embedder, &Resume{Name: "A"}, jobs, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected all 3 jobs, got %d", len(results))
	}

	seen := map[*Job]bool{}
	for _, result := range results {
		if seen[result.Job] {
			t.Fatalf("job %s appears twice", result.Job.SourceURL)
		}
		seen[result.Job] = true
	}
}

func TestFilterStableTies(t *testing.T) {
	t.Parallel()

	jobs := jobList(3)
	// jobs[0] and jobs[1] tie; input order must be preserved between them.
	embedder := &stubEmbedder{
		resumeVec: []float64{1, 0},
		jobVecs:   [][]float64{{2, 0}, {1, 0}, {0, 1}},
	}

	results, err := Filter(context.Background(), embedder, &Resume{Name: "A"}, jobs, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results[0].Job != jobs[0] || results[1].Job != jobs[1] {
		t.Fatalf("tie broke input order: %s before %s", results[0].Job.SourceURL, results[1].Job.SourceURL)
	}
}

func TestFilterEmbedsJobDescriptions(t *testing.T) {
	t.Parallel()

	jobs := jobList(2)
	jobs[0].Description = "first description"
	jobs[1].Description = "second description"

	embedder := &stubEmbedder{
		resumeVec: []float64{1},
		jobVecs:   [][]float64{{1}, {1}},
	}

	if _, err := Filter(context.Background(), embedder, &Resume{Name: "A"}, jobs, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(embedder.batchTexts) != 2 || embedder.batchTexts[0] != "first description" || embedder.batchTexts[1] != "second description" {
		t.Fatalf("unexpected batch texts: %v", embedder.batchTexts)
	}
}

func TestFilterFailsOnEmbeddingProblems(t *testing.T) {
	t.Parallel()

	jobs := jobList(2)

	tests := []struct {
		name     string
		embedder *stubEmbedder
	}{
		{
			name:     "resume embedding fails",
			embedder: &stubEmbedder{embedErr: errors.New("service down")},
		},
		{
			name:     "batch embedding fails",
			embedder: &stubEmbedder{resumeVec: []float64{1}, batchErr: errors.New("service down")},
		},
		{
			name:     "vector count mismatch",
			embedder: &stubEmbedder{resumeVec: []float64{1}, jobVecs: [][]float64{{1}}},
		},
		{
			name:     "zero-norm job vector",
			embedder: &stubEmbedder{resumeVec: []float64{1}, jobVecs: [][]float64{{1}, {0}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Filter(context.Background(), tt.embedder, &Resume{Name: "A"}, jobs, 2)
			if err == nil {
				t.Fatal("expected error")
			}
			var embErr *EmbeddingError
			if !errors.As(err, &embErr) {
				t.Fatalf("expected EmbeddingError, got %T: %v", err, err)
			}
		})
	}
}
