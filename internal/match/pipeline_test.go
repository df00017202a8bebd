package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type stubLoader struct {
	text string
	err  error
}

func (s *stubLoader) Load(string) (string, error) {
	return s.text, s.err
}

type stubCrawler struct {
	mu     sync.Mutex
	failed map[string]error
	calls  []string
}

func (s *stubCrawler) Fetch(_ context.Context, url string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()

	if err, ok := s.failed[url]; ok {
		return "", err
	}
	// Encode the URL into the page text so the structurer can reproduce a
	// deterministic job without shared state.
	return "page for " + url, nil
}

type stubCV struct {
	resume *Resume
	err    error
}

func (s *stubCV) StructureResume(context.Context, string) (*Resume, error) {
	return s.resume, s.err
}

type stubJobStructurer struct {
	failOn   map[string]error
	override string // SourceURL the "model" claims, to test the overwrite
}

func (s *stubJobStructurer) StructureJob(_ context.Context, raw string) (*Job, error) {
	url := strings.TrimPrefix(raw, "page for ")
	if err, ok := s.failOn[url]; ok {
		return nil, err
	}

	job := &Job{Title: "Engineer", Description: "description of " + url, SourceURL: url}
	if s.override != "" {
		job.SourceURL = s.override
	}
	return job, nil
}

// indexEmbedder gives every job a similarity that strictly decreases with
// the numeric suffix of its URL, so filtering results are predictable.
type indexEmbedder struct{}

func (indexEmbedder) Embed(context.Context, string) ([]float64, error) {
	return []float64{1, 0}, nil
}

func (indexEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		idx := 0
		if pos := strings.LastIndex(text, "/"); pos != -1 {
			idx, _ = strconv.Atoi(text[pos+1:])
		}
		vectors[i] = []float64{1, float64(idx)}
	}
	return vectors, nil
}

type countingScorer struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
	fit    func(job *Job) float64
}

func (s *countingScorer) Score(_ context.Context, _ *Resume, job *Job) (*Score, error) {
	s.mu.Lock()
	s.calls = append(s.calls, job.SourceURL)
	s.mu.Unlock()

	if err, ok := s.failOn[job.SourceURL]; ok {
		return nil, err
	}

	fit := 0.5
	if s.fit != nil {
		fit = s.fit(job)
	}
	return &Score{OverallFit: fit, SkillMatch: fit, ExperienceMatch: fit, Explanation: "because"}, nil
}

func urls(n int) []string {
	list := make([]string, n)
	for i := range list {
		list[i] = fmt.Sprintf("https://jobs.example.com/%d", i)
	}
	return list
}

func newTestPipeline(t *testing.T, cfg Config, deps Deps) *Pipeline {
	t.Helper()

	if deps.Loader == nil {
		deps.Loader = &stubLoader{text: "raw cv"}
	}
	if deps.Crawler == nil {
		deps.Crawler = &stubCrawler{}
	}
	if deps.CV == nil {
		deps.CV = &stubCV{resume: &Resume{Name: "Jane", Skills: []string{"Go", "SQL", "K8s"}}}
	}
	if deps.Jobs == nil {
		deps.Jobs = &stubJobStructurer{}
	}

	p, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("building pipeline: %v", err)
	}
	return p
}

func TestPipelineDirectPath(t *testing.T) {
	t.Parallel()

	scorer := &countingScorer{fit: func(job *Job) float64 {
		if strings.HasSuffix(job.SourceURL, "/0") {
			return 0.3
		}
		return 0.8
	}}

	p := newTestPipeline(t, Config{LLMOnlyThreshold: 5}, Deps{Scorer: scorer})

	result, err := p.Run(context.Background(), Input{CVPath: "cv.pdf", JobURLs: urls(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Route != RouteDirect {
		t.Fatalf("expected direct route, got %s", result.Route)
	}
	if len(scorer.calls) != 2 {
		t.Fatalf("expected scorer invoked twice, got %d", len(scorer.calls))
	}
	if len(result.Scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(result.Scores))
	}
	for _, score := range result.Scores {
		if score.CosineSimilarity != nil {
			t.Fatalf("cosine similarity set on direct path for %s", score.JobReference)
		}
	}
	if result.Scores[0].OverallFit < result.Scores[1].OverallFit {
		t.Fatal("scores not sorted by overall fit descending")
	}
	if result.State != StateScored {
		t.Fatalf("unexpected terminal state: %s", result.State)
	}
}

func TestPipelineFilteredPath(t *testing.T) {
	t.Parallel()

	scorer := &countingScorer{}
	p := newTestPipeline(t, Config{LLMOnlyThreshold: 5, LLMTopN: 10}, Deps{
		Embedder: indexEmbedder{},
		Scorer:   scorer,
	})

	result, err := p.Run(context.Background(), Input{CVPath: "cv.pdf", JobURLs: urls(12)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Route != RouteFiltered {
		t.Fatalf("expected filtered route, got %s", result.Route)
	}
	if len(scorer.calls) != 10 {
		t.Fatalf("expected scorer invoked 10 times, got %d", len(scorer.calls))
	}

	// Similarity decreases with the URL index, so jobs 10 and 11 must be
	// the two filtered out.
	scored := map[string]bool{}
	for _, url := range scorer.calls {
		scored[url] = true
	}
	for _, dropped := range []string{"https://jobs.example.com/10", "https://jobs.example.com/11"} {
		if scored[dropped] {
			t.Fatalf("filtered-out job %s was scored", dropped)
		}
	}

	if len(result.Scores) != 10 {
		t.Fatalf("expected 10 scores, got %d", len(result.Scores))
	}
	for _, score := range result.Scores {
		if score.CosineSimilarity == nil {
			t.Fatalf("cosine similarity missing for %s", score.JobReference)
		}
	}
}

func TestPipelineOverwritesExtractedSourceURL(t *testing.T) {
	t.Parallel()

	scorer := &countingScorer{}
	p := newTestPipeline(t, Config{}, Deps{
		Jobs:   &stubJobStructurer{override: "https://evil.example.com/not-the-real-one"},
		Scorer: scorer,
	})

	requested := "https://jobs.example.com/42"
	result, err := p.Run(context.Background(), Input{CVPath: "cv.pdf", JobURLs: []string{requested}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Scores) != 1 {
		t.Fatalf("expected 1 score, got %d", len(result.Scores))
	}
	if result.Scores[0].JobReference != requested {
		t.Fatalf("job reference is %q, expected the crawled URL %q", result.Scores[0].JobReference, requested)
	}
}

func TestPipelineSkipsFailedJobsAndReportsThem(t *testing.T) {
	t.Parallel()

	jobURLs := urls(4)
	crawler := &stubCrawler{failed: map[string]error{jobURLs[1]: errors.New("network down")}}
	structurer := &stubJobStructurer{failOn: map[string]error{jobURLs[2]: errors.New("not a job page")}}
	scorer := &countingScorer{}

	p := newTestPipeline(t, Config{}, Deps{Crawler: crawler, Jobs: structurer, Scorer: scorer})

	result, err := p.Run(context.Background(), Input{CVPath: "cv.pdf", JobURLs: jobURLs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(result.Scores))
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("expected 2 skips, got %d", len(result.Skipped))
	}

	stages := map[string]string{}
	for _, skip := range result.Skipped {
		stages[skip.URL] = skip.Stage
	}
	if stages[jobURLs[1]] != "crawl" {
		t.Fatalf("expected crawl skip for %s, got %q", jobURLs[1], stages[jobURLs[1]])
	}
	if stages[jobURLs[2]] != "extract" {
		t.Fatalf("expected extract skip for %s, got %q", jobURLs[2], stages[jobURLs[2]])
	}
}

func TestPipelineSkipsFailedScoring(t *testing.T) {
	t.Parallel()

	jobURLs := urls(3)
	scorer := &countingScorer{failOn: map[string]error{jobURLs[0]: errors.New("model refused")}}

	p := newTestPipeline(t, Config{}, Deps{Scorer: scorer})

	result, err := p.Run(context.Background(), Input{CVPath: "cv.pdf", JobURLs: jobURLs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(result.Scores))
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Stage != "score" {
		t.Fatalf("expected one score-stage skip, got %+v", result.Skipped)
	}
}

func TestPipelineInputValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input Input
	}{
		{name: "missing cv path", input: Input{JobURLs: urls(1)}},
		{name: "no job urls", input: Input{CVPath: "cv.pdf"}},
		{name: "empty job url", input: Input{CVPath: "cv.pdf", JobURLs: []string{""}}},
		{name: "too many jobs", input: Input{CVPath: "cv.pdf", JobURLs: urls(51)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			crawler := &stubCrawler{}
			p := newTestPipeline(t, Config{}, Deps{Crawler: crawler, Scorer: &countingScorer{}})

			_, err := p.Run(context.Background(), tt.input)
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected InputError, got %T: %v", err, err)
			}
			if len(crawler.calls) != 0 {
				t.Fatal("input validation must run before any service call")
			}
		})
	}
}

func TestPipelineAbortsWhenResumeExtractionFails(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, Config{}, Deps{
		CV:     &stubCV{err: errors.New("unreadable")},
		Scorer: &countingScorer{},
	})

	_, err := p.Run(context.Background(), Input{CVPath: "cv.pdf", JobURLs: urls(1)})
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %T: %v", err, err)
	}
}

func TestPipelineConfirmDeclinedAbortsRun(t *testing.T) {
	t.Parallel()

	declined := errors.New("declined")
	scorer := &countingScorer{}
	deps := Deps{
		Scorer:  scorer,
		Confirm: func(int) error { return declined },
	}

	p := newTestPipeline(t, Config{}, deps)

	_, err := p.Run(context.Background(), Input{CVPath: "cv.pdf", JobURLs: urls(2)})
	if !errors.Is(err, declined) {
		t.Fatalf("expected the confirm error, got %v", err)
	}
	if len(scorer.calls) != 0 {
		t.Fatal("scorer must not run after a declined confirmation")
	}
}

func TestPipelinePreservesInputOrderThroughConcurrency(t *testing.T) {
	t.Parallel()

	jobURLs := urls(8)
	scorer := &countingScorer{}
	p := newTestPipeline(t, Config{Concurrency: 4, LLMOnlyThreshold: 50}, Deps{Scorer: scorer})

	result, err := p.Run(context.Background(), Input{CVPath: "cv.pdf", JobURLs: jobURLs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// All overall fits tie, so the ranked output must preserve the input
	// URL order regardless of worker completion order.
	for i, score := range result.Scores {
		if score.JobReference != jobURLs[i] {
			t.Fatalf("position %d: expected %s, got %s", i, jobURLs[i], score.JobReference)
		}
	}
}
