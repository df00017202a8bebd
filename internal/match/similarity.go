package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Embedder is the vector-embedding service consumed by the similarity
// filter. EmbedBatch must return exactly one vector per input text, in
// input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Filter embeds the résumé and every job description, ranks the jobs by
// cosine similarity to the résumé and keeps the topN best. The result is
// sorted descending; ties keep the original job order. Any embedding
// failure aborts the whole run: partial similarity results are worse than
// none because the scorer would silently consider the wrong subset.
func Filter(ctx context.Context, embedder Embedder, resume *Resume, jobs []*Job, topN int) ([]Similarity, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	resumeVec, err := embedder.Embed(ctx, ResumeText(resume))
	if err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("embed resume: %w", err)}
	}

	texts := make([]string, len(jobs))
	for i, job := range jobs {
		texts[i] = job.Description
	}

	jobVecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("embed jobs: %w", err)}
	}

	if len(jobVecs) != len(jobs) {
		return nil, &EmbeddingError{Err: fmt.Errorf("expected %d job vectors, got %d", len(jobs), len(jobVecs))}
	}

	results := make([]Similarity, len(jobs))
	for i, job := range jobs {
		score, err := cosine(resumeVec, jobVecs[i])
		if err != nil {
			return nil, &EmbeddingError{Err: fmt.Errorf("job %s: %w", job.SourceURL, err)}
		}
		results[i] = Similarity{Job: job, Score: score}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topN < len(results) {
		results = results[:topN]
	}

	return results, nil
}

// cosine computes the cosine similarity of two vectors: their dot product
// divided by the product of their L2 norms. Zero-length and zero-norm
// vectors have no defined direction and fail explicitly.
func cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, errors.New("cosine similarity of empty vector")
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions differ: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, errors.New("cosine similarity of zero-norm vector")
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
