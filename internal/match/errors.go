package match

import "fmt"

// InputError reports invalid run input (bad file path, malformed job list,
// job count out of bounds). It is raised before any service call is made.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input: %s: %v", e.Msg, e.Err)
	}
	return "input: " + e.Msg
}

func (e *InputError) Unwrap() error { return e.Err }

// ExtractionError reports a failed LLM structuring call. Source identifies
// the failed item: the résumé path or a job URL.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction of %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError reports an embedding service failure or a degenerate
// vector. It aborts the filtered path entirely; there is no fallback to
// direct scoring mid-run.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return "embedding: " + e.Err.Error() }

func (e *EmbeddingError) Unwrap() error { return e.Err }

// ScoringError reports a failed scoring call for a single job.
type ScoringError struct {
	JobURL string
	Err    error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring %s: %v", e.JobURL, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// SkippedJob annotates a job that was dropped from the run instead of
// aborting it. Skips are always logged and reported to the caller.
type SkippedJob struct {
	URL    string
	Stage  string
	Reason string
}
