package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State names a pipeline stage boundary. States advance strictly in order;
// the only conditional edge is the route choice after JOBS_PARSED.
type State string

const (
	StateLoaded            State = "LOADED"
	StateCVParsed          State = "CV_PARSED"
	StateJobsParsed        State = "JOBS_PARSED"
	StateFilteredOrSkipped State = "FILTERED_OR_SKIPPED"
	StateScored            State = "SCORED"
)

// Loader turns a résumé file into raw text.
type Loader interface {
	Load(path string) (string, error)
}

// Crawler fetches the readable text of a job posting URL.
type Crawler interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// CVStructurer extracts a canonical résumé record from raw text.
type CVStructurer interface {
	StructureResume(ctx context.Context, raw string) (*Resume, error)
}

// JobStructurer extracts a canonical job record from crawled text.
type JobStructurer interface {
	StructureJob(ctx context.Context, raw string) (*Job, error)
}

// Scorer produces a score record for one résumé/job pair. It must leave
// JobReference and CosineSimilarity unset; the pipeline owns both.
type Scorer interface {
	Score(ctx context.Context, resume *Resume, job *Job) (*Score, error)
}

// Config holds the pipeline tuning values.
type Config struct {
	// LLMOnlyThreshold is the routing cutoff: job counts above it take the
	// filtered path.
	LLMOnlyThreshold int
	// LLMTopN is how many jobs survive the similarity filter.
	LLMTopN int
	// MaxJobs is the admission guard checked before any service call.
	MaxJobs int
	// Concurrency bounds the per-job worker pools.
	Concurrency int
}

const (
	DefaultLLMOnlyThreshold = 5
	DefaultLLMTopN          = 10
	DefaultMaxJobs          = 50
	defaultConcurrency      = 4
)

func (c Config) withDefaults() Config {
	if c.LLMOnlyThreshold <= 0 {
		c.LLMOnlyThreshold = DefaultLLMOnlyThreshold
	}
	if c.LLMTopN <= 0 {
		c.LLMTopN = DefaultLLMTopN
	}
	if c.MaxJobs <= 0 {
		c.MaxJobs = DefaultMaxJobs
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	return c
}

// Deps aggregates the external collaborators of a pipeline run.
type Deps struct {
	Loader   Loader
	Crawler  Crawler
	CV       CVStructurer
	Jobs     JobStructurer
	Embedder Embedder
	Scorer   Scorer
	Logger   *zap.Logger

	// Confirm, when set, runs right before the scoring stage with the
	// number of LLM scoring calls about to be spent. Returning an error
	// aborts the run.
	Confirm func(jobs int) error
}

// Input is the per-run input set before execution.
type Input struct {
	CVPath  string
	JobURLs []string
}

// Result is the terminal pipeline output.
type Result struct {
	Resume  *Resume
	Route   Route
	Scores  []*Score
	Skipped []SkippedJob
	State   State
}

// Pipeline drives one ranking run through the explicit state machine
// LOADED → CV_PARSED → JOBS_PARSED → FILTERED_OR_SKIPPED → SCORED.
type Pipeline struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Loader == nil || deps.Crawler == nil || deps.CV == nil || deps.Jobs == nil || deps.Scorer == nil {
		return nil, errors.New("loader, crawler, structurers and scorer are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Pipeline{cfg: cfg.withDefaults(), deps: deps}, nil
}

// Run executes the pipeline. Per-job failures during extraction and scoring
// are skipped and reported in Result.Skipped; résumé extraction, embedding
// and input failures abort the whole run.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	log := p.deps.Logger

	if err := p.validate(in); err != nil {
		return nil, err
	}

	raw, err := p.deps.Loader.Load(in.CVPath)
	if err != nil {
		return nil, &InputError{Msg: fmt.Sprintf("loading resume %s", in.CVPath), Err: err}
	}
	log.Info("resume loaded", zap.String("path", in.CVPath), zap.Int("characters", len(raw)), zap.String("state", string(StateLoaded)))

	resume, err := p.deps.CV.StructureResume(ctx, raw)
	if err != nil {
		return nil, &ExtractionError{Source: in.CVPath, Err: err}
	}
	log.Info("resume structured",
		zap.String("name", resume.Name),
		zap.Int("skills", len(resume.Skills)),
		zap.Int("experience", len(resume.Experience)),
		zap.String("state", string(StateCVParsed)),
	)

	jobs, skipped := p.parseJobs(ctx, in.JobURLs)
	if len(jobs) == 0 {
		return nil, &ExtractionError{Source: "job list", Err: errors.New("no job could be extracted")}
	}
	log.Info("jobs structured",
		zap.Int("parsed", len(jobs)),
		zap.Int("skipped", len(skipped)),
		zap.String("state", string(StateJobsParsed)),
	)

	route := Decide(len(jobs), p.cfg.LLMOnlyThreshold)
	log.Info("route decided",
		zap.Int("jobs", len(jobs)),
		zap.Int("threshold", p.cfg.LLMOnlyThreshold),
		zap.String("route", route.String()),
	)

	var candidates []Similarity
	switch route {
	case RouteFiltered:
		if p.deps.Embedder == nil {
			return nil, &EmbeddingError{Err: errors.New("embedder is not configured")}
		}
		candidates, err = Filter(ctx, p.deps.Embedder, resume, jobs, p.cfg.LLMTopN)
		if err != nil {
			return nil, err
		}
		log.Info("similarity filter applied",
			zap.Int("initial", len(jobs)),
			zap.Int("dropped", len(jobs)-len(candidates)),
			zap.Int("left", len(candidates)),
			zap.String("state", string(StateFilteredOrSkipped)),
		)
	default:
		candidates = make([]Similarity, len(jobs))
		for i, job := range jobs {
			candidates[i] = Similarity{Job: job}
		}
		log.Info("similarity filter skipped", zap.String("state", string(StateFilteredOrSkipped)))
	}

	if p.deps.Confirm != nil {
		if err := p.deps.Confirm(len(candidates)); err != nil {
			return nil, err
		}
	}

	scores, scoreSkips := p.scoreAll(ctx, resume, candidates, route)
	skipped = append(skipped, scoreSkips...)
	log.Info("jobs scored",
		zap.Int("scored", len(scores)),
		zap.Int("skipped", len(scoreSkips)),
		zap.String("state", string(StateScored)),
	)

	return &Result{
		Resume:  resume,
		Route:   route,
		Scores:  Rank(scores),
		Skipped: skipped,
		State:   StateScored,
	}, nil
}

func (p *Pipeline) validate(in Input) error {
	if in.CVPath == "" {
		return &InputError{Msg: "resume path is required"}
	}
	if len(in.JobURLs) == 0 {
		return &InputError{Msg: "at least one job URL is required"}
	}
	if len(in.JobURLs) > p.cfg.MaxJobs {
		return &InputError{Msg: fmt.Sprintf("%d job URLs exceed the maximum of %d", len(in.JobURLs), p.cfg.MaxJobs)}
	}
	for _, url := range in.JobURLs {
		if url == "" {
			return &InputError{Msg: "job URLs must not be empty"}
		}
	}
	return nil
}

// parseJobs crawls and structures every URL with a bounded worker pool.
// Results are joined in input order so downstream stages stay
// deterministic. A failed URL is skipped, logged and annotated; it never
// aborts the run.
func (p *Pipeline) parseJobs(ctx context.Context, urls []string) ([]*Job, []SkippedJob) {
	type slot struct {
		job  *Job
		skip *SkippedJob
	}

	slots := make([]slot, len(urls))
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			job, err := p.parseJob(ctx, url)
			if err != nil {
				stage := "crawl"
				var exErr *ExtractionError
				if errors.As(err, &exErr) {
					stage = "extract"
				}
				p.deps.Logger.Warn("skipping job",
					zap.String("url", url),
					zap.String("stage", stage),
					zap.Error(err),
				)
				slots[i] = slot{skip: &SkippedJob{URL: url, Stage: stage, Reason: err.Error()}}
				return
			}
			slots[i] = slot{job: job}
		}(i, url)
	}
	wg.Wait()

	jobs := make([]*Job, 0, len(urls))
	var skipped []SkippedJob
	for _, s := range slots {
		if s.skip != nil {
			skipped = append(skipped, *s.skip)
			continue
		}
		jobs = append(jobs, s.job)
	}

	return jobs, skipped
}

func (p *Pipeline) parseJob(ctx context.Context, url string) (*Job, error) {
	raw, err := p.deps.Crawler.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	job, err := p.deps.Jobs.StructureJob(ctx, raw)
	if err != nil {
		return nil, &ExtractionError{Source: url, Err: err}
	}

	// The extraction service does not own the source identifier; the
	// crawled URL is ground truth and always wins.
	job.SourceURL = url

	return job, nil
}

// scoreAll scores every candidate with a bounded worker pool and joins the
// records in candidate order. Each worker owns its slot; no shared state.
func (p *Pipeline) scoreAll(ctx context.Context, resume *Resume, candidates []Similarity, route Route) ([]*Score, []SkippedJob) {
	type slot struct {
		score *Score
		skip  *SkippedJob
	}

	slots := make([]slot, len(candidates))
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, candidate := range candidates {
		wg.Add(1)
		go func(i int, candidate Similarity) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			url := candidate.Job.SourceURL
			score, err := p.deps.Scorer.Score(ctx, resume, candidate.Job)
			if err != nil {
				scoringErr := &ScoringError{JobURL: url, Err: err}
				p.deps.Logger.Warn("skipping job", zap.String("url", url), zap.String("stage", "score"), zap.Error(scoringErr))
				slots[i] = slot{skip: &SkippedJob{URL: url, Stage: "score", Reason: scoringErr.Error()}}
				return
			}

			score.JobReference = url
			if route == RouteFiltered {
				cos := candidate.Score
				score.CosineSimilarity = &cos
			}

			p.deps.Logger.Info("job scored",
				zap.String("url", url),
				zap.Float64("overall_fit", score.OverallFit),
			)
			slots[i] = slot{score: score}
		}(i, candidate)
	}
	wg.Wait()

	scores := make([]*Score, 0, len(candidates))
	var skipped []SkippedJob
	for _, s := range slots {
		if s.skip != nil {
			skipped = append(skipped, *s.skip)
			continue
		}
		scores = append(scores, s.score)
	}

	return scores, skipped
}
