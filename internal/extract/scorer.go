package extract

import (
	"context"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"cv-rank-agent/internal/match"
)

//go:embed prompts/score.md
var scorePromptTemplate string

// Scorer grades a résumé against a single job with a structured-completion
// call. It fills the score fields only; job reference and cosine
// similarity are injected by the pipeline.
type Scorer struct {
	completer Completer
	logger    *zap.Logger
}

func NewScorer(completer Completer, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{completer: completer, logger: logger}
}

type scorePayload struct {
	OverallFit      float64  `json:"overall_fit_score"`
	SkillMatch      float64  `json:"skill_match_score"`
	ExperienceMatch float64  `json:"experience_match_score"`
	Gaps            []string `json:"identified_gaps"`
	Explanation     string   `json:"llm_explanation"`
}

// Score evaluates the résumé against the job. The scoring contract binds
// every score to [0,1]; values outside the range are a model defect and
// surface as validation errors instead of being clamped.
func (s *Scorer) Score(ctx context.Context, resume *match.Resume, job *match.Job) (*match.Score, error) {
	prompt := strings.ReplaceAll(scorePromptTemplate, "{{CV_CONTENT}}", match.ResumeText(resume))
	prompt = strings.ReplaceAll(prompt, "{{JOB_CONTENT}}", match.JobText(job))

	response, err := s.completer.GenerateStructured(ctx, prompt, scoreSchema)
	if err != nil {
		return nil, err
	}

	var payload scorePayload
	if err := decodePayload(response, &payload); err != nil {
		return nil, err
	}

	if err := validateScores(&payload); err != nil {
		return nil, err
	}

	s.logger.Debug("job evaluated",
		zap.String("title", job.Title),
		zap.Float64("overall_fit", payload.OverallFit),
		zap.Int("gaps", len(payload.Gaps)),
	)

	return &match.Score{
		OverallFit:      payload.OverallFit,
		SkillMatch:      payload.SkillMatch,
		ExperienceMatch: payload.ExperienceMatch,
		Gaps:            payload.Gaps,
		Explanation:     strings.TrimSpace(payload.Explanation),
	}, nil
}

func validateScores(payload *scorePayload) error {
	scores := map[string]float64{
		"overall_fit_score":      payload.OverallFit,
		"skill_match_score":      payload.SkillMatch,
		"experience_match_score": payload.ExperienceMatch,
	}
	for _, name := range []string{"overall_fit_score", "skill_match_score", "experience_match_score"} {
		value := scores[name]
		if value < 0 || value > 1 {
			return &SchemaValidationError{Reason: fmt.Sprintf("%s %v is outside [0,1]", name, value)}
		}
	}

	if strings.TrimSpace(payload.Explanation) == "" {
		return &SchemaValidationError{Reason: "explanation is empty"}
	}

	return nil
}
