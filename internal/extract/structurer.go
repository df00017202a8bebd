// Package extract holds the LLM-backed structuring components: the CV and
// job structurers and the match scorer. All three share one contract
// shape: render a fixed prompt, request a schema-constrained completion,
// and defensively decode the untrusted response.
package extract

import (
	"context"
	"errors"
	"strings"

	_ "embed"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"cv-rank-agent/internal/match"
)

//go:embed prompts/cv.md
var cvPromptTemplate string

//go:embed prompts/job.md
var jobPromptTemplate string

// Completer is the structured-completion service the structurers call.
type Completer interface {
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// Structurer extracts canonical résumé and job records from raw text.
type Structurer struct {
	completer Completer
	logger    *zap.Logger
}

func NewStructurer(completer Completer, logger *zap.Logger) *Structurer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Structurer{completer: completer, logger: logger}
}

// StructureResume extracts a résumé record from raw document text. The
// prompt instructs the model to omit fields it cannot find rather than
// guess; only the name is mandatory.
func (s *Structurer) StructureResume(ctx context.Context, raw string) (*match.Resume, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("resume text is empty")
	}

	prompt := strings.ReplaceAll(cvPromptTemplate, "{{CONTENT}}", raw)

	response, err := s.completer.GenerateStructured(ctx, prompt, resumeSchema)
	if err != nil {
		return nil, err
	}

	var resume match.Resume
	if err := decodePayload(response, &resume); err != nil {
		return nil, err
	}

	if strings.TrimSpace(resume.Name) == "" {
		return nil, &SchemaValidationError{Reason: "resume name is missing"}
	}

	s.logger.Debug("resume extracted",
		zap.String("name", resume.Name),
		zap.Int("skills", len(resume.Skills)),
		zap.Int("experience", len(resume.Experience)),
	)

	return &resume, nil
}

// StructureJob extracts a job record from crawled page text. The caller
// owns the source URL; whatever the model puts there is overwritten by the
// orchestrator.
func (s *Structurer) StructureJob(ctx context.Context, raw string) (*match.Job, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("job text is empty")
	}

	prompt := strings.ReplaceAll(jobPromptTemplate, "{{CONTENT}}", raw)

	response, err := s.completer.GenerateStructured(ctx, prompt, jobSchema)
	if err != nil {
		return nil, err
	}

	var job match.Job
	if err := decodePayload(response, &job); err != nil {
		return nil, err
	}

	if strings.TrimSpace(job.Title) == "" {
		return nil, &SchemaValidationError{Reason: "job title is missing"}
	}
	if strings.TrimSpace(job.Description) == "" {
		return nil, &SchemaValidationError{Reason: "job description is missing"}
	}

	s.logger.Debug("job extracted",
		zap.String("title", job.Title),
		zap.String("company", job.Company),
		zap.Int("requirements", len(job.Requirements)),
	)

	return &job, nil
}
