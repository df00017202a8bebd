package match

// Resume is the canonical résumé record produced by the CV structurer.
// It is created once per run and never mutated afterwards. Fields the
// source document does not state stay empty; the textualization helpers
// skip them instead of inserting placeholders.
type Resume struct {
	Name           string           `json:"name"`
	Email          string           `json:"email,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Location       string           `json:"location,omitempty"`
	Summary        string           `json:"summary,omitempty"`
	Skills         []string         `json:"skills,omitempty"`
	Experience     []WorkExperience `json:"experience,omitempty"`
	Education      []EducationEntry `json:"education,omitempty"`
	Certifications []string         `json:"certifications,omitempty"`
	Languages      []LanguageSkill  `json:"languages,omitempty"`
}

type WorkExperience struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Year        string `json:"year,omitempty"`
}

type LanguageSkill struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency,omitempty"`
}

// Job is the canonical job record extracted from a single posting URL.
// SourceURL is ground truth owned by the orchestrator: the extraction
// service is not trusted to preserve it, so it is overwritten with the
// crawled URL after every extraction.
type Job struct {
	Title            string   `json:"title"`
	Company          string   `json:"company,omitempty"`
	Location         string   `json:"location,omitempty"`
	Requirements     []string `json:"requirements,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Description      string   `json:"job_description"`
	SourceURL        string   `json:"source_url"`
}

// Similarity pairs a job with its cosine similarity to the résumé.
// It only exists between the similarity filter and the scorer.
type Similarity struct {
	Job   *Job
	Score float64
}

// Score is the scoring record for one job. The scoring service fills the
// scores, gaps and explanation; the orchestrator injects JobReference and,
// on the filtered path, CosineSimilarity.
type Score struct {
	JobReference     string   `json:"job_reference"`
	OverallFit       float64  `json:"overall_fit_score"`
	SkillMatch       float64  `json:"skill_match_score"`
	ExperienceMatch  float64  `json:"experience_match_score"`
	Gaps             []string `json:"identified_gaps,omitempty"`
	Explanation      string   `json:"llm_explanation"`
	CosineSimilarity *float64 `json:"cosine_similarity_score,omitempty"`
}
