package extract

import "google.golang.org/genai"

// Response schemas for the structured-completion calls. The property names
// must stay in sync with the json tags on the match records the payloads
// are decoded into.

var resumeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":     {Type: genai.TypeString},
		"email":    {Type: genai.TypeString},
		"phone":    {Type: genai.TypeString},
		"location": {Type: genai.TypeString},
		"summary":  {Type: genai.TypeString},
		"skills": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"experience": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"company":     {Type: genai.TypeString},
					"role":        {Type: genai.TypeString},
					"duration":    {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
				},
				Required: []string{"company", "role"},
			},
		},
		"education": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"institution": {Type: genai.TypeString},
					"degree":      {Type: genai.TypeString},
					"year":        {Type: genai.TypeString},
				},
				Required: []string{"institution", "degree"},
			},
		},
		"certifications": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"languages": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"language":    {Type: genai.TypeString},
					"proficiency": {Type: genai.TypeString},
				},
				Required: []string{"language"},
			},
		},
	},
	Required: []string{"name"},
}

var jobSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":    {Type: genai.TypeString},
		"company":  {Type: genai.TypeString},
		"location": {Type: genai.TypeString},
		"requirements": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"responsibilities": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"job_description": {Type: genai.TypeString},
	},
	Required: []string{"title", "job_description"},
}

var scoreSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"overall_fit_score":      {Type: genai.TypeNumber},
		"skill_match_score":      {Type: genai.TypeNumber},
		"experience_match_score": {Type: genai.TypeNumber},
		"identified_gaps": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"llm_explanation": {Type: genai.TypeString},
	},
	Required: []string{"overall_fit_score", "skill_match_score", "experience_match_score", "llm_explanation"},
}
