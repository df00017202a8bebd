package match

import "strings"

// ResumeText renders the résumé as a single natural-language block. The
// rendering is deterministic and order-preserving: identical résumés must
// always produce identical text because it is the canonical embedding
// input. Missing fields are skipped, never replaced with placeholders.
func ResumeText(r *Resume) string {
	parts := make([]string, 0, 2+len(r.Experience))

	if r.Summary != "" {
		parts = append(parts, r.Summary)
	}

	if len(r.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(r.Skills, ", "))
	}

	for _, exp := range r.Experience {
		entry := exp.Role + " at " + exp.Company
		if exp.Duration != "" {
			entry += " (" + exp.Duration + ")"
		}
		if exp.Description != "" {
			entry += " — " + exp.Description
		}
		parts = append(parts, entry)
	}

	return strings.Join(parts, "\n")
}

// JobText renders a job record for the scoring prompt. Each section is
// included only when the corresponding field is present.
func JobText(j *Job) string {
	parts := make([]string, 0, 6)

	if j.Title != "" {
		parts = append(parts, "Title: "+j.Title)
	}
	if j.Company != "" {
		parts = append(parts, "Company: "+j.Company)
	}
	if j.Location != "" {
		parts = append(parts, "Location: "+j.Location)
	}
	if len(j.Requirements) > 0 {
		parts = append(parts, "Requirements:\n- "+strings.Join(j.Requirements, "\n- "))
	}
	if len(j.Responsibilities) > 0 {
		parts = append(parts, "Responsibilities:\n- "+strings.Join(j.Responsibilities, "\n- "))
	}
	if j.Description != "" {
		parts = append(parts, "Full Description:\n"+j.Description)
	}

	return strings.Join(parts, "\n")
}
