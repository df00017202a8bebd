// Package report renders the ranked scoring results: a console report and
// an optional Excel workbook.
package report

import (
	"fmt"
	"io"
	"strings"

	"cv-rank-agent/internal/match"
)

const lineWidth = 80

// Render writes the ranked results as a plain-text report. Records are
// printed in the order they arrive; ranking is the aggregator's job.
func Render(w io.Writer, result *match.Result) {
	if len(result.Scores) == 0 {
		fmt.Fprintln(w, "\nNo scores to display.")
		renderSkipped(w, result.Skipped)
		return
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", lineWidth))
	fmt.Fprintf(w, "  RANKING RESULTS — %d job(s) evaluated (%s path)\n", len(result.Scores), result.Route)
	fmt.Fprint(w, strings.Repeat("=", lineWidth)+"\n")

	for i, score := range result.Scores {
		fmt.Fprintf(w, "\n  #%d  %s\n", i+1, score.JobReference)
		fmt.Fprintf(w, "  %s\n", strings.Repeat("─", lineWidth-4))
		fmt.Fprintf(w, "  Overall Fit:       %s\n", percent(score.OverallFit))
		fmt.Fprintf(w, "  Skill Match:       %s\n", percent(score.SkillMatch))
		fmt.Fprintf(w, "  Experience Match:  %s\n", percent(score.ExperienceMatch))
		if score.CosineSimilarity != nil {
			fmt.Fprintf(w, "  Cosine Similarity: %s\n", percent(*score.CosineSimilarity))
		}
		if len(score.Gaps) > 0 {
			fmt.Fprintf(w, "  Gaps:              %s\n", strings.Join(score.Gaps, ", "))
		}
		fmt.Fprintf(w, "  Explanation:       %s\n", score.Explanation)
	}

	renderSkipped(w, result.Skipped)

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", lineWidth))
}

func renderSkipped(w io.Writer, skipped []match.SkippedJob) {
	if len(skipped) == 0 {
		return
	}

	fmt.Fprintf(w, "\n  %d job(s) skipped:\n", len(skipped))
	for _, skip := range skipped {
		fmt.Fprintf(w, "  - %s (%s): %s\n", skip.URL, skip.Stage, skip.Reason)
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
