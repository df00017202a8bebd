package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"cv-rank-agent/internal/match"
)

const (
	summarySheet = "Summary"
	rankingSheet = "Ranking"
)

// ExportExcel writes the ranked results to an .xlsx workbook with a
// summary sheet and a ranking sheet.
func ExportExcel(result *match.Result, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(rankingSheet); err != nil {
		return fmt.Errorf("create ranking sheet: %w", err)
	}

	if err := writeSummary(f, result); err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}
	if err := writeRanking(f, result); err != nil {
		return fmt.Errorf("write ranking sheet: %w", err)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save workbook %s: %w", outputPath, err)
	}

	return nil
}

func writeSummary(f *excelize.File, result *match.Result) error {
	rows := [][]any{
		{"Candidate", result.Resume.Name},
		{"Strategy", result.Route.String()},
		{"Jobs scored", len(result.Scores)},
		{"Jobs skipped", len(result.Skipped)},
	}
	if len(result.Scores) > 0 {
		rows = append(rows,
			[]any{"Best match", result.Scores[0].JobReference},
			[]any{"Best overall fit", result.Scores[0].OverallFit},
		)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	for i, skip := range result.Skipped {
		cell, err := excelize.CoordinatesToCellName(1, len(rows)+2+i)
		if err != nil {
			return err
		}
		row := []any{"Skipped", skip.URL, skip.Stage, skip.Reason}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	return nil
}

func writeRanking(f *excelize.File, result *match.Result) error {
	header := []any{"Rank", "Job", "Overall Fit", "Skill Match", "Experience Match", "Cosine Similarity", "Gaps", "Explanation"}
	if err := f.SetSheetRow(rankingSheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(rankingSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, score := range result.Scores {
		cosine := any("")
		if score.CosineSimilarity != nil {
			cosine = *score.CosineSimilarity
		}

		row := []any{
			i + 1,
			score.JobReference,
			score.OverallFit,
			score.SkillMatch,
			score.ExperienceMatch,
			cosine,
			strings.Join(score.Gaps, "; "),
			score.Explanation,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(rankingSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(rankingSheet, "B", "B", 50); err != nil {
		return err
	}
	return f.SetColWidth(rankingSheet, "H", "H", 80)
}
