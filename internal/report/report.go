// Package report renders a learner's dashboard as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-testlab/internal/catalog"
	"github.com/p-n-ai/pai-testlab/internal/learner"
	"github.com/p-n-ai/pai-testlab/internal/progress"
)

// Sheet names, in workbook order.
const (
	SheetSummary    = "Summary"
	SheetCategories = "Categories"
	SheetExercises  = "Exercises"
	SheetBadges     = "Badges"
)

// ContentType is the MIME type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Write renders d to w. The catalog supplies category and badge names.
func Write(w io.Writer, d learner.Dashboard, c *catalog.Catalog) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetCategories, SheetExercises, SheetBadges} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E0E7FF"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summaryRows(d)},
		{SheetCategories, categoryRows(d)},
		{SheetExercises, exerciseRows(d, c)},
		{SheetBadges, badgeRows(d)},
	}
	for _, s := range sheets {
		if err := writeRows(f, s.name, s.rows, header); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "A", "B", 28); err != nil {
		return fmt.Errorf("size %s columns: %w", sheet, err)
	}
	return nil
}

func summaryRows(d learner.Dashboard) [][]any {
	return [][]any{
		{"Metric", "Value"},
		{"Exercises", d.TotalExercises},
		{"Completed", d.CompletedExercises},
		{"Completion %", d.Percentage},
		{"Badges earned", d.Badges.Count()},
		{"Badges available", d.AvailableBadges},
	}
}

func categoryRows(d learner.Dashboard) [][]any {
	rows := [][]any{{"Category", "Name", "Completed", "Total", "Completion %"}}
	for _, c := range d.Categories {
		rows = append(rows, []any{c.CategoryID, c.Name, c.Completed, c.Total, c.Percentage})
	}
	return rows
}

func exerciseRows(d learner.Dashboard, c *catalog.Catalog) [][]any {
	rows := [][]any{{"Exercise", "Title", "Technique", "Status", "Score", "Total", "Score %", "Attempts"}}
	for _, e := range d.Exercises {
		technique := e.TechniqueID
		if t, ok := c.Technique(e.TechniqueID); ok {
			technique = t.Name
		}
		rows = append(rows, []any{e.ExerciseID, e.Title, technique, e.Status, e.Score, e.TotalPoints, e.ScorePercent, e.Attempts})
	}
	return rows
}

func badgeRows(d learner.Dashboard) [][]any {
	rows := [][]any{{"Badge", "Name", "Type", "Earned"}}
	for _, group := range [][]progress.UserBadge{d.Badges.Technique, d.Badges.Category, d.Badges.Achievement} {
		for _, b := range group {
			rows = append(rows, []any{b.ID, b.Name, string(b.Type), b.EarnedDate.UTC().Format(time.RFC3339)})
		}
	}
	return rows
}
