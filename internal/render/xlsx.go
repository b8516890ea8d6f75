package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSX renders a traceability workbook: one row per requirement with its
// source evidence, plus a milestones sheet when the body carries any.
func XLSX(v *View) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Requirements"

	first := f.GetSheetName(0)
	if first != sheet {
		if err := f.SetSheetName(first, sheet); err != nil {
			return nil, err
		}
	}

	headers := []string{
		"ID",
		"Title",
		"Kind",
		"Priority",
		"Confidence",
		"Description",
		"Acceptance Criteria",
		"Source Document",
		"Source Excerpt",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, r := range v.Requirements {
		write := func(col int, val any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, val)
		}
		write(1, r.ID)
		write(2, r.Title)
		write(3, string(r.Kind))
		write(4, string(r.Priority))
		write(5, fmt.Sprintf("%.2f", r.Confidence))
		write(6, r.Description)
		write(7, strings.Join(r.AcceptanceCriteria, "; "))
		write(8, r.SourceDocumentID)
		write(9, r.SourceExcerpt)
		row++
	}

	_ = f.SetColWidth(sheet, "B", "B", 36)
	_ = f.SetColWidth(sheet, "F", "F", 60)
	_ = f.SetColWidth(sheet, "G", "G", 40)
	_ = f.SetColWidth(sheet, "I", "I", 40)

	if len(v.Body.Milestones) > 0 {
		if err := writeMilestones(f, v); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeMilestones(f *excelize.File, v *View) error {
	const sheet = "Milestones"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Order", "Name", "Description", "Deliverables", "Dependencies"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	row := 2
	for _, m := range v.Body.Milestones {
		write := func(col int, val any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, val)
		}
		write(1, m.Order)
		write(2, m.Name)
		write(3, m.Description)
		write(4, strings.Join(m.Deliverables, "; "))
		write(5, strings.Join(m.Dependencies, "; "))
		row++
	}

	_ = f.SetColWidth(sheet, "C", "C", 60)
	return nil
}
