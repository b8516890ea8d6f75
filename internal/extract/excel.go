package extract

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/junhopark/prdforge/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ExcelExtractor renders xlsx workbooks sheet by sheet as markdown tables.
type ExcelExtractor struct{}

// NewExcelExtractor creates an Excel extractor.
func NewExcelExtractor() *ExcelExtractor {
	return &ExcelExtractor{}
}

func (e *ExcelExtractor) Kind() domain.DocumentKind {
	return domain.DocumentKindExcel
}

func (e *ExcelExtractor) Extract(_ context.Context, data []byte, _ string) (*ParsedContent, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	var b strings.Builder
	var nonEmpty int
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		rows = dropEmptyRows(rows)
		if len(rows) == 0 {
			continue
		}
		nonEmpty++

		fmt.Fprintf(&b, "## %s\n\n", sheet)
		b.WriteString(renderTable(rows))
		b.WriteString("\n\n")
	}
	if nonEmpty == 0 {
		return nil, fmt.Errorf("workbook has no content")
	}

	return &ParsedContent{
		Text: normalizeText(b.String()),
		Metadata: map[string]string{
			"sheets": strconv.Itoa(nonEmpty),
		},
	}, nil
}

func dropEmptyRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}
