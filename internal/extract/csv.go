package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/junhopark/prdforge/internal/domain"
)

// CSVExtractor renders CSV documents as a markdown table so that row/column
// structure survives into the extraction prompt.
type CSVExtractor struct{}

// NewCSVExtractor creates a CSV extractor.
func NewCSVExtractor() *CSVExtractor {
	return &CSVExtractor{}
}

func (e *CSVExtractor) Kind() domain.DocumentKind {
	return domain.DocumentKindCSV
}

func (e *CSVExtractor) Extract(_ context.Context, data []byte, _ string) (*ParsedContent, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // ragged exports are common
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv document is empty")
	}

	return &ParsedContent{
		Text: renderTable(rows),
		Metadata: map[string]string{
			"rows":    strconv.Itoa(len(rows)),
			"columns": strconv.Itoa(len(rows[0])),
		},
	}, nil
}

// renderTable formats rows as a markdown table, treating the first row as
// the header.
func renderTable(rows [][]string) string {
	var b strings.Builder
	for i, row := range rows {
		b.WriteString("| ")
		b.WriteString(strings.Join(cleanCells(row), " | "))
		b.WriteString(" |\n")
		if i == 0 {
			b.WriteString("|")
			b.WriteString(strings.Repeat(" --- |", len(row)))
			b.WriteString("\n")
		}
	}
	return normalizeText(b.String())
}

func cleanCells(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		cell = strings.ReplaceAll(cell, "\n", " ")
		cell = strings.ReplaceAll(cell, "|", "\\|")
		out[i] = strings.TrimSpace(cell)
	}
	return out
}
