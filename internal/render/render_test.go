package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/junhopark/prdforge/internal/domain"
	"github.com/xuri/excelize/v2"
)

func sampleView() *View {
	doc := &domain.GeneratedDocument{
		Title:             "Mobile App PRD",
		Kind:              domain.GeneratedPRD,
		OverallConfidence: 0.87,
		CreatedAt:         time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	body := &domain.DocumentBody{
		Overview: &domain.Overview{
			Background: "Field teams work offline for hours at a time.",
			Goals:      []string{"Support offline capture", "Sync without data loss"},
			Scope:      "Mobile capture flows",
		},
		Milestones: []domain.Milestone{
			{ID: "m1", Name: "Offline store", Description: "Local persistence layer", Order: 1, Deliverables: []string{"Offline capture"}},
		},
		UnresolvedItems: []domain.UnresolvedItem{
			{ID: "u1", Type: "question", Description: "Which regions launch first?"},
		},
		SourceDocuments: []string{"kickoff-notes.md"},
	}
	reqs := []domain.RequirementCandidate{
		{
			ID:                 "r1",
			Title:              "Offline capture",
			Description:        "Users can record entries without connectivity.",
			Kind:               domain.RequirementFunctional,
			Priority:           domain.PriorityHigh,
			Confidence:         0.9,
			SourceDocumentID:   "d1",
			SourceExcerpt:      "must work in the field with no signal",
			AcceptanceCriteria: domain.StringArray{"entries persist across restarts"},
		},
		{
			ID:          "r2",
			Title:       "Sync within 5 minutes",
			Description: "Queued entries upload within five minutes of reconnect.",
			Kind:        domain.RequirementNonFunctional,
			Priority:    domain.PriorityMedium,
			Confidence:  0.8,
		},
	}
	return NewView(doc, body, reqs)
}

func TestMarkdown(t *testing.T) {
	out := Markdown(sampleView())

	wantFragments := []string{
		"# Mobile App PRD",
		"Generated: 2026-03-14",
		"Confidence: 87%",
		"## Overview",
		"Field teams work offline",
		"## Functional Requirements",
		"### 1. Offline capture",
		"- Priority: HIGH",
		"## Non-Functional Requirements",
		"## Milestones",
		"### M1: Offline store",
		"## Unresolved Items",
		"Which regions launch first?",
		"## Source Documents",
		"kickoff-notes.md",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(out, frag) {
			t.Errorf("markdown missing %q", frag)
		}
	}
}

func TestMarkdownDerivativeSections(t *testing.T) {
	v := &View{
		Title:       "Mobile App TRD",
		Kind:        domain.GeneratedTRD,
		GeneratedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Body: &domain.DocumentBody{
			Sections: []domain.GeneratedSection{
				{Title: "Architecture", Content: "Client-side queue with idempotent upload."},
			},
		},
	}
	out := Markdown(v)
	if !strings.Contains(out, "## Architecture") {
		t.Errorf("section heading missing:\n%s", out)
	}
	if !strings.Contains(out, "idempotent upload") {
		t.Errorf("section content missing:\n%s", out)
	}
}

func TestHTML(t *testing.T) {
	out, err := HTML(sampleView())
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}

	for _, frag := range []string{
		"<title>Mobile App PRD</title>",
		"Offline capture",
		"Functional Requirements",
		"Milestones",
		"kickoff-notes.md",
	} {
		if !strings.Contains(out, frag) {
			t.Errorf("html missing %q", frag)
		}
	}
}

func TestHTMLEscapesContent(t *testing.T) {
	v := sampleView()
	v.Requirements[0].Description = `inject <script>alert("x")</script>`

	out, err := HTML(v)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if strings.Contains(out, "<script>alert") {
		t.Error("html output did not escape script tag")
	}
}

func TestXLSX(t *testing.T) {
	data, err := XLSX(sampleView())
	if err != nil {
		t.Fatalf("XLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Requirements")
	if err != nil {
		t.Fatalf("read requirements sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "Offline capture" {
		t.Errorf("unexpected first requirement: %v", rows[1])
	}

	msRows, err := f.GetRows("Milestones")
	if err != nil {
		t.Fatalf("read milestones sheet: %v", err)
	}
	if len(msRows) != 2 || msRows[1][1] != "Offline store" {
		t.Errorf("unexpected milestones sheet: %v", msRows)
	}
}
