package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/junhopark/prdforge/internal/domain"
)

type generatorFixture struct {
	gen        *Generator
	generated  *memGeneratedStore
	candidates *memCandidateStore
	objects    *memObjectStorage
	indexer    *fakeIndexer
}

func newGeneratorFixture() *generatorFixture {
	f := &generatorFixture{
		generated:  newMemGeneratedStore(),
		candidates: newMemCandidateStore(),
		objects:    newMemObjectStorage(),
		indexer:    newFakeIndexer(),
	}
	f.gen = NewGenerator(&fakeModel{}, f.generated, f.candidates, f.objects, f.indexer)
	return f
}

func (f *generatorFixture) buildPRD(t *testing.T) *domain.GeneratedDocument {
	t.Helper()
	ctx := context.Background()
	job := &domain.Job{
		ID:             "job-1",
		InputFilenames: domain.StringArray{"notes.txt"},
	}
	approved := []domain.RequirementCandidate{
		candidate(func(c *domain.RequirementCandidate) {
			c.ID = "cand-1"
			c.JobID = job.ID
			c.Approved = true
			c.Confidence = 0.9
		}),
		candidate(func(c *domain.RequirementCandidate) {
			c.ID = "cand-2"
			c.JobID = job.ID
			c.Approved = true
			c.Confidence = 0.7
			c.Title = "sync offline edits"
			c.MissingInfo = domain.StringArray{"conflict resolution policy"}
		}),
	}
	if err := f.candidates.CreateBatch(ctx, approved); err != nil {
		t.Fatalf("seed candidates: %v", err)
	}
	prd, err := f.gen.GeneratePRD(ctx, job, approved)
	if err != nil {
		t.Fatalf("generate prd: %v", err)
	}
	return prd
}

func TestGeneratePRD(t *testing.T) {
	f := newGeneratorFixture()
	prd := f.buildPRD(t)
	ctx := context.Background()

	if prd.Kind != domain.GeneratedPRD {
		t.Errorf("kind = %s, want %s", prd.Kind, domain.GeneratedPRD)
	}
	if got, want := prd.OverallConfidence, 0.8; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("overall confidence = %v, want mean %v", got, want)
	}

	body, err := prd.DecodeBody()
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.RequirementIDs) != 2 {
		t.Errorf("requirement ids = %v, want both candidates", body.RequirementIDs)
	}
	if len(body.UnresolvedItems) != 1 || body.UnresolvedItems[0].Type != "question" {
		t.Errorf("unresolved = %+v, want one open question from missing info", body.UnresolvedItems)
	}
	if body.Overview == nil || body.Overview.Scope != "generated scope" {
		t.Errorf("overview = %+v, want the model output", body.Overview)
	}

	ok, _ := f.objects.Exists(ctx, prd.StorageKey)
	if !ok {
		t.Errorf("markdown artifact missing at %s", prd.StorageKey)
	}
}

func TestDeriveFromPRD(t *testing.T) {
	f := newGeneratorFixture()
	prd := f.buildPRD(t)
	ctx := context.Background()

	trd, err := f.gen.Derive(ctx, prd.ID, domain.GeneratedTRD)
	if err != nil {
		t.Fatalf("derive trd: %v", err)
	}
	if trd.ParentID != prd.ID {
		t.Errorf("parent = %s, want %s", trd.ParentID, prd.ID)
	}
	if !strings.Contains(trd.Title, "TRD") {
		t.Errorf("title = %q, want the derivative kind in it", trd.Title)
	}

	if _, err := f.gen.Derive(ctx, prd.ID, domain.GeneratedPRD); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("derive prd from prd: err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.gen.Derive(ctx, trd.ID, domain.GeneratedWBS); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("derive from non-prd: err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.gen.Derive(ctx, "missing", domain.GeneratedWBS); !errors.Is(err, ErrNotFound) {
		t.Errorf("derive from missing prd: err = %v, want ErrNotFound", err)
	}
}

func TestDeletePRDCascades(t *testing.T) {
	f := newGeneratorFixture()
	prd := f.buildPRD(t)
	ctx := context.Background()

	trd, err := f.gen.Derive(ctx, prd.ID, domain.GeneratedTRD)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	if err := f.gen.Delete(ctx, prd.ID); err != nil {
		t.Fatalf("delete prd: %v", err)
	}
	if _, err := f.gen.Get(ctx, prd.ID); !errors.Is(err, ErrNotFound) {
		t.Error("prd still retrievable after delete")
	}
	if _, err := f.gen.Get(ctx, trd.ID); !errors.Is(err, ErrNotFound) {
		t.Error("derivative survived its parent")
	}
	if ok, _ := f.objects.Exists(ctx, prd.StorageKey); ok {
		t.Error("prd artifact survived delete")
	}
	if len(f.indexer.removed) != 2 {
		t.Errorf("deindexed %d requirements, want 2", len(f.indexer.removed))
	}

	if err := f.gen.Delete(ctx, prd.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: err = %v, want ErrNotFound", err)
	}
}

func TestExportFormats(t *testing.T) {
	f := newGeneratorFixture()
	prd := f.buildPRD(t)
	ctx := context.Background()

	t.Run("markdown", func(t *testing.T) {
		data, contentType, filename, err := f.gen.Export(ctx, prd.ID, ExportMarkdown)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if contentType != "text/markdown; charset=utf-8" {
			t.Errorf("content type = %q", contentType)
		}
		if !strings.HasSuffix(filename, ".md") {
			t.Errorf("filename = %q, want .md", filename)
		}
		if !strings.Contains(string(data), "export reports") {
			t.Error("markdown lacks requirement titles")
		}
	})

	t.Run("json", func(t *testing.T) {
		data, contentType, filename, err := f.gen.Export(ctx, prd.ID, ExportJSON)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if contentType != "application/json" {
			t.Errorf("content type = %q", contentType)
		}
		if !strings.HasSuffix(filename, ".json") {
			t.Errorf("filename = %q, want .json", filename)
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("export is not valid json: %v", err)
		}
		if payload["id"] != prd.ID {
			t.Errorf("payload id = %v, want %s", payload["id"], prd.ID)
		}
		if _, ok := payload["requirements"]; !ok {
			t.Error("payload lacks requirements")
		}
	})

	t.Run("html", func(t *testing.T) {
		data, contentType, _, err := f.gen.Export(ctx, prd.ID, ExportHTML)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if contentType != "text/html; charset=utf-8" {
			t.Errorf("content type = %q", contentType)
		}
		if !strings.Contains(string(data), "<html") {
			t.Error("html export has no document element")
		}
	})

	t.Run("xlsx", func(t *testing.T) {
		data, contentType, filename, err := f.gen.Export(ctx, prd.ID, ExportXLSX)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if contentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
			t.Errorf("content type = %q", contentType)
		}
		if !strings.HasSuffix(filename, ".xlsx") {
			t.Errorf("filename = %q, want .xlsx", filename)
		}
		if len(data) == 0 {
			t.Error("xlsx export is empty")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, _, err := f.gen.Export(ctx, prd.ID, "docx")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("err = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("missing document", func(t *testing.T) {
		_, _, _, err := f.gen.Export(ctx, "missing", ExportMarkdown)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestPRDTitleTruncatesOnRuneBoundary(t *testing.T) {
	scope := strings.Repeat("오프라인 동기화 ", 20)
	title := prdTitle(&domain.Overview{Scope: scope})
	if !utf8.ValidString(title) {
		t.Fatalf("title is not valid UTF-8: %q", title)
	}
	if got := utf8.RuneCountInString(title); got != len("PRD: ")+80 {
		t.Errorf("title runes = %d, want %d", got, len("PRD: ")+80)
	}

	if got := prdTitle(&domain.Overview{Scope: "short"}); got != "PRD: short" {
		t.Errorf("title = %q, want %q", got, "PRD: short")
	}
	if got := prdTitle(nil); got != "Product Requirements Document" {
		t.Errorf("title = %q, want default", got)
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"PRD: Offline Sync", "prd-offline-sync"},
		{"weird///название###", "weird"},
		{"???", "document"},
		{"already-sluggy_name", "already-sluggy-name"},
	}
	for _, tt := range tests {
		if got := exportFilename(tt.title); got != tt.want {
			t.Errorf("exportFilename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
