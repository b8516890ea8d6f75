package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/junhopark/prdforge/internal/domain"
	"github.com/junhopark/prdforge/internal/logger"
	"github.com/junhopark/prdforge/internal/render"
	"github.com/junhopark/prdforge/internal/storage"
)

// GeneratorModel is the slice of the model client the generator uses.
type GeneratorModel interface {
	GenerateOverview(ctx context.Context, requirements []domain.RequirementCandidate) (*domain.Overview, error)
	GenerateMilestones(ctx context.Context, requirements []domain.RequirementCandidate) ([]domain.Milestone, error)
	GenerateDerivative(ctx context.Context, kind domain.GeneratedKind, prdJSON string) ([]domain.GeneratedSection, error)
}

// Deindexer removes requirements from the similarity index when their PRD
// is deleted.
type Deindexer interface {
	RemoveRequirements(ctx context.Context, requirementIDs []string) error
}

// Generator builds PRDs from approved requirement candidates and derives
// TRD/WBS/proposal documents from completed PRDs.
type Generator struct {
	model      GeneratorModel
	generated  GeneratedStore
	candidates CandidateStore
	objects    storage.ObjectStorage
	deindexer  Deindexer
}

// NewGenerator wires the document generator. deindexer may be nil when
// similarity search is disabled.
func NewGenerator(model GeneratorModel, generated GeneratedStore, candidates CandidateStore, objects storage.ObjectStorage, deindexer Deindexer) *Generator {
	return &Generator{
		model:      model,
		generated:  generated,
		candidates: candidates,
		objects:    objects,
		deindexer:  deindexer,
	}
}

// GeneratePRD assembles the PRD document for a job from its approved
// candidates: model-written overview and milestones, unresolved items
// carried over from candidate annotations, overall confidence as the mean
// candidate confidence.
func (g *Generator) GeneratePRD(ctx context.Context, job *domain.Job, approved []domain.RequirementCandidate) (*domain.GeneratedDocument, error) {
	overview, err := g.model.GenerateOverview(ctx, approved)
	if err != nil {
		return nil, fmt.Errorf("generate overview: %w", err)
	}
	milestones, err := g.model.GenerateMilestones(ctx, approved)
	if err != nil {
		return nil, fmt.Errorf("generate milestones: %w", err)
	}

	reqIDs := make([]string, len(approved))
	var confidenceSum float64
	for i, c := range approved {
		reqIDs[i] = c.ID
		confidenceSum += c.Confidence
	}

	body := &domain.DocumentBody{
		Overview:        overview,
		RequirementIDs:  reqIDs,
		Milestones:      milestones,
		UnresolvedItems: unresolvedFromCandidates(approved),
		SourceDocuments: job.InputFilenames,
	}

	doc := &domain.GeneratedDocument{
		ID:                uuid.New().String(),
		JobID:             job.ID,
		Kind:              domain.GeneratedPRD,
		Title:             prdTitle(overview),
		OverallConfidence: confidenceSum / float64(len(approved)),
		CreatedAt:         time.Now(),
	}
	if err := doc.EncodeBody(body); err != nil {
		return nil, fmt.Errorf("encode prd body: %w", err)
	}

	if err := g.storeArtifact(ctx, doc, body, approved); err != nil {
		return nil, err
	}
	if err := g.generated.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist prd: %w", err)
	}

	logger.With(logger.Fields{logger.FieldDocumentID: doc.ID}).
		WithCount(len(approved)).
		Info(ctx, "prd generated")
	return doc, nil
}

// Derive produces a TRD, WBS, or proposal from a completed PRD.
func (g *Generator) Derive(ctx context.Context, prdID string, kind domain.GeneratedKind) (*domain.GeneratedDocument, error) {
	if !kind.IsDerivative() {
		return nil, fmt.Errorf("%w: cannot derive %s", ErrInvalidInput, kind)
	}

	prd, err := g.generated.GetByID(ctx, prdID)
	if err != nil {
		return nil, fmt.Errorf("%w: prd %s", ErrNotFound, prdID)
	}
	if prd.Kind != domain.GeneratedPRD {
		return nil, fmt.Errorf("%w: %s is a %s, derivatives come from PRDs", ErrInvalidInput, prdID, prd.Kind)
	}

	sections, err := g.model.GenerateDerivative(ctx, kind, prd.Body)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", kind, err)
	}

	body := &domain.DocumentBody{Sections: sections}
	doc := &domain.GeneratedDocument{
		ID:                uuid.New().String(),
		JobID:             prd.JobID,
		Kind:              kind,
		ParentID:          prd.ID,
		Title:             fmt.Sprintf("%s - %s", prd.Title, strings.ToUpper(string(kind))),
		OverallConfidence: prd.OverallConfidence,
		CreatedAt:         time.Now(),
	}
	if err := doc.EncodeBody(body); err != nil {
		return nil, fmt.Errorf("encode %s body: %w", kind, err)
	}

	if err := g.storeArtifact(ctx, doc, body, nil); err != nil {
		return nil, err
	}
	if err := g.generated.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist %s: %w", kind, err)
	}
	return doc, nil
}

// Get returns a generated document by ID.
func (g *Generator) Get(ctx context.Context, id string) (*domain.GeneratedDocument, error) {
	doc, err := g.generated.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return doc, nil
}

// List returns generated documents of a kind, newest first.
func (g *Generator) List(ctx context.Context, kind domain.GeneratedKind, offset, limit int) ([]domain.GeneratedDocument, error) {
	return g.generated.List(ctx, kind, offset, limit)
}

// Delete removes a generated document, its stored artifact, and (for PRDs)
// its derivatives and index entries.
func (g *Generator) Delete(ctx context.Context, id string) error {
	doc, err := g.generated.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}

	if doc.Kind == domain.GeneratedPRD {
		derivatives, err := g.generated.ListByParent(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("list derivatives: %w", err)
		}
		for _, d := range derivatives {
			if err := g.deleteOne(ctx, &d); err != nil {
				return err
			}
		}
		if g.deindexer != nil {
			if body, err := doc.DecodeBody(); err == nil && len(body.RequirementIDs) > 0 {
				if err := g.deindexer.RemoveRequirements(ctx, body.RequirementIDs); err != nil {
					logger.CtxWarn(ctx, "deindex failed for prd %s: %v", doc.ID, err)
				}
			}
		}
	}
	return g.deleteOne(ctx, doc)
}

func (g *Generator) deleteOne(ctx context.Context, doc *domain.GeneratedDocument) error {
	if doc.StorageKey != "" {
		if err := g.objects.Delete(ctx, doc.StorageKey); err != nil {
			logger.CtxWarn(ctx, "delete artifact %s: %v", doc.StorageKey, err)
		}
	}
	ok, err := g.generated.Delete(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", doc.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: document %s", ErrNotFound, doc.ID)
	}
	return nil
}

// ExportFormat names a supported export serialization.
type ExportFormat string

const (
	ExportMarkdown ExportFormat = "markdown"
	ExportJSON     ExportFormat = "json"
	ExportHTML     ExportFormat = "html"
	ExportXLSX     ExportFormat = "xlsx"
)

// Export renders a generated document in the requested format.
// Returns the bytes, the content type, and a suggested filename.
func (g *Generator) Export(ctx context.Context, id string, format ExportFormat) ([]byte, string, string, error) {
	doc, err := g.generated.GetByID(ctx, id)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	body, err := doc.DecodeBody()
	if err != nil {
		return nil, "", "", fmt.Errorf("decode body: %w", err)
	}

	var reqs []domain.RequirementCandidate
	if doc.Kind == domain.GeneratedPRD {
		reqs, err = g.candidates.ListApprovedByJob(ctx, doc.JobID)
		if err != nil {
			return nil, "", "", fmt.Errorf("load requirements: %w", err)
		}
	}
	view := render.NewView(doc, body, reqs)
	base := exportFilename(doc.Title)

	switch format {
	case ExportMarkdown:
		return []byte(render.Markdown(view)), "text/markdown; charset=utf-8", base + ".md", nil
	case ExportJSON:
		payload := map[string]interface{}{
			"id":                 doc.ID,
			"kind":               doc.Kind,
			"title":              doc.Title,
			"overall_confidence": doc.OverallConfidence,
			"created_at":         doc.CreatedAt,
			"body":               body,
			"requirements":       reqs,
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, "", "", fmt.Errorf("encode json: %w", err)
		}
		return data, "application/json", base + ".json", nil
	case ExportHTML:
		page, err := render.HTML(view)
		if err != nil {
			return nil, "", "", err
		}
		return []byte(page), "text/html; charset=utf-8", base + ".html", nil
	case ExportXLSX:
		data, err := render.XLSX(view)
		if err != nil {
			return nil, "", "", err
		}
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", base + ".xlsx", nil
	default:
		return nil, "", "", fmt.Errorf("%w: unknown export format %q", ErrInvalidInput, format)
	}
}

// storeArtifact renders the markdown artifact and uploads it, recording the
// storage key on the document.
func (g *Generator) storeArtifact(ctx context.Context, doc *domain.GeneratedDocument, body *domain.DocumentBody, reqs []domain.RequirementCandidate) error {
	markdown := render.Markdown(render.NewView(doc, body, reqs))
	key := fmt.Sprintf("generated/%s/%s.md", doc.Kind, doc.ID)
	data := []byte(markdown)
	if err := g.objects.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "text/markdown"); err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}
	doc.StorageKey = key
	return nil
}

func unresolvedFromCandidates(approved []domain.RequirementCandidate) []domain.UnresolvedItem {
	var items []domain.UnresolvedItem
	for _, c := range approved {
		for _, missing := range c.MissingInfo {
			items = append(items, domain.UnresolvedItem{
				ID:                    uuid.New().String(),
				Type:                  "question",
				Description:           fmt.Sprintf("%s: %s", c.Title, missing),
				RelatedRequirementIDs: []string{c.ID},
			})
		}
		for _, conflict := range c.ConflictsWith {
			items = append(items, domain.UnresolvedItem{
				ID:                    uuid.New().String(),
				Type:                  "decision",
				Description:           fmt.Sprintf("%s conflicts with %s", c.Title, conflict),
				RelatedRequirementIDs: []string{c.ID},
			})
		}
	}
	return items
}

func prdTitle(overview *domain.Overview) string {
	if overview != nil && overview.Scope != "" {
		scope := overview.Scope
		if runes := []rune(scope); len(runes) > 80 {
			scope = string(runes[:80])
		}
		return "PRD: " + scope
	}
	return "Product Requirements Document"
}

func exportFilename(title string) string {
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "document"
	}
	return slug
}
