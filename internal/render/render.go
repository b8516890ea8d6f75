// Package render turns generated documents into exportable artifacts:
// markdown, HTML, and an xlsx traceability matrix.
package render

import (
	"time"

	"github.com/junhopark/prdforge/internal/domain"
)

// View is the flattened input all renderers consume. The document body is
// already decoded and requirements are resolved from their IDs.
type View struct {
	Title        string
	Kind         domain.GeneratedKind
	GeneratedAt  time.Time
	Confidence   float64
	Body         *domain.DocumentBody
	Requirements []domain.RequirementCandidate
}

// NewView assembles a renderer view from a stored document and its
// resolved requirements.
func NewView(doc *domain.GeneratedDocument, body *domain.DocumentBody, reqs []domain.RequirementCandidate) *View {
	return &View{
		Title:        doc.Title,
		Kind:         doc.Kind,
		GeneratedAt:  doc.CreatedAt,
		Confidence:   doc.OverallConfidence,
		Body:         body,
		Requirements: reqs,
	}
}

// requirementsByKind groups requirements preserving kind display order.
func requirementsByKind(reqs []domain.RequirementCandidate) []requirementGroup {
	order := []domain.RequirementKind{
		domain.RequirementFunctional,
		domain.RequirementNonFunctional,
		domain.RequirementConstraint,
	}
	titles := map[domain.RequirementKind]string{
		domain.RequirementFunctional:    "Functional Requirements",
		domain.RequirementNonFunctional: "Non-Functional Requirements",
		domain.RequirementConstraint:    "Constraints",
	}

	var groups []requirementGroup
	for _, kind := range order {
		var members []domain.RequirementCandidate
		for _, r := range reqs {
			if r.Kind == kind {
				members = append(members, r)
			}
		}
		if len(members) > 0 {
			groups = append(groups, requirementGroup{Title: titles[kind], Requirements: members})
		}
	}
	return groups
}

type requirementGroup struct {
	Title        string
	Requirements []domain.RequirementCandidate
}
