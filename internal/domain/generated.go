package domain

import (
	"encoding/json"
	"time"
)

// GeneratedKind identifies which document shape a generator produced.
// The PRD is the primary output; the rest derive from a completed PRD.
type GeneratedKind string

const (
	GeneratedPRD      GeneratedKind = "prd"
	GeneratedTRD      GeneratedKind = "trd"
	GeneratedWBS      GeneratedKind = "wbs"
	GeneratedProposal GeneratedKind = "proposal"
)

// IsDerivative reports whether the kind is produced from an existing PRD.
func (k GeneratedKind) IsDerivative() bool {
	return k == GeneratedTRD || k == GeneratedWBS || k == GeneratedProposal
}

// Overview is the summary section of a PRD.
type Overview struct {
	Background     string   `json:"background"`
	Goals          []string `json:"goals"`
	Scope          string   `json:"scope"`
	OutOfScope     []string `json:"out_of_scope,omitempty"`
	TargetUsers    []string `json:"target_users,omitempty"`
	SuccessMetrics []string `json:"success_metrics,omitempty"`
}

// Milestone is one delivery step proposed by the generator.
type Milestone struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Deliverables []string `json:"deliverables,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Order        int      `json:"order"`
}

// UnresolvedItem is an open question or risk carried into the document.
type UnresolvedItem struct {
	ID                     string   `json:"id"`
	Type                   string   `json:"type"` // question, decision, risk
	Description            string   `json:"description"`
	RelatedRequirementIDs  []string `json:"related_requirement_ids,omitempty"`
	SuggestedAction        string   `json:"suggested_action,omitempty"`
}

// DocumentBody is the structured content of a generated document. Derivative
// kinds reuse the Sections field; the PRD populates the typed fields.
type DocumentBody struct {
	Overview        *Overview              `json:"overview,omitempty"`
	RequirementIDs  []string               `json:"requirement_ids,omitempty"`
	Milestones      []Milestone            `json:"milestones,omitempty"`
	UnresolvedItems []UnresolvedItem       `json:"unresolved_items,omitempty"`
	Sections        []GeneratedSection     `json:"sections,omitempty"`
	SourceDocuments []string               `json:"source_documents,omitempty"`
}

// GeneratedSection is a free-form titled block used by derivative documents.
type GeneratedSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GeneratedDocument is a persisted generator output. Body is stored as JSON;
// the rendered markdown artifact lives in object storage under StorageKey.
type GeneratedDocument struct {
	ID                string        `gorm:"type:text;primaryKey" json:"id"`
	JobID             string        `gorm:"type:text;index:idx_generated_job" json:"job_id"`
	Kind              GeneratedKind `gorm:"type:text;index:idx_generated_kind" json:"kind"`
	ParentID          string        `gorm:"type:text;index:idx_generated_parent" json:"parent_id,omitempty"`
	Title             string        `gorm:"type:text" json:"title"`
	Body              string        `gorm:"type:text" json:"-"`
	OverallConfidence float64       `json:"overall_confidence"`
	StorageKey        string        `gorm:"type:text" json:"storage_key,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// TableName returns the database table name for GeneratedDocument.
func (GeneratedDocument) TableName() string {
	return "generated_documents"
}

// DecodeBody unmarshals the stored JSON body.
func (d *GeneratedDocument) DecodeBody() (*DocumentBody, error) {
	var body DocumentBody
	if err := json.Unmarshal([]byte(d.Body), &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// EncodeBody marshals body into the record.
func (d *GeneratedDocument) EncodeBody(body *DocumentBody) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	d.Body = string(b)
	return nil
}
