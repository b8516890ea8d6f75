package domain

import "time"

// RequirementKind classifies a requirement candidate.
type RequirementKind string

const (
	RequirementFunctional    RequirementKind = "FUNCTIONAL"
	RequirementNonFunctional RequirementKind = "NON_FUNCTIONAL"
	RequirementConstraint    RequirementKind = "CONSTRAINT"
)

// Priority expresses requirement importance.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// RequirementCandidate is one extracted requirement before or after review.
// Confidence and the conflict/missing-info annotations come from the
// requirement extractor; the quality gate only consumes them.
type RequirementCandidate struct {
	ID                 string          `gorm:"type:text;primaryKey" json:"id"`
	JobID              string          `gorm:"type:text;not null;index:idx_candidates_job" json:"job_id"`
	Kind               RequirementKind `gorm:"type:text" json:"kind"`
	Title              string          `gorm:"type:text" json:"title"`
	Description        string          `gorm:"type:text" json:"description"`
	UserStory          string          `gorm:"type:text" json:"user_story,omitempty"`
	AcceptanceCriteria StringArray     `gorm:"type:text" json:"acceptance_criteria"`
	Priority           Priority        `gorm:"type:text;default:MEDIUM" json:"priority"`
	Confidence         float64         `json:"confidence"`
	ConfidenceReason   string          `gorm:"type:text" json:"confidence_reason,omitempty"`
	SourceDocumentID   string          `gorm:"type:text;index:idx_candidates_source" json:"source_document_id"`
	SourceExcerpt      string          `gorm:"type:text" json:"source_excerpt,omitempty"`
	ConflictsWith      StringArray     `gorm:"type:text" json:"conflicts_with"`
	MissingInfo        StringArray     `gorm:"type:text" json:"missing_info"`
	Ambiguous          bool            `gorm:"default:false" json:"ambiguous"`
	Approved           bool            `gorm:"default:false" json:"approved"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName returns the database table name for RequirementCandidate.
func (RequirementCandidate) TableName() string {
	return "requirement_candidates"
}

// Valid reports whether the candidate carries the fields the pipeline requires
// downstream. Invalid candidates are routed to review, never dropped silently.
func (c *RequirementCandidate) Valid() bool {
	if c.Title == "" || c.Description == "" {
		return false
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return false
	}
	switch c.Kind {
	case RequirementFunctional, RequirementNonFunctional, RequirementConstraint:
		return true
	default:
		return false
	}
}
