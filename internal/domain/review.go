package domain

import "time"

// ReviewReason explains why a candidate was routed to human review.
type ReviewReason string

const (
	ReviewReasonLowConfidence ReviewReason = "low_confidence"
	ReviewReasonConflict      ReviewReason = "conflict"
	ReviewReasonIncomplete    ReviewReason = "incomplete"
	ReviewReasonAmbiguous     ReviewReason = "ambiguous"
	ReviewReasonMissingInfo   ReviewReason = "missing_info"
)

// ReviewDecision is the reviewer's verdict on a review item. Decisions are
// write-once: once an item leaves pending it never changes again.
type ReviewDecision string

const (
	DecisionPending  ReviewDecision = "pending"
	DecisionApproved ReviewDecision = "approved"
	DecisionRejected ReviewDecision = "rejected"
	DecisionModified ReviewDecision = "modified"
)

// IsValid reports whether d is a decision a reviewer may submit.
func (d ReviewDecision) IsValid() bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionModified:
		return true
	default:
		return false
	}
}

// ReviewItem is created by the quality gate for any requirement candidate
// that fails auto-approval. ResolvedAt is set iff the decision left pending.
type ReviewItem struct {
	ID                  string         `gorm:"type:text;primaryKey" json:"id"`
	JobID               string         `gorm:"type:text;not null;index:idx_review_items_job" json:"job_id"`
	RequirementID       string         `gorm:"type:text;not null" json:"requirement_id"`
	Reason              ReviewReason   `gorm:"type:text" json:"reason"`
	Description         string         `gorm:"type:text" json:"description"`
	OriginalText        string         `gorm:"type:text" json:"original_text,omitempty"`
	SuggestedResolution string         `gorm:"type:text" json:"suggested_resolution,omitempty"`
	Decision            ReviewDecision `gorm:"type:text;index:idx_review_items_decision;default:pending" json:"decision"`
	DecisionNotes       string         `gorm:"type:text" json:"decision_notes,omitempty"`
	ModifiedFields      JSONMap        `gorm:"type:text" json:"modified_fields,omitempty"`
	ResolvedAt          *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

// TableName returns the database table name for ReviewItem.
func (ReviewItem) TableName() string {
	return "review_items"
}

// Resolved reports whether the item has a recorded decision.
func (r *ReviewItem) Resolved() bool {
	return r.Decision != DecisionPending
}
