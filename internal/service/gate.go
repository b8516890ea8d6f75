package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/junhopark/prdforge/internal/domain"
)

// QualityGate decides, deterministically, which requirement candidates are
// auto-approved and which need a human verdict. It never calls the model:
// it only reads the annotations the extractor attached.
type QualityGate struct {
	threshold float64
}

// NewQualityGate creates a gate with the given auto-approve threshold.
func NewQualityGate(threshold float64) *QualityGate {
	return &QualityGate{threshold: threshold}
}

// GateResult is the outcome of evaluating one job's candidates.
type GateResult struct {
	ApprovedIDs []string
	ReviewItems []domain.ReviewItem
}

// Evaluate classifies candidates. One candidate yields at most one review
// item; when several findings apply, the most severe reason wins:
// incomplete > conflict > missing_info > ambiguous > low_confidence.
func (g *QualityGate) Evaluate(jobID string, candidates []domain.RequirementCandidate) *GateResult {
	result := &GateResult{}
	now := time.Now()

	for i := range candidates {
		c := &candidates[i]
		reason, description, suggestion := g.classify(c)
		if reason == "" {
			result.ApprovedIDs = append(result.ApprovedIDs, c.ID)
			continue
		}
		result.ReviewItems = append(result.ReviewItems, domain.ReviewItem{
			ID:                  uuid.New().String(),
			JobID:               jobID,
			RequirementID:       c.ID,
			Reason:              reason,
			Description:         description,
			OriginalText:        c.SourceExcerpt,
			SuggestedResolution: suggestion,
			Decision:            domain.DecisionPending,
			CreatedAt:           now,
		})
	}
	return result
}

func (g *QualityGate) classify(c *domain.RequirementCandidate) (domain.ReviewReason, string, string) {
	if !c.Valid() {
		return domain.ReviewReasonIncomplete,
			fmt.Sprintf("%q is missing required fields or carries an out-of-range confidence", c.Title),
			"fill in the missing fields or reject the candidate"
	}
	if len(c.ConflictsWith) > 0 {
		return domain.ReviewReasonConflict,
			fmt.Sprintf("%q conflicts with: %s", c.Title, strings.Join(c.ConflictsWith, "; ")),
			"decide which requirement wins and reject or modify the other"
	}
	if len(c.MissingInfo) > 0 {
		return domain.ReviewReasonMissingInfo,
			fmt.Sprintf("%q lacks information: %s", c.Title, strings.Join(c.MissingInfo, "; ")),
			"supply the missing details via modify, or approve as-is"
	}
	if c.Ambiguous {
		return domain.ReviewReasonAmbiguous,
			fmt.Sprintf("%q can be read more than one way: %s", c.Title, c.ConfidenceReason),
			"rewrite the description to a single interpretation"
	}
	if c.Confidence < g.threshold {
		return domain.ReviewReasonLowConfidence,
			fmt.Sprintf("%q scored %.2f, below the %.2f auto-approve threshold: %s",
				c.Title, c.Confidence, g.threshold, c.ConfidenceReason),
			"confirm the requirement matches the source material"
	}
	return "", "", ""
}
