package service

import (
	"context"
	"fmt"

	"github.com/junhopark/prdforge/internal/domain"
	"github.com/junhopark/prdforge/internal/logger"
)

// ReviewService is the ledger of human decisions on flagged requirement
// candidates. Decisions are write-once.
type ReviewService struct {
	jobs    JobStore
	reviews ReviewStore
}

// NewReviewService wires the review ledger.
func NewReviewService(jobs JobStore, reviews ReviewStore) *ReviewService {
	return &ReviewService{jobs: jobs, reviews: reviews}
}

// Decision is one reviewer verdict as submitted through the API.
type Decision struct {
	JobID          string                 `json:"job_id"`
	ReviewItemID   string                 `json:"review_item_id"`
	Decision       domain.ReviewDecision  `json:"decision"`
	Notes          string                 `json:"notes,omitempty"`
	ModifiedFields map[string]interface{} `json:"modified_fields,omitempty"`
}

// SubmitDecision records one verdict.
// Parameters:
//   - ctx: request context.
//   - d: the decision; ModifiedFields is required for modified, ignored otherwise.
//
// Returns:
//   - error: ErrNotFound for a missing item or wrong job, ErrInvalidInput for
//     an unknown decision value, ErrAlreadyResolved when the item was decided
//     before.
func (s *ReviewService) SubmitDecision(ctx context.Context, d Decision) error {
	if !d.Decision.IsValid() {
		return fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, d.Decision)
	}
	if d.Decision == domain.DecisionModified && len(d.ModifiedFields) == 0 {
		return fmt.Errorf("%w: modified decision needs modified_fields", ErrInvalidInput)
	}

	item, err := s.reviews.GetByID(ctx, d.JobID, d.ReviewItemID)
	if err != nil {
		return fmt.Errorf("%w: review item %s for job %s", ErrNotFound, d.ReviewItemID, d.JobID)
	}
	if item.Resolved() {
		return fmt.Errorf("%w: item %s decided as %s", ErrAlreadyResolved, item.ID, item.Decision)
	}

	ok, err := s.reviews.Resolve(ctx, d.JobID, d.ReviewItemID, d.Decision, d.Notes, domain.JSONMap(d.ModifiedFields))
	if err != nil {
		return fmt.Errorf("resolve review item: %w", err)
	}
	if !ok {
		// Lost the race to another reviewer
		return fmt.Errorf("%w: item %s", ErrAlreadyResolved, d.ReviewItemID)
	}

	logger.With(logger.Fields{logger.FieldJobID: d.JobID}).
		WithStatus(string(d.Decision)).
		Info(ctx, "review decision recorded for item %s", d.ReviewItemID)
	return nil
}

// BulkResult reports the per-item outcome of a bulk submission.
type BulkResult struct {
	Submitted int               `json:"submitted"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// SubmitBulk applies many decisions, continuing past individual failures.
func (s *ReviewService) SubmitBulk(ctx context.Context, decisions []Decision) (*BulkResult, error) {
	if len(decisions) == 0 {
		return nil, fmt.Errorf("%w: empty decision list", ErrInvalidInput)
	}

	result := &BulkResult{Failed: map[string]string{}}
	for _, d := range decisions {
		if err := s.SubmitDecision(ctx, d); err != nil {
			result.Failed[d.ReviewItemID] = err.Error()
			continue
		}
		result.Submitted++
	}
	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result, nil
}

// ItemList is the pending/resolved split of a job's review items.
type ItemList struct {
	Pending  []domain.ReviewItem `json:"pending"`
	Resolved []domain.ReviewItem `json:"resolved"`
}

// ListItems returns a job's review items split by resolution state.
func (s *ReviewService) ListItems(ctx context.Context, jobID string) (*ItemList, error) {
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}

	items, err := s.reviews.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}

	list := &ItemList{}
	for _, item := range items {
		if item.Resolved() {
			list.Resolved = append(list.Resolved, item)
		} else {
			list.Pending = append(list.Pending, item)
		}
	}
	return list, nil
}

// Stats aggregates a job's review items by reason and decision.
type Stats struct {
	Total      int                           `json:"total"`
	Pending    int                           `json:"pending"`
	Resolved   int                           `json:"resolved"`
	ByReason   map[domain.ReviewReason]int   `json:"by_reason"`
	ByDecision map[domain.ReviewDecision]int `json:"by_decision"`
}

// JobStats computes review statistics for one job.
func (s *ReviewService) JobStats(ctx context.Context, jobID string) (*Stats, error) {
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}

	items, err := s.reviews.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}

	stats := &Stats{
		ByReason:   map[domain.ReviewReason]int{},
		ByDecision: map[domain.ReviewDecision]int{},
	}
	for _, item := range items {
		stats.Total++
		stats.ByReason[item.Reason]++
		stats.ByDecision[item.Decision]++
		if item.Resolved() {
			stats.Resolved++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}
