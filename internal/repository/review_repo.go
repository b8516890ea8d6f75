package repository

import (
	"context"
	"time"

	"github.com/junhopark/prdforge/internal/domain"
	"gorm.io/gorm"
)

// ReviewRepository handles review item persistence. Decisions are write-once:
// Resolve only succeeds while the item is still pending.
type ReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// CreateBatch inserts review items for a job in one statement.
func (r *ReviewRepository) CreateBatch(ctx context.Context, items []domain.ReviewItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// GetByID retrieves a review item scoped to a job.
func (r *ReviewRepository) GetByID(ctx context.Context, jobID, itemID string) (*domain.ReviewItem, error) {
	var item domain.ReviewItem
	err := r.db.WithContext(ctx).First(&item, "id = ? AND job_id = ?", itemID, jobID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByJob returns all review items belonging to a job.
func (r *ReviewRepository) ListByJob(ctx context.Context, jobID string) ([]domain.ReviewItem, error) {
	var items []domain.ReviewItem
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("created_at").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// PendingCount returns the number of unresolved items for a job.
func (r *ReviewRepository) PendingCount(ctx context.Context, jobID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ReviewItem{}).
		Where("job_id = ? AND decision = ?", jobID, domain.DecisionPending).Count(&count).Error
	return count, err
}

// ResolvedCount returns the number of resolved items for a job.
func (r *ReviewRepository) ResolvedCount(ctx context.Context, jobID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ReviewItem{}).
		Where("job_id = ? AND decision <> ?", jobID, domain.DecisionPending).Count(&count).Error
	return count, err
}

// Resolve records a decision on a pending item. The conditional update makes
// the write-once check atomic: concurrent decisions on the same item race on
// the WHERE clause and only one row update wins.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID, itemID: item scope.
//   - decision: reviewer verdict.
//   - notes: optional reviewer notes.
//   - modified: field overrides when decision is modified.
// Returns:
//   - bool: true if the decision was recorded, false if the item was already resolved.
//   - error: non-nil on query failure.
func (r *ReviewRepository) Resolve(ctx context.Context, jobID, itemID string, decision domain.ReviewDecision, notes string, modified domain.JSONMap) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&domain.ReviewItem{}).
		Where("id = ? AND job_id = ? AND decision = ?", itemID, jobID, domain.DecisionPending).
		Updates(map[string]interface{}{
			"decision":        decision,
			"decision_notes":  notes,
			"modified_fields": modified,
			"resolved_at":     now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// errNotFound re-export so callers can branch without importing gorm directly.
var ErrRecordNotFound = gorm.ErrRecordNotFound
