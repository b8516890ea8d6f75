package repository

import (
	"context"

	"github.com/junhopark/prdforge/internal/domain"
	"gorm.io/gorm"
)

// CandidateRepository handles requirement candidate persistence.
type CandidateRepository struct {
	db *gorm.DB
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(db *gorm.DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// CreateBatch inserts candidates for a job in one statement.
func (r *CandidateRepository) CreateBatch(ctx context.Context, candidates []domain.RequirementCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&candidates).Error
}

// GetByID retrieves a candidate by its ID.
func (r *CandidateRepository) GetByID(ctx context.Context, id string) (*domain.RequirementCandidate, error) {
	var c domain.RequirementCandidate
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByJob returns all candidates belonging to a job.
func (r *CandidateRepository) ListByJob(ctx context.Context, jobID string) ([]domain.RequirementCandidate, error) {
	var candidates []domain.RequirementCandidate
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("id").Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// Update persists the full candidate record.
func (r *CandidateRepository) Update(ctx context.Context, c *domain.RequirementCandidate) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// MarkApproved sets the approved flag for the given candidate IDs.
func (r *CandidateRepository) MarkApproved(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.RequirementCandidate{}).
		Where("id IN ?", ids).Update("approved", true).Error
}

// DeleteByIDs removes candidates, used when a reviewer rejects them.
func (r *CandidateRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&domain.RequirementCandidate{}, "id IN ?", ids).Error
}

// ListApprovedByJob returns the approved candidates for a job.
func (r *CandidateRepository) ListApprovedByJob(ctx context.Context, jobID string) ([]domain.RequirementCandidate, error) {
	var candidates []domain.RequirementCandidate
	err := r.db.WithContext(ctx).Where("job_id = ? AND approved = ?", jobID, true).Order("id").Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
