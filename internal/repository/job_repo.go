package repository

import (
	"context"

	"github.com/junhopark/prdforge/internal/domain"
	"gorm.io/gorm"
)

// JobRepository handles job record persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Update persists the job record. cancel_requested is excluded: it is set
// only through RequestCancel, and a stage-result save racing a cancel must
// not write a stale false back over it.
func (r *JobRepository) Update(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Omit("cancel_requested").Save(job).Error
}

// GetByID retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.Job: job record if found.
//   - error: gorm.ErrRecordNotFound if absent, other errors on failure.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns jobs ordered by creation time, newest first.
// status filters when non-empty.
func (r *JobRepository) List(ctx context.Context, offset, limit int, status domain.JobStatus) ([]domain.Job, error) {
	q := r.db.WithContext(ctx).Model(&domain.Job{}).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var jobs []domain.Job
	if err := q.Offset(offset).Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// RequestCancel sets the cancellation flag on a non-terminal job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - bool: true if the flag was set (job existed and was not terminal).
//   - error: non-nil on query failure.
func (r *JobRepository) RequestCancel(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Job{}).
		Where("id = ? AND status NOT IN ?", id, []domain.JobStatus{domain.JobStatusCompleted, domain.JobStatusFailed}).
		Update("cancel_requested", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
