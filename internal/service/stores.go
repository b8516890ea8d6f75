package service

import (
	"context"

	"github.com/junhopark/prdforge/internal/domain"
)

// Narrow store interfaces consumed by the services. The gorm repositories
// satisfy them; tests plug in memory fakes.

// JobStore persists pipeline jobs.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	Update(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, offset, limit int, status domain.JobStatus) ([]domain.Job, error)
	RequestCancel(ctx context.Context, id string) (bool, error)
}

// DocumentStore persists uploaded input documents.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.InputDocument) error
	GetByID(ctx context.Context, id string) (*domain.InputDocument, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.InputDocument, error)
	List(ctx context.Context, offset, limit int) ([]domain.InputDocument, error)
}

// CandidateStore persists requirement candidates.
type CandidateStore interface {
	CreateBatch(ctx context.Context, candidates []domain.RequirementCandidate) error
	GetByID(ctx context.Context, id string) (*domain.RequirementCandidate, error)
	ListByJob(ctx context.Context, jobID string) ([]domain.RequirementCandidate, error)
	ListApprovedByJob(ctx context.Context, jobID string) ([]domain.RequirementCandidate, error)
	Update(ctx context.Context, c *domain.RequirementCandidate) error
	MarkApproved(ctx context.Context, ids []string) error
	DeleteByIDs(ctx context.Context, ids []string) error
}

// ReviewStore persists review items. Resolve returns false when the item
// was already decided.
type ReviewStore interface {
	CreateBatch(ctx context.Context, items []domain.ReviewItem) error
	GetByID(ctx context.Context, jobID, itemID string) (*domain.ReviewItem, error)
	ListByJob(ctx context.Context, jobID string) ([]domain.ReviewItem, error)
	PendingCount(ctx context.Context, jobID string) (int64, error)
	ResolvedCount(ctx context.Context, jobID string) (int64, error)
	Resolve(ctx context.Context, jobID, itemID string, decision domain.ReviewDecision, notes string, modified domain.JSONMap) (bool, error)
}

// GeneratedStore persists generated documents.
type GeneratedStore interface {
	Create(ctx context.Context, doc *domain.GeneratedDocument) error
	GetByID(ctx context.Context, id string) (*domain.GeneratedDocument, error)
	List(ctx context.Context, kind domain.GeneratedKind, offset, limit int) ([]domain.GeneratedDocument, error)
	ListByParent(ctx context.Context, parentID string) ([]domain.GeneratedDocument, error)
	Delete(ctx context.Context, id string) (bool, error)
}
