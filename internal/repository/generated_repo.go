package repository

import (
	"context"

	"github.com/junhopark/prdforge/internal/domain"
	"gorm.io/gorm"
)

// GeneratedRepository handles generated document persistence.
type GeneratedRepository struct {
	db *gorm.DB
}

// NewGeneratedRepository creates a new GeneratedRepository.
func NewGeneratedRepository(db *gorm.DB) *GeneratedRepository {
	return &GeneratedRepository{db: db}
}

// Create inserts a generated document record.
func (r *GeneratedRepository) Create(ctx context.Context, doc *domain.GeneratedDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByID retrieves a generated document by its ID.
func (r *GeneratedRepository) GetByID(ctx context.Context, id string) (*domain.GeneratedDocument, error) {
	var doc domain.GeneratedDocument
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns generated documents of a kind, newest first.
func (r *GeneratedRepository) List(ctx context.Context, kind domain.GeneratedKind, offset, limit int) ([]domain.GeneratedDocument, error) {
	q := r.db.WithContext(ctx).Model(&domain.GeneratedDocument{}).Order("created_at DESC")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var docs []domain.GeneratedDocument
	if err := q.Offset(offset).Limit(limit).Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// ListByParent returns derivatives of a PRD.
func (r *GeneratedRepository) ListByParent(ctx context.Context, parentID string) ([]domain.GeneratedDocument, error) {
	var docs []domain.GeneratedDocument
	err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Order("created_at").Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes a generated document record.
// Returns true when a row was deleted.
func (r *GeneratedRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&domain.GeneratedDocument{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
