package repository

import (
	"context"

	"github.com/junhopark/prdforge/internal/domain"
	"gorm.io/gorm"
)

// DocumentRepository handles input document metadata persistence.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new input document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.InputDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByID retrieves an input document by its ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.InputDocument, error) {
	var doc domain.InputDocument
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetByIDs retrieves documents for the given IDs, preserving input order.
func (r *DocumentRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.InputDocument, error) {
	var docs []domain.InputDocument
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&docs).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]domain.InputDocument, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	ordered := make([]domain.InputDocument, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			ordered = append(ordered, d)
		}
	}
	return ordered, nil
}

// List returns input documents ordered by upload time, newest first.
func (r *DocumentRepository) List(ctx context.Context, offset, limit int) ([]domain.InputDocument, error) {
	var docs []domain.InputDocument
	err := r.db.WithContext(ctx).Order("uploaded_at DESC").Offset(offset).Limit(limit).Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}
