package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/junhopark/prdforge/internal/domain"
	"github.com/junhopark/prdforge/internal/logger"
	"github.com/junhopark/prdforge/internal/storage"
)

// maxUploadSize bounds a single uploaded document.
const maxUploadSize = 32 << 20 // 32 MiB

// UploadService stores uploaded input documents: bytes in object storage,
// metadata in the database.
type UploadService struct {
	documents DocumentStore
	objects   storage.ObjectStorage
}

// NewUploadService wires document upload handling.
func NewUploadService(documents DocumentStore, objects storage.ObjectStorage) *UploadService {
	return &UploadService{documents: documents, objects: objects}
}

// Save persists one uploaded file.
// Parameters:
//   - ctx: request context.
//   - filename: original client filename, used for kind detection.
//   - size: declared size in bytes.
//   - r: file content.
//
// Returns:
//   - *domain.InputDocument: stored metadata including the generated ID.
//   - error: ErrInvalidInput for unsupported extensions or oversized files.
func (s *UploadService) Save(ctx context.Context, filename string, size int64, r io.Reader) (*domain.InputDocument, error) {
	kind, ok := domain.DetectDocumentKind(filename)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrInvalidInput, filepath.Ext(filename))
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: empty file %q", ErrInvalidInput, filename)
	}
	if size > maxUploadSize {
		return nil, fmt.Errorf("%w: %q exceeds %d byte limit", ErrInvalidInput, filename, maxUploadSize)
	}

	doc := &domain.InputDocument{
		ID:         uuid.New().String(),
		Kind:       kind,
		Filename:   filepath.Base(filename),
		Size:       size,
		UploadedAt: time.Now(),
	}
	doc.StorageKey = fmt.Sprintf("uploads/%s/%s", doc.ID, doc.Filename)

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.objects.Upload(ctx, doc.StorageKey, r, size, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}

	logger.With(logger.Fields{logger.FieldDocumentID: doc.ID}).
		WithField("kind", string(kind)).
		Info(ctx, "document uploaded: %s (%d bytes)", doc.Filename, size)
	return doc, nil
}

// Get returns one uploaded document's metadata.
func (s *UploadService) Get(ctx context.Context, id string) (*domain.InputDocument, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return doc, nil
}

// List returns uploaded documents, newest first.
func (s *UploadService) List(ctx context.Context, offset, limit int) ([]domain.InputDocument, error) {
	return s.documents.List(ctx, offset, limit)
}
