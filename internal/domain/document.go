package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentKind classifies an uploaded input document by format.
type DocumentKind string

const (
	DocumentKindText   DocumentKind = "text"
	DocumentKindEmail  DocumentKind = "email"
	DocumentKindCSV    DocumentKind = "csv"
	DocumentKindExcel  DocumentKind = "excel"
	DocumentKindSlides DocumentKind = "slides"
	DocumentKindWord   DocumentKind = "word"
	DocumentKindHTML   DocumentKind = "html"
	DocumentKindChat   DocumentKind = "chat"
	DocumentKindImage  DocumentKind = "image"
)

// extensionKinds maps file extensions to document kinds for upload routing.
var extensionKinds = map[string]DocumentKind{
	".txt":  DocumentKindText,
	".md":   DocumentKindText,
	".eml":  DocumentKindEmail,
	".csv":  DocumentKindCSV,
	".xlsx": DocumentKindExcel,
	".pptx": DocumentKindSlides,
	".docx": DocumentKindWord,
	".html": DocumentKindHTML,
	".htm":  DocumentKindHTML,
	".log":  DocumentKindChat,
	".png":  DocumentKindImage,
	".jpg":  DocumentKindImage,
	".jpeg": DocumentKindImage,
	".gif":  DocumentKindImage,
	".webp": DocumentKindImage,
}

// DetectDocumentKind classifies a filename by extension.
// Parameters:
//   - filename: original upload filename.
// Returns:
//   - DocumentKind: detected kind.
//   - bool: false if the extension is not supported.
func DetectDocumentKind(filename string) (DocumentKind, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	kind, ok := extensionKinds[ext]
	return kind, ok
}

// InputDocument represents one uploaded source document. The raw bytes live in
// object storage under StorageKey; only metadata is kept in the database.
type InputDocument struct {
	ID         string       `gorm:"type:text;primaryKey" json:"id"`
	Kind       DocumentKind `gorm:"type:text;index:idx_input_documents_kind" json:"kind"`
	Filename   string       `gorm:"type:text;not null" json:"filename"`
	StorageKey string       `gorm:"type:text" json:"storage_key"`
	Size       int64        `json:"size"`
	UploadedAt time.Time    `json:"uploaded_at"`
}

// TableName returns the database table name for InputDocument.
func (InputDocument) TableName() string {
	return "input_documents"
}
