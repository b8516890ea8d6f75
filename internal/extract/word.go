package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"

	"github.com/junhopark/prdforge/internal/domain"
)

// WordExtractor reads docx documents: all body text lives in the single
// word/document.xml part.
type WordExtractor struct{}

// NewWordExtractor creates a Word extractor.
func NewWordExtractor() *WordExtractor {
	return &WordExtractor{}
}

func (e *WordExtractor) Kind() domain.DocumentKind {
	return domain.DocumentKindWord
}

func (e *WordExtractor) Extract(_ context.Context, data []byte, _ string) (*ParsedContent, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document body: %w", err)
		}
		text, err := runTextLines(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read document body: %w", err)
		}
		if text == "" {
			return nil, fmt.Errorf("document has no text content")
		}
		return &ParsedContent{Text: normalizeText(text)}, nil
	}
	return nil, fmt.Errorf("document has no body part")
}
