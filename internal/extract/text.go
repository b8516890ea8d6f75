package extract

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/junhopark/prdforge/internal/domain"
)

// TextExtractor handles plain text and markdown documents.
type TextExtractor struct{}

// NewTextExtractor creates a text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Kind() domain.DocumentKind {
	return domain.DocumentKindText
}

func (e *TextExtractor) Extract(_ context.Context, data []byte, _ string) (*ParsedContent, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("text document is not valid UTF-8")
	}
	text := normalizeText(string(data))
	if text == "" {
		return nil, fmt.Errorf("text document is empty")
	}
	return &ParsedContent{
		Text: text,
		Metadata: map[string]string{
			"chars": strconv.Itoa(len(text)),
		},
	}, nil
}
