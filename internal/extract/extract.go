// Package extract converts heterogeneous input documents into normalized
// plain text ready for requirement extraction. One extractor per document
// kind, dispatched through a registry.
package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/junhopark/prdforge/internal/domain"
)

// ErrUnsupportedFormat is returned when no extractor handles a document kind.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ParsedContent is the normalized output of an extractor.
type ParsedContent struct {
	// Text is the normalized plain-text body used for requirement extraction.
	Text string
	// Metadata carries extractor-specific facts (sheet names, participants,
	// image dimensions) that end up in the stage result for traceability.
	Metadata map[string]string
}

// Extractor parses one document kind into normalized text.
type Extractor interface {
	Kind() domain.DocumentKind
	Extract(ctx context.Context, data []byte, filename string) (*ParsedContent, error)
}

// Registry dispatches documents to the extractor for their kind.
type Registry struct {
	extractors map[domain.DocumentKind]Extractor
}

// NewRegistry creates a registry from the given extractors. A later extractor
// for the same kind replaces an earlier one.
func NewRegistry(extractors ...Extractor) *Registry {
	reg := &Registry{extractors: make(map[domain.DocumentKind]Extractor, len(extractors))}
	for _, e := range extractors {
		reg.extractors[e.Kind()] = e
	}
	return reg
}

// Supports reports whether an extractor is registered for kind.
func (r *Registry) Supports(kind domain.DocumentKind) bool {
	_, ok := r.extractors[kind]
	return ok
}

// Extract parses document bytes with the extractor registered for kind.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - kind: document kind detected at upload time.
//   - data: raw document bytes from storage.
//   - filename: original upload filename.
//
// Returns:
//   - *ParsedContent: normalized text plus extractor metadata.
//   - error: ErrUnsupportedFormat if no extractor handles kind.
func (r *Registry) Extract(ctx context.Context, kind domain.DocumentKind, data []byte, filename string) (*ParsedContent, error) {
	extractor, ok := r.extractors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
	}
	return extractor.Extract(ctx, data, filename)
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// normalizeText unifies line endings, strips trailing whitespace per line,
// and collapses runs of blank lines.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")

	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
