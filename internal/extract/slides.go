package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/junhopark/prdforge/internal/domain"
)

// SlidesExtractor renders pptx decks slide by slide. Each slide becomes a
// markdown section so the deck's order survives into the corpus.
type SlidesExtractor struct{}

// NewSlidesExtractor creates a slides extractor.
func NewSlidesExtractor() *SlidesExtractor {
	return &SlidesExtractor{}
}

func (e *SlidesExtractor) Kind() domain.DocumentKind {
	return domain.DocumentKindSlides
}

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (e *SlidesExtractor) Extract(_ context.Context, data []byte, _ string) (*ParsedContent, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open deck: %w", err)
	}

	type slidePart struct {
		index int
		file  *zip.File
	}
	var parts []slidePart
	for _, f := range zr.File {
		m := slidePartRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		index, _ := strconv.Atoi(m[1])
		parts = append(parts, slidePart{index: index, file: f})
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("deck has no slides")
	}
	// part names carry no zero padding, so slide10 sorts before slide2
	// lexically; order by the parsed index instead
	sort.Slice(parts, func(i, j int) bool { return parts[i].index < parts[j].index })

	var b strings.Builder
	var nonEmpty int
	for _, p := range parts {
		rc, err := p.file.Open()
		if err != nil {
			return nil, fmt.Errorf("open slide %d: %w", p.index, err)
		}
		text, err := runTextLines(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read slide %d: %w", p.index, err)
		}
		if text == "" {
			continue
		}
		nonEmpty++
		fmt.Fprintf(&b, "## Slide %d\n\n%s\n\n", p.index, text)
	}
	if nonEmpty == 0 {
		return nil, fmt.Errorf("deck has no text content")
	}

	return &ParsedContent{
		Text:     normalizeText(b.String()),
		Metadata: map[string]string{"slides": strconv.Itoa(len(parts))},
	}, nil
}
