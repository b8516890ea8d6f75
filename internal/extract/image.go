package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"

	// register decoders for DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/junhopark/prdforge/internal/domain"
)

// ImageDescriber turns image bytes into a text transcription. The vision
// model client satisfies this.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, imageData []byte, format string) (string, error)
}

// ImageExtractor handles whiteboard photos and screenshots. Dimension checks
// run locally; transcription is delegated to the vision model.
type ImageExtractor struct {
	describer ImageDescriber
	minWidth  int
	minHeight int
}

// NewImageExtractor creates an image extractor.
// Parameters:
//   - describer: vision model client used for transcription.
func NewImageExtractor(describer ImageDescriber) *ImageExtractor {
	return &ImageExtractor{
		describer: describer,
		minWidth:  64,
		minHeight: 64,
	}
}

func (e *ImageExtractor) Kind() domain.DocumentKind {
	return domain.DocumentKindImage
}

func (e *ImageExtractor) Extract(ctx context.Context, data []byte, filename string) (*ParsedContent, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if config.Width < e.minWidth || config.Height < e.minHeight {
		return nil, fmt.Errorf("image %dx%d below minimum %dx%d, too small to transcribe",
			config.Width, config.Height, e.minWidth, e.minHeight)
	}

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	}

	text, err := e.describer.DescribeImage(ctx, data, format)
	if err != nil {
		return nil, fmt.Errorf("transcribe image: %w", err)
	}
	text = normalizeText(text)
	if text == "" {
		return nil, fmt.Errorf("image transcription is empty")
	}

	return &ParsedContent{
		Text: text,
		Metadata: map[string]string{
			"width":  strconv.Itoa(config.Width),
			"height": strconv.Itoa(config.Height),
			"format": format,
		},
	}, nil
}
