package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/junhopark/prdforge/internal/prompts"
)

// DescribeImage transcribes an image into text for requirement extraction.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageData: raw image bytes.
//   - format: image format extension (png, jpg, gif, webp).
//
// Returns:
//   - string: transcription text.
//   - error: non-nil if the API request fails.
func (c *Client) DescribeImage(ctx context.Context, imageData []byte, format string) (string, error) {
	mimeType := mimeTypeFor(format)

	base64Image := base64.StdEncoding.EncodeToString(imageData)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64Image)

	req := &chatRequest{
		Model: c.visionModel,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.VisionSystemPrompt},
			{
				Role: "user",
				Content: []interface{}{
					textContent{Type: "text", Text: prompts.VisionUserPrompt},
					imageContent{
						Type: "image_url",
						ImageURL: imagePayload{
							URL:    dataURL,
							Detail: "high", // whiteboard text needs the full-resolution pass
						},
					},
				},
			},
		},
		MaxTokens:   1500,
		Temperature: 0,
	}

	return c.complete(ctx, "describe image", req)
}

func mimeTypeFor(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
