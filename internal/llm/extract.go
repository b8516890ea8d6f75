package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/junhopark/prdforge/internal/prompts"
)

// ExtractedRequirement is one requirement as returned by the model.
type ExtractedRequirement struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Kind               string   `json:"kind"`
	Priority           string   `json:"priority"`
	Confidence         float64  `json:"confidence"`
	ConfidenceReason   string   `json:"confidence_reason"`
	ConflictsWith      []string `json:"conflicts_with"`
	MissingInfo        []string `json:"missing_info"`
	Ambiguous          bool     `json:"ambiguous"`
	SourceExcerpt      string   `json:"source_excerpt"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

type extractionResponse struct {
	Requirements []ExtractedRequirement `json:"requirements"`
}

// ExtractRequirements extracts requirement candidates from document text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - text: normalized document text.
//
// Returns:
//   - []ExtractedRequirement: schema-validated candidates (may be empty).
//   - error: non-nil if the API call fails or the response violates the schema.
func (c *Client) ExtractRequirements(ctx context.Context, text string) ([]ExtractedRequirement, error) {
	req := &chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.ExtractionSystemPrompt},
			{Role: "user", Content: prompts.ExtractionUserPrompt + text},
		},
		Temperature:    0.2,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, err := c.complete(ctx, "extract", req)
	if err != nil {
		return nil, err
	}

	raw := []byte(stripCodeFence(content))
	if err := validateExtraction(raw); err != nil {
		return nil, err
	}

	var parsed extractionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	return parsed.Requirements, nil
}
