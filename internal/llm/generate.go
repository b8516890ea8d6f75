package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/junhopark/prdforge/internal/domain"
	"github.com/junhopark/prdforge/internal/prompts"
)

// GenerateOverview synthesizes the PRD overview from approved requirements.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - requirements: approved candidates, already reviewed.
//
// Returns:
//   - *domain.Overview: populated overview section.
//   - error: non-nil if the API call fails or the response cannot be decoded.
func (c *Client) GenerateOverview(ctx context.Context, requirements []domain.RequirementCandidate) (*domain.Overview, error) {
	payload, err := json.Marshal(requirements)
	if err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}

	req := &chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.OverviewSystemPrompt},
			{Role: "user", Content: "Approved requirements:\n" + string(payload)},
		},
		Temperature:    0.3,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, err := c.complete(ctx, "generate overview", req)
	if err != nil {
		return nil, err
	}

	var overview domain.Overview
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &overview); err != nil {
		return nil, fmt.Errorf("decode overview response: %w", err)
	}
	return &overview, nil
}

type milestoneResponse struct {
	Milestones []domain.Milestone `json:"milestones"`
}

// GenerateMilestones proposes ordered delivery milestones from approved
// requirements.
func (c *Client) GenerateMilestones(ctx context.Context, requirements []domain.RequirementCandidate) ([]domain.Milestone, error) {
	payload, err := json.Marshal(requirements)
	if err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}

	req := &chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.MilestoneSystemPrompt},
			{Role: "user", Content: "Approved requirements:\n" + string(payload)},
		},
		Temperature:    0.3,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, err := c.complete(ctx, "generate milestones", req)
	if err != nil {
		return nil, err
	}

	var parsed milestoneResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &parsed); err != nil {
		return nil, fmt.Errorf("decode milestone response: %w", err)
	}
	return parsed.Milestones, nil
}

type derivativeResponse struct {
	Sections []domain.GeneratedSection `json:"sections"`
}

// GenerateDerivative produces a derivative document (TRD, WBS, proposal)
// from an encoded PRD body.
func (c *Client) GenerateDerivative(ctx context.Context, kind domain.GeneratedKind, prdJSON string) ([]domain.GeneratedSection, error) {
	var system string
	switch kind {
	case domain.GeneratedTRD:
		system = prompts.TRDSystemPrompt
	case domain.GeneratedWBS:
		system = prompts.WBSSystemPrompt
	case domain.GeneratedProposal:
		system = prompts.ProposalSystemPrompt
	default:
		return nil, fmt.Errorf("unsupported derivative kind: %s", kind)
	}

	req := &chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompts.DerivativeUserPrompt + prdJSON},
		},
		Temperature:    0.3,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, err := c.complete(ctx, fmt.Sprintf("generate %s", kind), req)
	if err != nil {
		return nil, err
	}

	var parsed derivativeResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &parsed); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", kind, err)
	}
	return parsed.Sections, nil
}
