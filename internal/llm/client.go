package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ServiceError reports a failed call to the model API after retries were
// exhausted. Status is zero for transport-level failures.
type ServiceError struct {
	Operation string
	Status    int
	Message   string
}

func (e *ServiceError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("llm %s failed: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("llm %s failed: HTTP %d: %s", e.Operation, e.Status, e.Message)
}

// Config holds configuration for the model client.
type Config struct {
	Model       string
	VisionModel string
	APIKey      string
	BaseURL     string
	MaxRetries  int
	RetryBase   time.Duration
	Timeout     time.Duration
}

// Client wraps an OpenAI-compatible chat completions endpoint.
type Client struct {
	client      *resty.Client
	model       string
	visionModel string
	endpoint    string
}

// NewClient creates a model client.
// Parameters:
//   - cfg: model, credentials, endpoint, and retry policy.
//
// Returns:
//   - *Client: initialized client with retry on 429 and 5xx responses.
func NewClient(cfg *Config) *Client {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	client.SetTimeout(timeout)

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	retryBase := cfg.RetryBase
	if retryBase == 0 {
		retryBase = 2 * time.Second
	}
	client.SetRetryCount(retries)
	client.SetRetryWaitTime(retryBase)
	client.SetRetryMaxWaitTime(retryBase * 4)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() == 429 || r.StatusCode() >= 500
	})

	// Default to OpenAI compatible endpoint if not specified
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	endpoint := baseURL + "/chat/completions"

	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = cfg.Model
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		visionModel: visionModel,
		endpoint:    endpoint,
	}
}

// Model returns the chat model identifier in use.
func (c *Client) Model() string {
	return c.model
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string, or []interface{} for user with images
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageContent struct {
	Type     string      `json:"type"`
	ImageURL imagePayload `json:"image_url"`
}

type imagePayload struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// complete sends a chat request and returns the first choice's content.
func (c *Client) complete(ctx context.Context, operation string, req *chatRequest) (string, error) {
	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)

	if err != nil {
		return "", &ServiceError{Operation: operation, Message: err.Error()}
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return "", &ServiceError{Operation: operation, Status: httpResp.StatusCode(), Message: msg}
	}

	if resp.Error != nil {
		return "", &ServiceError{Operation: operation, Status: httpResp.StatusCode(), Message: resp.Error.Message}
	}

	if len(resp.Choices) == 0 {
		return "", &ServiceError{Operation: operation, Status: httpResp.StatusCode(), Message: "no choices in response"}
	}

	return resp.Choices[0].Message.Content, nil
}
