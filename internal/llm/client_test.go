package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/junhopark/prdforge/internal/domain"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func newTestClient(baseURL string) *Client {
	return NewClient(&Config{
		Model:      "test-model",
		APIKey:     "test-key",
		BaseURL:    baseURL,
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
		Timeout:    5 * time.Second,
	})
}

func TestExtractRequirements(t *testing.T) {
	payload := `{
		"requirements": [
			{
				"title": "Export PRD as markdown",
				"description": "Users can download the generated PRD as a markdown file.",
				"kind": "FUNCTIONAL",
				"priority": "HIGH",
				"confidence": 0.92,
				"confidence_reason": "stated explicitly in the meeting notes",
				"conflicts_with": [],
				"missing_info": [],
				"ambiguous": false,
				"source_excerpt": "we need to export the PRD to markdown",
				"acceptance_criteria": ["download button produces a .md file"]
			}
		]
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply(payload)))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	reqs, err := client.ExtractRequirements(context.Background(), "meeting notes")
	if err != nil {
		t.Fatalf("ExtractRequirements() error = %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(reqs))
	}
	if reqs[0].Title != "Export PRD as markdown" {
		t.Errorf("unexpected title: %s", reqs[0].Title)
	}
	if reqs[0].Confidence != 0.92 {
		t.Errorf("unexpected confidence: %f", reqs[0].Confidence)
	}
}

func TestExtractRequirementsSchemaViolation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing required field",
			body: `{"requirements": [{"title": "x", "kind": "FUNCTIONAL", "priority": "HIGH", "confidence": 0.5}]}`,
		},
		{
			name: "confidence out of range",
			body: `{"requirements": [{"title": "x", "description": "y", "kind": "FUNCTIONAL", "priority": "HIGH", "confidence": 1.5}]}`,
		},
		{
			name: "unknown kind",
			body: `{"requirements": [{"title": "x", "description": "y", "kind": "WISH", "priority": "HIGH", "confidence": 0.5}]}`,
		},
		{
			name: "not json",
			body: `here are the requirements you asked for`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(chatReply(tt.body)))
			}))
			defer srv.Close()

			client := newTestClient(srv.URL)
			if _, err := client.ExtractRequirements(context.Background(), "notes"); err == nil {
				t.Error("expected error for invalid model output, got nil")
			}
		})
	}
}

func TestExtractRequirementsStripsCodeFence(t *testing.T) {
	fenced := "```json\n{\"requirements\": [{\"title\": \"a\", \"description\": \"b\", \"kind\": \"CONSTRAINT\", \"priority\": \"LOW\", \"confidence\": 0.4}]}\n```"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply(fenced)))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	reqs, err := client.ExtractRequirements(context.Background(), "notes")
	if err != nil {
		t.Fatalf("ExtractRequirements() error = %v", err)
	}
	if len(reqs) != 1 || reqs[0].Kind != "CONSTRAINT" {
		t.Errorf("unexpected result: %+v", reqs)
	}
}

func TestCompleteRetriesOnServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply("transcribed text")))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	out, err := client.DescribeImage(context.Background(), []byte{0x89, 0x50}, "png")
	if err != nil {
		t.Fatalf("DescribeImage() error = %v", err)
	}
	if out != "transcribed text" {
		t.Errorf("unexpected output: %s", out)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestCompleteDoesNotRetryClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "invalid request", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ExtractRequirements(context.Background(), "notes")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if svcErr.Status != http.StatusBadRequest {
		t.Errorf("unexpected status: %d", svcErr.Status)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestGenerateOverview(t *testing.T) {
	overview := `{
		"background": "Sales teams capture requirements across scattered channels.",
		"goals": ["cut PRD drafting time"],
		"scope": "document intake through PRD export",
		"target_users": ["product managers"]
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply(overview)))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	got, err := client.GenerateOverview(context.Background(), []domain.RequirementCandidate{
		{Title: "Export PRD", Kind: domain.RequirementFunctional},
	})
	if err != nil {
		t.Fatalf("GenerateOverview() error = %v", err)
	}
	if got.Background == "" || len(got.Goals) != 1 {
		t.Errorf("unexpected overview: %+v", got)
	}
}

func TestGenerateDerivativeUnknownKind(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	if _, err := client.GenerateDerivative(context.Background(), domain.GeneratedPRD, "{}"); err == nil {
		t.Error("expected error for non-derivative kind, got nil")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}\n", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.input); got != tt.want {
				t.Errorf("stripCodeFence() = %q, want %q", got, tt.want)
			}
		})
	}
}
