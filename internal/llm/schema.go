package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// extractionSchemaJSON constrains the shape of extraction responses before
// they are decoded into typed structs. Malformed model output fails here
// with a schema error instead of producing half-filled candidates.
const extractionSchemaJSON = `{
  "type": "object",
  "required": ["requirements"],
  "properties": {
    "requirements": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "description", "kind", "priority", "confidence"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "description": {"type": "string", "minLength": 1},
          "kind": {"enum": ["FUNCTIONAL", "NON_FUNCTIONAL", "CONSTRAINT"]},
          "priority": {"enum": ["HIGH", "MEDIUM", "LOW"]},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "confidence_reason": {"type": "string"},
          "conflicts_with": {"type": "array", "items": {"type": "string"}},
          "missing_info": {"type": "array", "items": {"type": "string"}},
          "ambiguous": {"type": "boolean"},
          "source_excerpt": {"type": "string"},
          "acceptance_criteria": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var extractionSchema = jsonschema.MustCompileString("extraction.json", extractionSchemaJSON)

// validateExtraction checks raw model output against the extraction schema.
func validateExtraction(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal extraction response: %w", err)
	}
	if err := extractionSchema.Validate(v); err != nil {
		return fmt.Errorf("extraction response does not match schema: %w", err)
	}
	return nil
}

// stripCodeFence removes a wrapping markdown code fence if the model added
// one despite the prompt telling it not to.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
