package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// SchemaValidationError reports a structured-completion response that does
// not conform to the requested schema.
type SchemaValidationError struct {
	Reason string
	Err    error
}

func (e *SchemaValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema validation: %s: %v", e.Reason, e.Err)
	}
	return "schema validation: " + e.Reason
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// decodePayload parses a structured-completion response into target. The
// response is untrusted: code fences are stripped first and the JSON is
// decoded through a loosely-typed map so a single unexpected field type
// surfaces as a validation error instead of a partial struct.
func decodePayload(raw string, target any) error {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return &SchemaValidationError{Reason: "response is not a JSON object", Err: err}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return &SchemaValidationError{Reason: "response does not fit schema", Err: err}
	}

	return nil
}

// extractJSON strips markdown code fences some models wrap around JSON
// output even in JSON mode.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
