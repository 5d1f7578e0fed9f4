package llm

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrMalformedOutput is returned when model text does not decode into the
// expected JSON shape.
var ErrMalformedOutput = errors.New("malformed model output")

// DecodeJSON decodes an LLM response into v, handling markdown code blocks
// and prose around the object.
func DecodeJSON(text string, v any) error {
	obj := extractObject(text)
	if obj == "" {
		return fmt.Errorf("%w: no JSON object in response", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

func extractObject(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	// Strip markdown code fences
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		// An unclosed fence (e.g. a cut-off reply) keeps everything after
		// the opening line.
		endIdx := len(lines)
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

// Truncate limits text to maxChars characters. If a '}' occurs within the
// budget the text is cut right after the last one, dropping any trailing
// partial object.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	cut := string(runes[:maxChars])
	if i := strings.LastIndex(cut, "}"); i != -1 {
		return cut[:i+1]
	}
	return cut
}
