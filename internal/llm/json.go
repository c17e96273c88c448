package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned by DecodeJSON for blank model output.
var ErrEmptyResponse = errors.New("empty model response")

// DecodeJSON decodes model output into out. Markdown code fences around the
// JSON object, and any prose before the first '{' or after the last '}', are
// ignored.
func DecodeJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyResponse
	}

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines)
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object in model response: %q", truncate(text, 80))
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), out); err != nil {
		return fmt.Errorf("parsing model response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
