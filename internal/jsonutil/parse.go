// Package jsonutil extracts and parses JSON payloads out of LLM response text,
// which routinely arrives wrapped in markdown code fences or surrounded by
// conversational prose.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a ```json ... ``` or ``` ... ``` wrapper from text.
// Text without a leading fence is returned unchanged (trimmed).
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	end := len(lines) - 1
	for i := end; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}

// ExtractJSON returns the JSON object or array embedded in text. It spans from
// the first opening brace or bracket to the last matching closer, so prose
// before and after the payload is tolerated.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	if objStart == -1 && arrStart == -1 {
		return "", fmt.Errorf("no JSON content found")
	}

	start, closer := objStart, "}"
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start, closer = arrStart, "]"
	}

	text = text[start:]
	end := strings.LastIndex(text, closer)
	if end == -1 {
		return "", fmt.Errorf("no closing %s found", closer)
	}
	return text[:end+1], nil
}

// Parse strips fences, extracts the embedded JSON, and unmarshals it into T.
// Errors carry a truncated preview of the offending text for log diagnosis.
func Parse[T any](raw string) (T, error) {
	var zero T

	payload, err := ExtractJSON(StripFences(raw))
	if err != nil {
		return zero, fmt.Errorf("%w (response length: %d)", err, len(raw))
	}

	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		preview := payload
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview)
	}
	return result, nil
}
