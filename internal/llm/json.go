package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Providers are asked for JSON, but even with response_format set some
// models wrap the object in a markdown code fence or lead with prose.
// ExtractJSON recovers the object with a short strategy chain.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
)

// ErrNoJSON is returned when no JSON object can be recovered from the text.
var ErrNoJSON = errors.New("no JSON object in response")

// ExtractJSON unmarshals the first JSON object found in text into v.
//
// Strategy sequence:
//  1. Direct parse.
//  2. Strip a markdown code fence and retry.
//  3. Take the outermost {...} span, drop trailing commas, and retry.
func ExtractJSON(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), v); err == nil {
			return nil
		}
		trimmed = strings.TrimSpace(m[1])
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("%w: %s", ErrNoJSON, truncate(trimmed, 128))
	}

	candidate := trailingCommaRegex.ReplaceAllString(trimmed[start:end+1], "$1")
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("parse extracted JSON: %w", err)
	}
	return nil
}
