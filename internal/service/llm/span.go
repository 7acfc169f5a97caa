package llm

import (
	"fmt"
	"strings"
)

// ExtractJSONSpan returns the first balanced {...} or [...] substring of a
// raw model response. Markdown code fences and any prose around the JSON
// are ignored; strings inside the JSON are walked so braces in values do
// not terminate the span early.
func ExtractJSONSpan(raw string) (string, error) {
	cleaned := stripFences(raw)

	start := strings.IndexAny(cleaned, "{[")
	if start < 0 {
		return "", fmt.Errorf("no opening brace or bracket in response")
	}

	open := cleaned[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		c := cleaned[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// Brackets inside string values don't count.
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return cleaned[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced JSON starting at offset %d", start)
}

// stripFences removes markdown code fences so responses wrapped in
// ```json ... ``` parse the same as bare JSON.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.Contains(trimmed, "```") {
		return trimmed
	}
	var kept []string
	for _, line := range strings.Split(trimmed, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
