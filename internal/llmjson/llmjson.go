// Package llmjson parses JSON objects out of free-form model output.
package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Extract returns the first balanced top-level {...} object in text.
// Markdown code fences are stripped first. Braces inside string literals are ignored.
func Extract(text string) (string, bool) {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if obj, ok := firstObject(m[1]); ok {
			return obj, true
		}
	}
	return firstObject(text)
}

// ParseOrDefault extracts and decodes a T from text.
// On any failure it returns def and false.
func ParseOrDefault[T any](text string, def T) (T, bool) {
	raw, ok := Extract(text)
	if !ok {
		return def, false
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return def, false
	}
	return v, true
}

func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
