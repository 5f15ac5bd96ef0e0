// Package oraclejson turns free-form oracle replies into typed responses.
// Malformed replies never fail: they decode to the zero response.
package oraclejson

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\s*(.*?)```")

// Extract strips code fences and trims the reply to its outermost {...} span.
// It returns "" when no object is present.
func Extract(content string) string {
	content = strings.TrimSpace(content)
	if m := fenceRe.FindStringSubmatch(content); m != nil && strings.Contains(m[1], "{") {
		content = m[1]
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}

// Decode fills v from the reply and reports whether it succeeded. On
// failure v is left untouched.
func Decode(content string, v any) bool {
	raw := Extract(content)
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}
