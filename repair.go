package main

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Free-tier models wrap answers in reasoning tags and markdown fences, and
// truncated output is routine when max_tokens runs out mid-object. The
// pipeline never propagates a parse failure: extract, then repair, then
// fall back.

func stripWrappers(raw string) string {
	// Everything before the close of a reasoning block is chain-of-thought,
	// not the answer.
	if idx := strings.LastIndex(raw, "</think>"); idx >= 0 {
		raw = raw[idx+len("</think>"):]
	}
	raw = strings.ReplaceAll(raw, "<think>", "")
	raw = strings.ReplaceAll(raw, "</think>", "")
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

// balancedSpan returns raw sliced from the first open delimiter to its
// matching close, counting depth while skipping quoted strings and escape
// sequences. Returns ok=false when no opening delimiter exists; the span is
// returned as-is (possibly unterminated) when the text ends before the
// match, so repairTruncated can finish the job.
func balancedSpan(raw string, open, close byte) (string, bool) {
	start := strings.IndexByte(raw, open)
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == open:
			depth++
		case !inString && ch == close:
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return raw[start:], true
}

// ExtractJSON pulls the first balanced JSON object out of raw model text.
// Returns "{}" when no object is present at all.
func ExtractJSON(raw string) string {
	span, ok := balancedSpan(stripWrappers(raw), '{', '}')
	if !ok {
		return "{}"
	}
	return span
}

// ExtractJSONArray is the array-shaped variant used for batch responses.
// Returns "[]" when no array is present.
func ExtractJSONArray(raw string) string {
	span, ok := balancedSpan(stripWrappers(raw), '[', ']')
	if !ok {
		return "[]"
	}
	return span
}

// repairFrame tracks one unclosed { or [. For objects, sawColon says
// whether the current member already has its ':' — it decides whether a
// trailing string was a key or a value.
type repairFrame struct {
	open     byte
	sawColon bool
}

// RepairTruncated closes an unterminated string, completes a dangling
// object key, drops a trailing comma or escape, and unwinds the open
// bracket/brace stack so a mid-output truncation still parses.
func RepairTruncated(s string) string {
	var stack []repairFrame
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && (ch == '{' || ch == '['):
			stack = append(stack, repairFrame{open: ch})
		case !inString && (ch == '}' || ch == ']'):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case !inString && ch == ':':
			if len(stack) > 0 && stack[len(stack)-1].open == '{' {
				stack[len(stack)-1].sawColon = true
			}
		case !inString && ch == ',':
			if len(stack) > 0 && stack[len(stack)-1].open == '{' {
				stack[len(stack)-1].sawColon = false
			}
		}
	}

	if escaped {
		s = s[:len(s)-1]
	}
	if inString {
		s += `"`
	}
	s = strings.TrimRight(s, " \t\n\r")

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		switch {
		case strings.HasSuffix(s, ","):
			s = strings.TrimSuffix(s, ",")
		case strings.HasSuffix(s, ":"):
			s += " null"
		case top.open == '{' && !top.sawColon && strings.HasSuffix(s, `"`):
			// The cut landed in or right after a key.
			s += ": null"
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].open == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}
	return s
}

// SafeParse decodes raw model output into out, repairing truncation if the
// first parse fails. It reports whether out was populated; callers keep
// their fallback value on false. It never panics and never returns an
// error, by contract.
func SafeParse(raw string, out any) bool {
	candidate := ExtractJSON(raw)
	if gjson.Valid(candidate) {
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			return true
		}
	}
	repaired := RepairTruncated(candidate)
	if gjson.Valid(repaired) {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return true
		}
	}
	return false
}

// SafeParseArray is SafeParse for array-shaped responses.
func SafeParseArray(raw string, out any) bool {
	candidate := ExtractJSONArray(raw)
	if gjson.Valid(candidate) {
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			return true
		}
	}
	repaired := RepairTruncated(candidate)
	if gjson.Valid(repaired) {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return true
		}
	}
	return false
}
