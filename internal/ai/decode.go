package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DecodeStage names the step of the decode cascade that produced an object.
type DecodeStage string

const (
	StageNone   DecodeStage = "none"
	StageDirect DecodeStage = "direct"
	StageFenced DecodeStage = "fenced"
	StageBraced DecodeStage = "braced"
)

var fenceMarker = regexp.MustCompile("```(?:json|JSON)?\\s*")

// Decode extracts a JSON object from model output. It tries the raw text as-is, then
// with markdown fences removed, then the first balanced {...} block. It is pure: the
// same input always gives the same result.
func Decode(raw string) (map[string]any, DecodeStage, bool) {
	if obj, ok := decodeDirect(raw); ok {
		return obj, StageDirect, true
	}
	if obj, ok := decodeFenced(raw); ok {
		return obj, StageFenced, true
	}
	if obj, ok := decodeBraced(raw); ok {
		return obj, StageBraced, true
	}
	return nil, StageNone, false
}

func decodeDirect(raw string) (map[string]any, bool) {
	return parseObject(strings.TrimSpace(raw))
}

func decodeFenced(raw string) (map[string]any, bool) {
	if !strings.Contains(raw, "```") {
		return nil, false
	}
	cleaned := fenceMarker.ReplaceAllString(raw, "")
	cleaned = strings.TrimRight(strings.TrimSpace(cleaned), "`")
	return parseObject(strings.TrimSpace(cleaned))
}

// decodeBraced first tries the widest span from the first '{' to the last '}', then
// every balanced block in order of appearance.
func decodeBraced(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, false
	}

	if obj, ok := parseObject(raw[start : end+1]); ok {
		return obj, true
	}

	for i := start; i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		closing := matchingBrace(raw, i)
		if closing == -1 {
			continue
		}
		if obj, ok := parseObject(raw[i : closing+1]); ok {
			return obj, true
		}
	}
	return nil, false
}

// matchingBrace returns the index of the brace closing the one at open, skipping braces
// inside JSON strings, or -1.
func matchingBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false

	for i := open; i < len(s); i++ {
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
				return i
			}
		}
	}
	return -1
}

func parseObject(s string) (map[string]any, bool) {
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		trimmed = strings.TrimSuffix(trimmed, "/10")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// CoerceStrings accepts a JSON list or a single string and drops empty entries.
func CoerceStrings(v any) []string {
	out := make([]string, 0)
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CoerceFloat converts a decoded JSON value into a number; NaN when impossible.
func CoerceFloat(v any) float64 { return coerceFloat(v) }

// CoerceString converts a decoded JSON value into trimmed text.
func CoerceString(v any) string { return coerceString(v) }
