// Package jsonx recovers JSON objects from unreliable model output. The
// oracle frequently wraps its answer in prose or code fences, truncates it,
// or drifts from the requested schema; this package extracts a candidate,
// repairs common syntax damage, and normalizes known shape deviations.
package jsonx

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

var (
	codeBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	objectPattern    = regexp.MustCompile(`(?s)\{.*?\}`)
)

// Extract locates the first substring of text that parses as a JSON object,
// trying progressively looser strategies: the whole text, the largest fenced
// code block (or a brace span inside it), the widest first-{ to last-} span,
// and finally the largest non-greedy brace match. A candidate that fails to
// parse as-is is handed to Repair before the next strategy is tried.
func Extract(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	if obj, ok := parseOrRepair(text); ok {
		return obj, true
	}

	if strings.Contains(text, "```") {
		if block := largestMatch(codeBlockPattern, text); block != "" {
			if obj, ok := parseOrRepair(block); ok {
				return obj, true
			}
			if span, ok := braceSpan(block); ok {
				if obj, ok := parseOrRepair(span); ok {
					return obj, true
				}
			}
		}
	}

	if span, ok := braceSpan(text); ok {
		if obj, ok := parseOrRepair(span); ok {
			return obj, true
		}
	}

	// Last resort: any brace-delimited fragment, largest first.
	candidates := objectPattern.FindAllString(text, -1)
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	for _, c := range candidates {
		if obj, ok := parseOrRepair(c); ok {
			return obj, true
		}
	}

	return nil, false
}

// braceSpan returns the substring from the first { to the last }.
func braceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start >= end {
		return "", false
	}
	return text[start : end+1], true
}

func largestMatch(re *regexp.Regexp, text string) string {
	var best string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) > 1 && len(m[1]) > len(best) {
			best = strings.TrimSpace(m[1])
		}
	}
	return best
}

func parseOrRepair(candidate string) (map[string]any, bool) {
	if obj, ok := parseObject(candidate); ok {
		return obj, true
	}
	fixed, ok := Repair(candidate)
	if !ok {
		return nil, false
	}
	return parseObject(fixed)
}

func parseObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, obj != nil
}
