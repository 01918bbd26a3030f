package jsonx

import (
	"regexp"
	"strings"
)

var (
	bareKeyPattern   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_\-]*)(\s*:)`)
	bareValuePattern = regexp.MustCompile(`(:\s*)([A-Za-z_][^",{}\[\]]*?)(\s*[,}])`)
)

// Repair applies best-effort fixes to a candidate that failed to parse:
// quoting bare object keys, quoting bare scalar values, and appending
// missing closing braces for truncated output. Each heuristic is followed
// by a parse attempt; the first fix that yields valid JSON wins.
func Repair(candidate string) (string, bool) {
	if strings.TrimSpace(candidate) == "" {
		return "", false
	}

	// Truncation is the most common damage and needs no content rewriting,
	// so the untouched candidate gets a brace pass first. The quoting
	// heuristics below can mangle ": word," sequences inside legitimate
	// string values, and must only run when balancing alone is not enough.
	if fixed, ok := balanceBraces(candidate); ok {
		return fixed, true
	}

	fixed := bareKeyPattern.ReplaceAllString(candidate, `$1"$2"$3`)
	if _, ok := parseObject(fixed); ok {
		return fixed, true
	}

	fixed = bareValuePattern.ReplaceAllStringFunc(fixed, quoteBareValue)
	if _, ok := parseObject(fixed); ok {
		return fixed, true
	}

	return balanceBraces(fixed)
}

// balanceBraces appends the close-brace deficit, reporting whether the
// result parses.
func balanceBraces(s string) (string, bool) {
	deficit := strings.Count(s, "{") - strings.Count(s, "}")
	if deficit <= 0 {
		return "", false
	}
	s += strings.Repeat("}", deficit)
	if _, ok := parseObject(s); ok {
		return s, true
	}
	return "", false
}

// quoteBareValue wraps an unquoted scalar in double quotes, leaving JSON
// literals alone.
func quoteBareValue(match string) string {
	parts := bareValuePattern.FindStringSubmatch(match)
	if parts == nil {
		return match
	}
	val := strings.TrimSpace(parts[2])
	switch val {
	case "true", "false", "null":
		return match
	}
	return parts[1] + `"` + val + `"` + parts[3]
}
