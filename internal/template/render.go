// Package template expands {{key}} placeholders in email subjects and bodies
// and derives the HTML alternative sent to providers.
package template

import (
	"fmt"
	"sort"
	"strings"
)

// Render replaces every literal occurrence of {{key}} in s with the textual
// form of substitutions[key]. Matching is exact and case-sensitive.
// Placeholders without a key are left verbatim, and substituted values are
// never expanded again.
func Render(s string, substitutions map[string]any) string {
	if s == "" || len(substitutions) == 0 {
		return s
	}

	keys := make([]string, 0, len(substitutions))
	for k := range substitutions {
		keys = append(keys, k)
	}
	// Longest first so a token is never shadowed by another that is its prefix.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", Text(substitutions[k]))
	}

	// strings.Replacer scans the input once, so replacement output is not
	// rescanned for further tokens.
	return strings.NewReplacer(pairs...).Replace(s)
}

// Text converts a substitution value to the string inserted into the body.
// Nil becomes the empty string; whole-number floats (as decoded from JSON)
// print without a fractional part.
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprint(val)
	default:
		return fmt.Sprint(val)
	}
}

// HTML converts line breaks in a plain-text body to <br> markup. The body
// is otherwise passed through, so callers may embed their own markup.
func HTML(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.ReplaceAll(body, "\n", "<br>")
}
