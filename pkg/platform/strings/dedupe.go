// Package strings holds small string-slice helpers used by config parsing.
package strings

import "strings"

// DedupeAndTrim trims whitespace from each element and drops empties and
// duplicates, keeping first-seen order. Used to normalize comma-separated
// lists from the environment, such as broker addresses.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
