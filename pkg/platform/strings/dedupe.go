// Package strings holds small string-slice helpers for configuration values.
package strings

import (
	"strings"
)

// SplitDedupeTrim flattens comma-separated entries, trims each element and
// drops empties and repeats. Order of first appearance is kept. Environment
// overrides arrive as one "a,b" element, file values as a real list; both end
// up the same.
//
//	SplitDedupeTrim([]string{"http://a, http://b", "http://a", " "})
//	// []string{"http://a", "http://b"}
func SplitDedupeTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			result = append(result, part)
		}
	}
	return result
}
