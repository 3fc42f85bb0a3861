package safety

import "strings"

// IsExcluded matches handle against a user exclusion list. An entry matches
// when it equals the handle or is contained in it.
func IsExcluded(handle string, exclusions []string) bool {
	if handle == "" {
		return false
	}
	for _, e := range exclusions {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if handle == e || strings.Contains(handle, e) {
			return true
		}
	}
	return false
}
