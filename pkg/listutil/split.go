package listutil

import (
	"regexp"
	"strings"
)

var separators = regexp.MustCompile(`[,\n\r]+`)

// Split breaks a comma or newline separated list into trimmed, non-empty entries.
func Split(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range separators.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
