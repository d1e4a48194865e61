package enhance

import "strings"

// StripCodeFences removes a markdown code fence wrapped around the whole
// text. The opening fence line (with any info string) is dropped, and the
// closing fence is dropped when it is the last line.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
