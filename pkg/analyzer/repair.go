package analyzer

import (
	"regexp"
	"strings"
)

var (
	fenceOpenRe     = regexp.MustCompile("(?m)^```json\\s*")
	fenceCloseRe    = regexp.MustCompile("(?m)^```\\s*$")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// RepairJSON strips the decorations Gemini wraps around JSON output despite
// the strict-JSON instruction: markdown code fences and trailing commas.
func RepairJSON(text string) string {
	text = fenceOpenRe.ReplaceAllString(text, "")
	text = fenceCloseRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	return trailingCommaRe.ReplaceAllString(text, "$1")
}
