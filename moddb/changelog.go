package moddb

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()

	blockBreak = regexp.MustCompile(`(?i)<\s*(br\s*/?|/p|/li|/h[1-6]|/div)\s*>`)
	listItem   = regexp.MustCompile(`(?i)<\s*li[^>]*>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
	trailingWS = regexp.MustCompile(`[ \t]+\n`)
)

// ChangelogText turns the HTML changelog of a release into plain text,
// keeping line and list structure.
func ChangelogText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	s := blockBreak.ReplaceAllString(raw, "$0\n")
	s = listItem.ReplaceAllString(s, "$0- ")
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = trailingWS.ReplaceAllString(s, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
