package text_snapshot

import (
	"regexp"
	"strings"
)

var lineEndingReplacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u2028", "\n",
	"\u2029", "\n",
	"\x00", "",
)

var trailingWhitespace = regexp.MustCompile(`(?m)[ \t]+$`)

// Normalize canonicalizes extracted text so that line-ending conversion,
// stray NUL bytes and editor whitespace churn do not change its hash.
// The result is empty or ends with exactly one line feed.
func Normalize(s string) string {
	s = lineEndingReplacer.Replace(s)
	s = trailingWhitespace.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return s + "\n"
}
