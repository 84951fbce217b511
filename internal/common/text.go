package common

import (
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most n bytes, backing up to a rune boundary so the
// result is always valid UTF-8. Error messages stored in status rows are
// capped with this.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// SafeText trims whitespace and maps absent values to "".
func SafeText(s string) string {
	return strings.TrimSpace(s)
}
