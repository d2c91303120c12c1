// Package textutil holds small text helpers shared by the pipeline and
// personalization services.
package textutil

import "unicode/utf8"

// Truncate cuts s to at most max runes. Cutting never splits a
// multi-byte rune, so the result is always valid UTF-8.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
