package idtoken

import "strings"

var (
	urlSafeReplacer  = strings.NewReplacer("+", "-", "/", "_", "=", "")
	standardReplacer = strings.NewReplacer("-", "+", "_", "/")
)

// toURLSafe maps standard Base64 text onto the URL-safe alphabet and drops padding.
func toURLSafe(s string) string {
	return urlSafeReplacer.Replace(s)
}

// fromURLSafe reverses toURLSafe and restores padding to a multiple of four.
func fromURLSafe(s string) string {
	s = standardReplacer.Replace(s)
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return s
}
