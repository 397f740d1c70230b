package util

import "strings"

// SafeTruncate returns at most the first maxLen bytes of s. It is used when
// logging values such as state parameters, where only a prefix may be shown.
// A negative maxLen yields "".
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// NormalizeURL removes trailing slashes so configured base URLs can be
// joined with paths.
//
//	NormalizeURL("https://app.example.com/") // "https://app.example.com"
func NormalizeURL(url string) string {
	return strings.TrimRight(url, "/")
}

// SplitList splits a space or comma separated list, dropping empty items.
func SplitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
}
