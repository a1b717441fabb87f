// Package hashtag extracts hashtag tokens from caption text.
//
// Extraction happens in two steps kept as separate pure functions:
//
//	raw := hashtag.Capture(caption) // "#foo #bar "
//	tags := hashtag.Split(raw)      // ["foo", "bar"]
//
// Capture only decides which characters belong to a hashtag run. Split owns the
// character class and turns the joined capture into a set.
package hashtag

import (
	"strings"
	"unicode"
)

// Capture scans caption and returns every hashtag run concatenated in order.
// A '#' opens a run and any whitespace closes it; the closing whitespace is
// kept as a single space. It returns "" when caption contains no '#'.
func Capture(caption string) string {
	var b strings.Builder
	capturing := false

	for _, r := range caption {
		if unicode.IsSpace(r) {
			if capturing {
				b.WriteByte(' ')
				capturing = false
			}
			continue
		}
		if r == '#' {
			capturing = true
		}
		if capturing {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Split turns a captured run into distinct tags in first-appearance order.
// Everything other than letters, digits and '#' is dropped before splitting on '#'.
func Split(raw string) []string {
	var b strings.Builder
	for _, r := range raw {
		if r == '#' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimLeft(b.String(), "#")
	if cleaned == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var tags []string
	for _, part := range strings.Split(cleaned, "#") {
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		tags = append(tags, part)
	}

	return tags
}

// Extract composes Capture and Split
func Extract(caption string) []string {
	return Split(Capture(caption))
}
