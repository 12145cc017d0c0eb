package helpers

import (
	"errors"
	"regexp"
	"strings"
)

// Portal text arrives with tags stripped but without the whitespace the
// markup implied, so tokens run together ("PMThursday", "9email@...").
var (
	lowerUpperRe   = regexp.MustCompile(`([a-z])([A-Z])`)
	letterDigitRe  = regexp.MustCompile(`([A-Za-z])(\d)`)
	digitLetterRe  = regexp.MustCompile(`(\d)([A-Za-z])`)
	meridiemWordRe = regexp.MustCompile(`\b(AM|PM)([A-Z][a-z])`)
	digitEmailRe   = regexp.MustCompile(`([0-9])([a-z]+@)`)
	letterParenRe  = regexp.MustCompile(`([a-z])(\(\d)`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// CleanText normalizes raw text extracted from the portal into a
// human-readable single-line string.
func CleanText(text string) string {
	if text == "" {
		return text
	}

	text = strings.TrimSpace(text)
	text = lowerUpperRe.ReplaceAllString(text, "$1 $2")
	text = letterDigitRe.ReplaceAllString(text, "$1 $2")
	text = digitLetterRe.ReplaceAllString(text, "$1 $2")
	text = meridiemWordRe.ReplaceAllString(text, "$1 $2")
	text = digitEmailRe.ReplaceAllString(text, "$1 $2")
	text = letterParenRe.ReplaceAllString(text, "$1 $2")
	return whitespaceRe.ReplaceAllString(text, " ")
}

// GetSplitPart splits target by separate and returns the part at index
func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// FirstSplitPart splits target on the first separator found among seps
// and returns the leading part. When no separator matches, the whole
// string is returned.
func FirstSplitPart(target string, seps ...string) string {
	for _, sep := range seps {
		if strings.Contains(target, sep) {
			return strings.Split(target, sep)[0]
		}
	}
	return target
}

// Truncate limits s to at most n characters.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
