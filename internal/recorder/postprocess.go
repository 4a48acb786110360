package recorder

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// RemoveFillerWords strips every configured filler word as a
// whole-word, case-insensitive match and cleans up orphaned
// punctuation left behind, grounded on original_source's
// TextProcessor.remove_filler_words.
func RemoveFillerWords(text string, fillerWords []string) string {
	if text == "" || len(fillerWords) == 0 {
		return text
	}

	escaped := make([]string, len(fillerWords))
	for i, w := range fillerWords {
		escaped[i] = regexp.QuoteMeta(w)
	}
	pattern := regexp.MustCompile(`(?i)\b(?:` + strings.Join(escaped, "|") + `)\b`)

	result := pattern.ReplaceAllString(text, "")

	result = regexp.MustCompile(`,\s*,`).ReplaceAllString(result, ",")
	result = regexp.MustCompile(`^\s*,\s*`).ReplaceAllString(result, "")
	result = regexp.MustCompile(`,\s*([.!?])`).ReplaceAllString(result, "$1")
	result = regexp.MustCompile(`\s*,\s*$`).ReplaceAllString(result, "")
	result = whitespaceRun.ReplaceAllString(result, " ")

	return strings.TrimSpace(result)
}

// oneWordRepeat matches a single word repeating 8 or more times
// consecutively at the end of the string (7 repeats of the captured
// group following its first occurrence).
var oneWordRepeat = regexp.MustCompile(`(?i)\b(\w{1,30})\b(?:\s+\1\b){7,}\s*$`)

// twoWordRepeat matches a two-word phrase repeating 6 or more times
// consecutively at the end of the string.
var twoWordRepeat = regexp.MustCompile(`(?i)\b(\w{1,30}\s+\w{1,30})\b(?:\s+\1\b){5,}\s*$`)

// TrimTrailingRepetition removes an ASR hallucination tail where a
// single word or short phrase repeats many times at the end of the
// text, keeping the first occurrence. Grounded on original_source's
// TextProcessor._trim_trailing_repetition; conservative by design —
// it only ever trims the very end of the string.
func TrimTrailingRepetition(text string) string {
	if text == "" {
		return text
	}
	s := strings.TrimRight(text, " \t\n\r")
	if s == "" {
		return text
	}
	s = whitespaceRun.ReplaceAllString(s, " ")

	if loc := oneWordRepeat.FindStringSubmatchIndex(s); loc != nil {
		return strings.TrimRight(s[:loc[3]], " ")
	}
	if loc := twoWordRepeat.FindStringSubmatchIndex(s); loc != nil {
		return strings.TrimRight(s[:loc[3]], " ")
	}
	return s
}
