package llmstream

import (
	"regexp"
	"strings"
)

// wordToken matches a single word (e.g. "the"), used by DedupWordPairs.
var wordToken = regexp.MustCompile(`\w+`)

// hyphenCompoundToken matches a hyphenated compound of two or more
// segments (e.g. "21-year-old"), used by DedupHyphenJoins.
var hyphenCompoundToken = regexp.MustCompile(`\w+(?:-\w+)+`)

// Go's RE2-based regexp engine has no backreference support, so the
// three dedup passes below can't use a single `\1`-style pattern the
// way a PCRE engine would; they instead scan token-by-token and compare
// case-insensitively, which is equivalent to the backreference pattern
// they replace.

// DedupWordPairs collapses an immediately repeated word (case-
// insensitive, separated by a single run of whitespace) into a single
// occurrence, e.g. the streaming artefact "the the" that chunk-boundary
// joins sometimes produce. Idempotent: running it again on its own
// output is a no-op, since the second occurrence is always removed
// first.
func DedupWordPairs(text string) string {
	return collapseRepeatedTokens(text, wordToken, isAllWhitespace)
}

// DedupHyphenJoins collapses an immediately repeated hyphenated
// compound, e.g. "self-aware self-aware", into a single occurrence.
// Idempotent for the same reason as DedupWordPairs.
func DedupHyphenJoins(text string) string {
	return collapseRepeatedTokens(text, hyphenCompoundToken, isAllWhitespace)
}

// DedupSelfHyphenated collapses a bare self-hyphenated duplicate like
// "term-term" into "term" — distinct from DedupHyphenJoins, which
// requires a whitespace-separated repeat of the whole compound.
func DedupSelfHyphenated(text string) string {
	return collapseRepeatedTokens(text, wordToken, isSingleHyphen)
}

func isAllWhitespace(gap string) bool {
	return gap != "" && strings.TrimSpace(gap) == ""
}

func isSingleHyphen(gap string) bool {
	return gap == "-"
}

// collapseRepeatedTokens finds consecutive tokens matched by tokenRe
// whose separating gap satisfies gapOK and which are equal case-
// insensitively, and collapses each such pair to its first occurrence.
// It repeats until a pass makes no change, so runs of more than two
// repeats (e.g. "word word word") collapse to a single occurrence.
func collapseRepeatedTokens(text string, tokenRe *regexp.Regexp, gapOK func(string) bool) string {
	for {
		locs := tokenRe.FindAllStringIndex(text, -1)
		var b strings.Builder
		last := 0
		changed := false
		for i := 0; i < len(locs); i++ {
			start, end := locs[i][0], locs[i][1]
			if i+1 < len(locs) {
				nstart, nend := locs[i+1][0], locs[i+1][1]
				gap := text[end:nstart]
				if gapOK(gap) && strings.EqualFold(text[start:end], text[nstart:nend]) {
					b.WriteString(text[last:end])
					last = nend
					i++
					changed = true
					continue
				}
			}
			b.WriteString(text[last:end])
			last = end
		}
		b.WriteString(text[last:])
		next := b.String()
		if !changed {
			return text
		}
		text = next
	}
}

// bulletAfterPeriod matches a dash that begins a list immediately after
// a sentence-ending period, with or without a space already separating
// them (". - Item" or ".- Item"), and rewrites it onto its own line.
var bulletAfterPeriod = regexp.MustCompile(`\.\s*-\s+`)

// inlineBulletBreak matches " - " (a dash surrounded by whitespace, not
// a hyphenated compound like "21-year-old" or "self-aware") and breaks
// it onto its own "- " line. Runs after bulletAfterPeriod so a
// period-prefixed dash is not double-processed.
var inlineBulletBreak = regexp.MustCompile(`\s-\s+`)

// NormalizeBulletBreaks applies spec.md §4.5's bullet-break
// normalization to a finished LLM artifact: every " - " run becomes a
// newline followed by "- ", and a dash that begins a list right after a
// period always starts its own line. Grounded on original_source's
// ProfessionalTextFormatter._process_proofread_mode.
func NormalizeBulletBreaks(text string) string {
	text = bulletAfterPeriod.ReplaceAllString(text, ".\n- ")
	text = inlineBulletBreak.ReplaceAllString(text, "\n- ")
	return text
}
