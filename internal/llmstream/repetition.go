package llmstream

import "strings"

// RepetitionRingSize is the fixed ring buffer length spec.md §9
// describes: "a fixed-size ring buffer plus a small set of seed
// phrases per model family, not an open heuristic."
const RepetitionRingSize = 100

// RepetitionDetector watches the tail of a streaming response for a
// configured family's seed phrases occurring too many times within the
// last RepetitionRingSize runes; occurrences need not be adjacent. It never inspects the whole accumulated response — only the last
// RepetitionRingSize runes — so a legitimately repeated clinical term
// far apart in a long document never trips it.
type RepetitionDetector struct {
	ring           []rune
	seeds          []string
	maxRepetitions int
	counts         map[string]int
}

// NewRepetitionDetector builds a detector for one model family's seed
// phrases (internal/config.LLMConfig.SeedPhrases), triggering once any
// seed phrase's occurrence count within the ring reaches maxRepetitions.
func NewRepetitionDetector(seeds []string, maxRepetitions int) *RepetitionDetector {
	return &RepetitionDetector{
		seeds:          seeds,
		maxRepetitions: maxRepetitions,
		counts:         make(map[string]int),
	}
}

// Feed appends newText's runes to the ring buffer and reports whether
// a seed phrase now occurs at least maxRepetitions times in the ring
// buffer — the signal the LLM Streaming Engine uses to terminate
// the session early (spec.md §8 scenario 4).
func (d *RepetitionDetector) Feed(newText string) (loopDetected bool, matchedSeed string) {
	for _, r := range newText {
		d.ring = append(d.ring, r)
		if len(d.ring) > RepetitionRingSize {
			d.ring = d.ring[len(d.ring)-RepetitionRingSize:]
		}
	}

	window := string(d.ring)
	for _, seed := range d.seeds {
		if seed == "" {
			continue
		}
		count := strings.Count(window, seed)
		if count > d.counts[seed] {
			d.counts[seed] = count
			if count >= d.maxRepetitions {
				return true, seed
			}
		}
	}
	return false, ""
}

// Reset clears all state for a new session.
func (d *RepetitionDetector) Reset() {
	d.ring = d.ring[:0]
	d.counts = make(map[string]int)
}
