// Package wakeword implements the Wake-Word Recogniser (spec.md §4.2):
// while SessionState is Listening, it scans a sliding window of recent
// voiced frames for a configured phrase and reports {mode, confidence}
// on match, tie-broken by mode precedence. Grounded on the teacher
// platform's wakeword.Detector, which drives the same keyword-spotting
// idea off a Transcriber rather than a dedicated phonetic engine —
// generalized here to multiple per-mode phrase sets and a bounded
// contiguous-match window instead of a single flat keyword list.
package wakeword

import (
	"context"
	"strings"
	"time"

	"github.com/localdictate/engine/internal/audio"
	"github.com/localdictate/engine/internal/config"
	"github.com/localdictate/engine/internal/statusbus"
	"github.com/localdictate/engine/internal/transcription"
	"github.com/localdictate/engine/pkg/core/logging"
)

// MatchWindow bounds how far apart the words of a multi-word wake
// phrase may be recognised and still count as one contiguous match
// (spec.md §4.2: "≤1.5 s").
const MatchWindow = 1500 * time.Millisecond

// Match is the recogniser's output on a successful wake-word
// detection.
type Match struct {
	Mode       config.Mode
	Phrase     string
	Confidence float32
}

// Recognizer buffers voiced samples and periodically checks them
// against every mode's wake-word set.
type Recognizer struct {
	phrases     map[config.Mode][]string
	precedence  []config.Mode
	transcriber transcription.Transcriber
	throttle    *statusbus.AmplitudeThrottle
	emitter     *statusbus.Emitter
	log         *logging.Logger

	buf       []int16
	maxLenSec float64
}

// New builds a Recognizer from the per-mode wake-word sets in modes,
// tie-broken by precedence.
func New(modes map[config.Mode]config.ModeConfig, precedence []config.Mode, transcriber transcription.Transcriber, throttle *statusbus.AmplitudeThrottle, emitter *statusbus.Emitter) *Recognizer {
	phrases := make(map[config.Mode][]string, len(modes))
	for mode, mc := range modes {
		phrases[mode] = mc.WakeWords
	}
	return &Recognizer{
		phrases:     phrases,
		precedence:  precedence,
		transcriber: transcriber,
		throttle:    throttle,
		emitter:     emitter,
		log:         logging.New("wakeword"),
		maxLenSec:   MatchWindow.Seconds(),
	}
}

// Feed processes one voiced or unvoiced frame while SessionState is
// Listening. Callers MUST NOT call Feed outside Listening — spec.md
// §4.2 and §8's wake-word gating invariant place that responsibility
// on the caller (the Session Controller's classifier/dispatcher task),
// not the recogniser itself, since the recogniser has no visibility
// into SessionState.
func (r *Recognizer) Feed(ctx context.Context, f audio.Frame, voiced bool) (*Match, error) {
	r.emitAmplitude(f.Amplitude)

	if !voiced {
		return nil, nil
	}

	r.buf = append(r.buf, f.Samples...)
	maxSamples := int(r.maxLenSec * float64(audio.SampleRate))
	if len(r.buf) > maxSamples {
		r.buf = r.buf[len(r.buf)-maxSamples:]
	}

	// Only attempt recognition once we have enough audio to plausibly
	// contain a whole phrase.
	if len(r.buf) < audio.SampleRate/2 {
		return nil, nil
	}

	result, err := r.transcriber.Transcribe(ctx, r.buf)
	if err != nil {
		r.log.Debug("wake word transcription failed", "error", err)
		return nil, nil
	}
	if result.Text == "" {
		return nil, nil
	}

	text := strings.ToLower(result.Text)

	if match := r.bestMatch(text); match != nil {
		r.buf = r.buf[:0]
		return match, nil
	}
	return nil, nil
}

// bestMatch returns the highest-precedence phrase match found in text,
// or nil. Matching is whole-word: a phrase's words must all appear as
// separate tokens of text, in order.
func (r *Recognizer) bestMatch(text string) *Match {
	tokens := strings.Fields(text)

	for _, mode := range r.precedence {
		for _, phrase := range r.phrases[mode] {
			if phraseMatches(tokens, strings.Fields(strings.ToLower(phrase))) {
				return &Match{Mode: mode, Phrase: phrase, Confidence: 1.0}
			}
		}
	}
	return nil
}

// phraseMatches reports whether phraseWords appear as a contiguous,
// whole-word run inside tokens.
func phraseMatches(tokens, phraseWords []string) bool {
	if len(phraseWords) == 0 || len(phraseWords) > len(tokens) {
		return false
	}
	for start := 0; start+len(phraseWords) <= len(tokens); start++ {
		match := true
		for i, w := range phraseWords {
			if tokens[start+i] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// emitAmplitude publishes the frame's amplitude to the Status Bus,
// downsampled through the shared throttle regardless of match — the
// contract holds even on frames that never reach the transcriber.
func (r *Recognizer) emitAmplitude(amplitude int16) {
	if r.emitter == nil || r.throttle == nil {
		return
	}
	if !r.throttle.Allow(time.Now()) {
		return
	}
	level := int(amplitude) * 100 / 32767
	_ = r.emitter.Emit(statusbus.AudioAmp(level))
}

// Reset clears buffered audio, e.g. on entry to Listening.
func (r *Recognizer) Reset() {
	r.buf = r.buf[:0]
}
