// Package recorder implements the Utterance Recorder (spec.md §4.3):
// a bounded FIFO of voiced (and trailing near-silent) frames captured
// during a Capturing session, with trailing-silence auto-stop, a
// one-time warning at the progressive threshold (no frames are removed
// there) and a hard capture-length cap. Grounded on the teacher
// platform's voiceassistant/audio.AudioBuffer, adapted from a
// float32-sample growing buffer to a frame-indexed FIFO with an
// explicit oldest-drop cap, since spec.md's UtteranceBuffer is bounded
// by frame count rather than by sample count.
package recorder

import "sync"

// UtteranceBuffer holds the ordered PCM frames captured since the last
// transition into Capturing. Invariant: len() never exceeds maxFrames;
// once the cap is reached the oldest frame is dropped (FIFO) and the
// caller is expected to log the single warning status event — the
// buffer itself only tracks whether the cap has ever been hit, so that
// event fires exactly once per session.
type UtteranceBuffer struct {
	mu        sync.Mutex
	frames    [][]int16
	maxFrames int
	overflowed bool
}

// NewUtteranceBuffer builds an UtteranceBuffer capped at maxFrames.
func NewUtteranceBuffer(maxFrames int) *UtteranceBuffer {
	return &UtteranceBuffer{maxFrames: maxFrames}
}

// Append adds one frame's PCM payload. It returns true the first time
// the cap is hit by this call (the warn-once signal), false otherwise.
func (b *UtteranceBuffer) Append(pcm []int16) (overflowedNow bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, pcm)
	if len(b.frames) > b.maxFrames {
		drop := len(b.frames) - b.maxFrames
		b.frames = b.frames[drop:]
		if !b.overflowed {
			b.overflowed = true
			return true
		}
	}
	return false
}

// Len returns the number of frames currently buffered.
func (b *UtteranceBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// PCM concatenates every buffered frame into one flat sample slice,
// the form the Transcription Service consumes. This transfers
// ownership by move per spec.md's data model: callers should treat the
// buffer as drained afterward by calling Reset.
func (b *UtteranceBuffer) PCM() []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, f := range b.frames {
		total += len(f)
	}
	out := make([]int16, 0, total)
	for _, f := range b.frames {
		out = append(out, f...)
	}
	return out
}

// Reset empties the buffer for a new session.
func (b *UtteranceBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = nil
	b.overflowed = false
}
