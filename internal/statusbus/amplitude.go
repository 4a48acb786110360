package statusbus

import (
	"sync"
	"time"
)

// AmplitudeCapHz is the maximum combined AUDIO_AMP emission rate
// spec.md §8 allows across all producers.
const AmplitudeCapHz = 30

// AmplitudeThrottle rate-limits AUDIO_AMP emission to AmplitudeCapHz
// across every caller sharing one instance. The Wake-Word Recogniser
// and the Utterance Recorder are never both the active producer for
// long, but they can be active across a mode-switch boundary in the
// same tick, so both hold a reference to the same Throttle (SPEC_FULL
// §4.2) rather than each keeping an independent timer.
type AmplitudeThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewAmplitudeThrottle builds a throttle capped at AmplitudeCapHz.
func NewAmplitudeThrottle() *AmplitudeThrottle {
	return &AmplitudeThrottle{interval: time.Second / AmplitudeCapHz}
}

// Allow reports whether a sample at time now may be emitted, and
// records it as the last emission if so. Call sites must pass
// monotonic-clock times (e.g. time.Now()) consistently.
func (t *AmplitudeThrottle) Allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
