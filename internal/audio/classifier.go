package audio

import "github.com/localdictate/engine/internal/vad"

// ClassifierConfig controls the short-circuit thresholds spec.md §4.1
// and §8 fix at 5 and 10 respectively.
type ClassifierConfig struct {
	SkipAmplitudeThreshold int16
	SkipConsecutiveFrames  int
}

// DefaultClassifierConfig returns spec.md's fixed short-circuit
// thresholds.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{SkipAmplitudeThreshold: 5, SkipConsecutiveFrames: 10}
}

// Classification is the per-frame output of the Frame Classifier.
type Classification struct {
	Amplitude int16
	IsVoiced  bool
	Err       error
}

// Classifier computes amplitude and gates a VAD engine behind a
// near-silence short-circuit. It must be side-effect-free apart from
// its own streak counter and must never block — the underlying
// Detector implementation is responsible for that contract.
type Classifier struct {
	cfg    ClassifierConfig
	vad    vad.Detector
	streak int
}

// NewClassifier builds a Classifier wrapping detector.
func NewClassifier(cfg ClassifierConfig, detector vad.Detector) *Classifier {
	return &Classifier{cfg: cfg, vad: detector}
}

// Classify processes one frame. The short-circuit triggers only once
// the streak of consecutive low-amplitude frames reaches
// SkipConsecutiveFrames — i.e. the VAD is still invoked on frames 1
// through SkipConsecutiveFrames, and only skipped starting on frame
// SkipConsecutiveFrames+1 of the streak (spec.md §8: "exactly 10
// frames triggers short-circuit on the 11th").
func (c *Classifier) Classify(f Frame) Classification {
	amp := f.Amplitude

	if amp < c.cfg.SkipAmplitudeThreshold {
		c.streak++
	} else {
		c.streak = 0
	}

	if c.streak > c.cfg.SkipConsecutiveFrames {
		return Classification{Amplitude: amp, IsVoiced: false}
	}

	voiced, err := c.vad.ProcessInt16(f.Samples)
	if err != nil {
		// A VAD engine failure surfaces as not-voiced and an error
		// status; it must not abort the pipeline.
		return Classification{Amplitude: amp, IsVoiced: false, Err: err}
	}

	if voiced {
		c.streak = 0
	}

	return Classification{Amplitude: amp, IsVoiced: voiced}
}

// Reset clears the streak counter, e.g. between sessions.
func (c *Classifier) Reset() {
	c.streak = 0
}
