package recorder

import (
	"time"

	"github.com/localdictate/engine/internal/audio"
	"github.com/localdictate/engine/internal/statusbus"
	"github.com/localdictate/engine/pkg/core/logging"
)

// StopReason identifies why a recording session ended.
type StopReason int

const (
	StopNone StopReason = iota
	StopAutoSilence
	StopHardCap
	StopManual
)

// Config mirrors internal/config.RecorderConfig, kept separate so this
// package has no import-time dependency on the config package's TOML
// tags.
type Config struct {
	MaxUtteranceFrames        int
	AutoStopSilenceSeconds    float64
	ProgressiveCleanupSeconds float64
	HardCapSeconds            float64
}

// Recorder accumulates an utterance's frames and decides when the
// Session Controller should stop capturing.
type Recorder struct {
	cfg      Config
	buf      *UtteranceBuffer
	throttle *statusbus.AmplitudeThrottle
	emitter  *statusbus.Emitter
	log      *logging.Logger

	trailingSilence time.Duration
	captureStart    time.Time
	framesFed       int
	warnedProgress  bool
}

// New builds a Recorder. throttle and emitter may be shared with the
// Wake-Word Recogniser so the combined AUDIO_AMP rate stays under
// spec.md §8's 30Hz cap.
func New(cfg Config, throttle *statusbus.AmplitudeThrottle, emitter *statusbus.Emitter) *Recorder {
	return &Recorder{
		cfg:      cfg,
		buf:      NewUtteranceBuffer(cfg.MaxUtteranceFrames),
		throttle: throttle,
		emitter:  emitter,
		log:      logging.New("recorder"),
	}
}

// Start resets the recorder for a new Capturing session.
func (r *Recorder) Start(now time.Time) {
	r.buf.Reset()
	r.trailingSilence = 0
	r.captureStart = now
	r.framesFed = 0
	r.warnedProgress = false
}

// FrameDuration is spec.md's fixed 20ms Audio Source cadence, used to
// advance the trailing-silence timer and capture-length clock per
// frame rather than by wall-clock sampling.
const FrameDuration = 20 * time.Millisecond

// Feed appends one frame and reports whether the Session Controller
// should stop the recording, and why. Near-silent frames are appended
// too while the trailing-silence counter is below the auto-stop
// threshold, so inter-word pauses survive in the transcript.
func (r *Recorder) Feed(f audio.Frame, voiced bool) StopReason {
	r.emitAmplitude(f.Amplitude)

	if voiced {
		r.trailingSilence = 0
	} else {
		r.trailingSilence += FrameDuration
	}

	autoStopAt := time.Duration(r.cfg.AutoStopSilenceSeconds * float64(time.Second))
	if !voiced && r.trailingSilence >= autoStopAt {
		return StopAutoSilence
	}

	if r.buf.Append(f.Samples) {
		r.warnStatus("utterance buffer full, dropping oldest frames")
	}

	// r.framesFed counts every frame fed since Start, independent of
	// r.buf.Len() — the buffer FIFO-drops oldest frames once it hits
	// MaxUtteranceFrames, so using buf.Len() here would cap elapsed at
	// MaxUtteranceFrames*FrameDuration and the hard cap/progressive
	// warning below could never fire with the buffer full.
	r.framesFed++
	elapsed := time.Duration(r.framesFed) * FrameDuration
	hardCap := time.Duration(r.cfg.HardCapSeconds * float64(time.Second))
	progressive := time.Duration(r.cfg.ProgressiveCleanupSeconds * float64(time.Second))

	if !r.warnedProgress && elapsed >= progressive {
		r.warnedProgress = true
		r.warnStatus("capture exceeding 60s, consider stopping")
	}

	if elapsed >= hardCap {
		r.log.Warn("hard capture cap reached, auto-stopping", "wallClockElapsed", time.Since(r.captureStart))
		r.warnStatus("hard capture cap reached, auto-stopping")
		return StopHardCap
	}

	return StopNone
}

// Buffer exposes the underlying UtteranceBuffer, e.g. for the
// Transcription Service to pull PCM from on stop.
func (r *Recorder) Buffer() *UtteranceBuffer {
	return r.buf
}

func (r *Recorder) warnStatus(text string) {
	r.log.Warn(text)
	if r.emitter != nil {
		_ = r.emitter.EmitStatus(statusbus.ColorOrange, text)
	}
}

func (r *Recorder) emitAmplitude(amplitude int16) {
	if r.emitter == nil || r.throttle == nil {
		return
	}
	if !r.throttle.Allow(time.Now()) {
		return
	}
	level := int(amplitude) * 100 / 32767
	_ = r.emitter.Emit(statusbus.AudioAmp(level))
}
