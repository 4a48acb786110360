package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localdictate/engine/internal/audio"
	"github.com/localdictate/engine/internal/config"
	"github.com/localdictate/engine/internal/llmstream"
	"github.com/localdictate/engine/internal/recorder"
	"github.com/localdictate/engine/internal/statusbus"
	"github.com/localdictate/engine/internal/transcription"
	"github.com/localdictate/engine/internal/wakeword"
	"github.com/localdictate/engine/pkg/core/logging"
)

type stubDetector struct{}

func (stubDetector) ProcessInt16(samples []int16) (bool, error) { return false, nil }
func (stubDetector) Close() error                               { return nil }

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, samples []int16) (transcription.Result, error) {
	if s.err != nil {
		return transcription.Result{}, s.err
	}
	return transcription.Result{Text: s.text}, nil
}
func (s *stubTranscriber) Close() error { return nil }

type stubLLM struct {
	result llmstream.Result
	err    error
	delay  time.Duration
}

func (s *stubLLM) Run(ctx context.Context, messages []llmstream.Message, family llmstream.Family) (llmstream.Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return llmstream.Result{}, ctx.Err()
		}
	}
	if s.err != nil {
		return llmstream.Result{}, s.err
	}
	return s.result, nil
}

func newTestController(t *testing.T, transcriber *stubTranscriber, llm *stubLLM) (*Controller, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer
	emitter := statusbus.NewEmitter(&out, logging.New("test"))
	throttle := statusbus.NewAmplitudeThrottle()

	cfg := config.Default()
	wake := wakeword.New(cfg.Modes, config.ModePrecedence, transcriber, throttle, emitter)
	rec := recorder.New(recorder.Config{
		MaxUtteranceFrames:        600,
		AutoStopSilenceSeconds:    1.5,
		ProgressiveCleanupSeconds: 60,
		HardCapSeconds:            150,
	}, throttle, emitter)
	classifier := audio.NewClassifier(audio.DefaultClassifierConfig(), stubDetector{})

	c := New(cfg, wake, rec, transcriber, llm, nil, nil, classifier, emitter)
	return c, &out
}

func TestControllerStartTransitionsToListening(t *testing.T) {
	c, _ := newTestController(t, &stubTranscriber{}, &stubLLM{})
	c.Start()

	if got := c.sm.Current().State; got != StateListening {
		t.Fatalf("state = %v, want Listening", got)
	}
}

func TestControllerStartCaptureIgnoredWhenNotListening(t *testing.T) {
	c, out := newTestController(t, &stubTranscriber{}, &stubLLM{})
	// Controller starts Inactive; never call Start().

	c.startCapture(context.Background(), config.ModeDictate)

	if got := c.sm.Current().State; got != StateInactive {
		t.Fatalf("state = %v, want Inactive (request should be ignored)", got)
	}
	if !bytes.Contains(out.Bytes(), []byte("ignored")) {
		t.Error("expected an ignored-status line on the transport")
	}
}

func TestControllerStartCaptureEntersCapturingState(t *testing.T) {
	c, _ := newTestController(t, &stubTranscriber{}, &stubLLM{})
	c.Start()

	c.startCapture(context.Background(), config.ModeDictate)

	snap := c.sm.Current()
	if snap.State != StateCapturing || snap.Mode != config.ModeDictate {
		t.Fatalf("snapshot = %+v, want Capturing(dictate)", snap)
	}
	if c.correlationID == "" {
		t.Error("expected a correlation ID to be assigned on entry to Capturing")
	}
}

func TestControllerAbortDuringCapturingReturnsToListeningWithoutTranscript(t *testing.T) {
	c, out := newTestController(t, &stubTranscriber{}, &stubLLM{})
	c.Start()
	c.startCapture(context.Background(), config.ModeDictate)

	c.abort()

	if got := c.sm.Current().State; got != StateListening {
		t.Fatalf("state = %v, want Listening", got)
	}
	if bytes.Contains(out.Bytes(), []byte("FINAL_TRANSCRIPT")) {
		t.Error("ABORT_DICTATION must not emit a transcript")
	}
}

func TestControllerStopDictationDeliversFinalTranscript(t *testing.T) {
	c, out := newTestController(t, &stubTranscriber{text: "hello world"}, &stubLLM{})
	c.Start()
	c.startCapture(context.Background(), config.ModeDictate)

	c.stopDictation()
	waitForState(t, c, StateListening)

	if !bytes.Contains(out.Bytes(), []byte("FINAL_TRANSCRIPT:hello world")) {
		t.Errorf("transport = %q, want a FINAL_TRANSCRIPT line", out.String())
	}
}

func TestControllerStopProofreadRunsLLMAndDeliversTranscription(t *testing.T) {
	llm := &stubLLM{result: llmstream.Result{Response: "Hello, world."}}
	c, out := newTestController(t, &stubTranscriber{text: "hello world"}, llm)
	c.Start()
	c.startCapture(context.Background(), config.ModeProofread)

	c.stopDictation()
	waitForState(t, c, StateListening)

	if !bytes.Contains(out.Bytes(), []byte("DICTATION_PREVIEW:hello world")) {
		t.Errorf("transport = %q, want a DICTATION_PREVIEW line", out.String())
	}
	if !bytes.Contains(out.Bytes(), []byte("TRANSCRIPTION:PROOFED:Hello, world.")) {
		t.Errorf("transport = %q, want a TRANSCRIPTION:PROOFED line", out.String())
	}
}

func TestControllerAbortDuringProcessingStopsLLMAndReturnsToListening(t *testing.T) {
	llm := &stubLLM{result: llmstream.Result{Response: "too late"}, delay: 200 * time.Millisecond}
	c, out := newTestController(t, &stubTranscriber{text: "hello"}, llm)
	c.Start()
	c.startCapture(context.Background(), config.ModeLetter)

	c.stopDictation()
	waitForState(t, c, StateProcessing)

	c.abort()
	waitForState(t, c, StateListening)

	time.Sleep(250 * time.Millisecond) // let the cancelled LLM goroutine unwind
	if bytes.Contains(out.Bytes(), []byte("too late")) {
		t.Error("LLM result must not be delivered after ABORT_DICTATION cancelled it")
	}
}

func TestControllerTranscriptionFailureReturnsToListeningWithRedStatus(t *testing.T) {
	c, out := newTestController(t, &stubTranscriber{err: errors.New("asr down")}, &stubLLM{})
	c.Start()
	c.startCapture(context.Background(), config.ModeDictate)

	c.stopDictation()
	waitForState(t, c, StateListening)

	if !bytes.Contains(out.Bytes(), []byte("STATUS:red")) {
		t.Errorf("transport = %q, want a red STATUS line on transcription failure", out.String())
	}
}

func TestControllerToggleActiveTwiceReturnsToInactive(t *testing.T) {
	c, _ := newTestController(t, &stubTranscriber{}, &stubLLM{})
	c.toggleActive()
	if got := c.sm.Current().State; got != StateListening {
		t.Fatalf("state after first toggle = %v, want Listening", got)
	}

	c.toggleActive()
	if got := c.sm.Current().State; got != StateInactive {
		t.Fatalf("state after second toggle = %v, want Inactive", got)
	}
}

func TestControllerApplyConfigMalformedPayloadEmitsYellowWarning(t *testing.T) {
	c, out := newTestController(t, &stubTranscriber{}, &stubLLM{})
	c.applyConfig([]byte("not json"))

	if !bytes.Contains(out.Bytes(), []byte("STATUS:yellow")) {
		t.Errorf("transport = %q, want a yellow STATUS line on malformed CONFIG", out.String())
	}
}

func TestControllerModelsRequestEmitsModelsSummary(t *testing.T) {
	c, out := newTestController(t, &stubTranscriber{}, &stubLLM{})
	out.Reset()

	c.HandleCommand(context.Background(), statusbus.Command{Kind: statusbus.CmdModelsRequest})

	if !bytes.Contains(out.Bytes(), []byte("MODELS:")) {
		t.Errorf("transport = %q, want a MODELS: line", out.String())
	}
	if !bytes.Contains(out.Bytes(), []byte(`"local-llm"`)) {
		t.Errorf("transport = %q, want the configured proofread/letter model id", out.String())
	}
}

func TestControllerStartEmitsModelsSummary(t *testing.T) {
	c, out := newTestController(t, &stubTranscriber{}, &stubLLM{})
	c.Start()

	if !bytes.Contains(out.Bytes(), []byte("MODELS:")) {
		t.Errorf("transport = %q, want a one-shot MODELS: line on boot", out.String())
	}
}

func TestControllerVocabularyAPIEchoesErrorResponse(t *testing.T) {
	c, out := newTestController(t, &stubTranscriber{}, &stubLLM{})
	out.Reset()

	c.HandleCommand(context.Background(), statusbus.Command{Kind: statusbus.CmdVocabularyAPI, Payload: "req-1:{}"})

	if !bytes.Contains(out.Bytes(), []byte("VOCAB_RESPONSE:req-1:")) {
		t.Errorf("transport = %q, want a VOCAB_RESPONSE:req-1: line", out.String())
	}
}

func TestControllerRestartReturnsToListening(t *testing.T) {
	c, _ := newTestController(t, &stubTranscriber{}, &stubLLM{})
	c.Start()

	c.HandleCommand(context.Background(), statusbus.Command{Kind: statusbus.CmdRestart})

	if got := c.sm.Current().State; got != StateListening {
		t.Fatalf("state after restart = %v, want Listening", got)
	}

	// The rebuilt worker pool must still accept submissions.
	c.startCapture(context.Background(), config.ModeProofread)
	c.rec.Buffer().Append([]int16{1, 2, 3})
	c.finishCapture(recorder.StopManual)
	waitForState(t, c, StateListening)
}

func TestControllerSecondModeRequestWhileCapturingIsIgnored(t *testing.T) {
	c, out := newTestController(t, &stubTranscriber{}, &stubLLM{})
	c.Start()
	c.startCapture(context.Background(), config.ModeDictate)
	out.Reset()

	c.startCapture(context.Background(), config.ModeProofread)

	snap := c.sm.Current()
	if snap.State != StateCapturing || snap.Mode != config.ModeDictate {
		t.Fatalf("snapshot = %+v, want to remain Capturing(dictate)", snap)
	}
	if !bytes.Contains(out.Bytes(), []byte("ignored")) {
		t.Error("expected an ignored-status line for the rejected second mode request")
	}
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.sm.Current().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %v, got %v", want, c.sm.Current().State)
}
